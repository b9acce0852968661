package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// YahooProvider implements Provider using the Yahoo Finance chart API.
type YahooProvider struct {
	BaseURL   string
	Client    *http.Client
	Zones     MarketZones
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(proxyURL string, zones MarketZones) *YahooProvider {
	return &YahooProvider{
		BaseURL:  "https://query1.finance.yahoo.com/v8/finance/chart/",
		Client:   newHTTPClient(proxyURL, 30*time.Second),
		Zones:    zones,
		SymbolMap: map[string]string{
			"SPX": "^GSPC",
			"NDX": "^NDX",
		},
	}
}

func (f *YahooProvider) Name() string { return "yahoo" }

func (f *YahooProvider) yahooSymbol(symbol string) (string, error) {
	if mapped, ok := f.SymbolMap[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return mapped, nil
	}
	info := ParseSymbol(symbol)
	switch info.Exchange {
	case "sh":
		return info.Code + ".SS", nil
	case "sz":
		return info.Code + ".SZ", nil
	case "hk":
		// Yahoo uses 4-digit HK codes.
		code := strings.TrimLeft(info.Code, "0")
		for len(code) < 4 {
			code = "0" + code
		}
		return code + ".HK", nil
	case "us":
		return info.Code, nil
	default:
		return "", fmt.Errorf("yahoo: %s: %w", symbol, apperrors.ErrNotSupported)
	}
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				DayHigh            float64 `json:"regularMarketDayHigh"`
				DayLow             float64 `json:"regularMarketDayLow"`
				Volume             float64 `json:"regularMarketVolume"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat reads a loosely typed JSON number. Upstream feeds use null or "-"
// for missing values; both read as zero.
func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (f *YahooProvider) fetchChart(ctx context.Context, symbol, query string) (*yahooChart, error) {
	ticker, err := f.yahooSymbol(symbol)
	if err != nil {
		return nil, err
	}
	u := f.BaseURL + url.PathEscape(ticker) + "?" + query
	body, err := getBody(ctx, f.Client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}
	return &chart, nil
}

func (f *YahooProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Add(24*time.Hour).Unix(), 10))
	chart, err := f.fetchChart(ctx, symbol, q.Encode())
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}
	quote := result.Indicators.Quote[0]
	loc := f.Zones.ForSymbol(symbol)
	bars := make([]model.DailyBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.DailyBar{
			Date:   model.DateOf(time.Unix(ts, 0), loc),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toFloat(quote.Volume[i]),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (f *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	chart, err := f.fetchChart(ctx, symbol, "interval=1d&range=1d")
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("yahoo: no price data: %w", apperrors.ErrQuoteUnavailable)
	}
	q := &model.Quote{
		Symbol:    symbol,
		Name:      meta.ShortName,
		Price:     meta.RegularMarketPrice,
		High:      meta.DayHigh,
		Low:       meta.DayLow,
		PrevClose: meta.ChartPreviousClose,
		Volume:    meta.Volume,
		Time:      time.Unix(meta.RegularMarketTime, 0).In(f.Zones.ForSymbol(symbol)),
		Source:    f.Name(),
	}
	if qs := chart.Chart.Result[0].Indicators.Quote; len(qs) > 0 && len(qs[0].Open) > 0 {
		q.Open = toFloat(qs[0].Open[len(qs[0].Open)-1])
	}
	return q, nil
}
