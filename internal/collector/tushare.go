package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// TushareProvider implements Provider on the Tushare Pro HTTP API.
// It serves history only; quotes report ErrNotSupported so the chain moves on.
type TushareProvider struct {
	BaseURL  string
	Token    string
	Client   *http.Client
	Zones    MarketZones
}

// NewTushareProvider creates a new Tushare provider. An empty baseURL selects the public endpoint.
func NewTushareProvider(baseURL, token, proxyURL string, zones MarketZones) *TushareProvider {
	if baseURL == "" {
		baseURL = "https://api.tushare.pro"
	}
	return &TushareProvider{
		BaseURL:  baseURL,
		Token:    token,
		Client:   newHTTPClient(proxyURL, 30*time.Second),
		Zones:    zones,
	}
}

func (p *TushareProvider) Name() string { return "tushare" }

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// tushareCode returns the ts_code and the daily API that serves it.
func tushareCode(symbol string) (string, string, error) {
	info := ParseSymbol(symbol)
	switch {
	case info.Market == model.MarketCN && info.Exchange != "":
		api := "daily"
		if info.Index {
			api = "index_daily"
		}
		return info.Code + "." + strings.ToUpper(info.Exchange), api, nil
	case info.Market == model.MarketHK:
		return info.Code + ".HK", "hk_daily", nil
	case info.Market == model.MarketUS:
		return info.Code, "us_daily", nil
	default:
		return "", "", fmt.Errorf("tushare: %s: %w", symbol, apperrors.ErrNotSupported)
	}
}

func (p *TushareProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	if p.Token == "" {
		return nil, fmt.Errorf("tushare: token not configured: %w", apperrors.ErrNotSupported)
	}
	tsCode, api, err := tushareCode(symbol)
	if err != nil {
		return nil, err
	}
	loc := p.Zones.ForSymbol(symbol)
	payload, err := json.Marshal(tushareRequest{
		APIName: api,
		Token:   p.Token,
		Params: map[string]string{
			"ts_code":    tsCode,
			"start_date": start.In(loc).Format("20060102"),
			"end_date":   end.In(loc).Format("20060102"),
		},
		Fields: "trade_date,open,high,low,close,vol,amount",
	})
	if err != nil {
		return nil, err
	}
	body, err := postJSON(ctx, p.Client, p.BaseURL, payload)
	if err != nil {
		return nil, fmt.Errorf("tushare history: %w", err)
	}
	var resp tushareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tushare decode: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("tushare api error %d: %s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return nil, fmt.Errorf("tushare: no data returned")
	}

	idx := make(map[string]int, len(resp.Data.Fields))
	for i, f := range resp.Data.Fields {
		idx[f] = i
	}
	for _, f := range []string{"trade_date", "open", "high", "low", "close", "vol"} {
		if _, ok := idx[f]; !ok {
			return nil, fmt.Errorf("tushare: missing field %s: %w", f, apperrors.ErrInvalidData)
		}
	}
	field := func(row []interface{}, name string) interface{} {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	// A-share vol is in lots and amount in thousands.
	volScale, amtScale := 1.0, 1.0
	if api == "daily" || api == "index_daily" {
		volScale, amtScale = 100, 1000
	}
	bars := make([]model.DailyBar, 0, len(resp.Data.Items))
	for _, row := range resp.Data.Items {
		ds, _ := field(row, "trade_date").(string)
		d, err := time.ParseInLocation("20060102", ds, loc)
		if err != nil {
			return nil, fmt.Errorf("tushare date %q: %w", ds, err)
		}
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   toFloat(field(row, "open")),
			High:   toFloat(field(row, "high")),
			Low:    toFloat(field(row, "low")),
			Close:  toFloat(field(row, "close")),
			Volume: toFloat(field(row, "vol")) * volScale,
			Amount: toFloat(field(row, "amount")) * amtScale,
		})
	}
	// Tushare returns newest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (p *TushareProvider) FetchQuote(_ context.Context, symbol string) (*model.Quote, error) {
	return nil, fmt.Errorf("tushare quote %s: %w", symbol, apperrors.ErrNotSupported)
}
