package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// SinaProvider implements Provider for A-shares using the Sina finance feeds.
type SinaProvider struct {
	HistoryURL string
	QuoteURL   string
	Client     *http.Client
	Zones      MarketZones
}

// NewSinaProvider creates a new Sina provider.
func NewSinaProvider(proxyURL string, zones MarketZones) *SinaProvider {
	return &SinaProvider{
		HistoryURL: "https://quotes.sina.cn/cn/api/json_v2.php/CN_MarketDataService.getKLineData",
		QuoteURL:   "https://hq.sinajs.cn/list=",
		Client:     newHTTPClient(proxyURL, 30*time.Second),
		Zones:      zones,
	}
}

func (p *SinaProvider) Name() string { return "sina" }

// sinaHeaders carries the Referer the quote endpoint insists on.
var sinaHeaders = map[string]string{"Referer": "https://finance.sina.com.cn"}

func sinaSymbol(symbol string) (string, error) {
	info := ParseSymbol(symbol)
	if info.Market != model.MarketCN || info.Exchange == "" {
		return "", fmt.Errorf("sina: %s: %w", symbol, apperrors.ErrNotSupported)
	}
	return info.Prefixed(), nil
}

type sinaKline struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (p *SinaProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	code, err := sinaSymbol(symbol)
	if err != nil {
		return nil, err
	}
	// The feed only takes a trailing count; trim to [start, end] afterwards.
	n := int(math.Ceil(time.Since(start).Hours()/24)) + 5
	if n < 30 {
		n = 30
	}
	u := fmt.Sprintf("%s?symbol=%s&scale=240&ma=no&datalen=%d", p.HistoryURL, code, n)
	body, err := getBody(ctx, p.Client, u, sinaHeaders)
	if err != nil {
		return nil, fmt.Errorf("sina history: %w", err)
	}
	var rows []sinaKline
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("sina decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sina: no data returned")
	}

	loc := p.Zones.For(model.MarketCN)
	from := model.DateOf(start, loc)
	to := model.DateOf(end, loc)
	bars := make([]model.DailyBar, 0, len(rows))
	for _, r := range rows {
		d, err := time.ParseInLocation("2006-01-02", r.Day, loc)
		if err != nil {
			return nil, fmt.Errorf("sina date %q: %w", r.Day, err)
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   parseFloat(r.Open),
			High:   parseFloat(r.High),
			Low:    parseFloat(r.Low),
			Close:  parseFloat(r.Close),
			Volume: parseFloat(r.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (p *SinaProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	code, err := sinaSymbol(symbol)
	if err != nil {
		return nil, err
	}
	body, err := getBody(ctx, p.Client, p.QuoteURL+code, sinaHeaders)
	if err != nil {
		return nil, fmt.Errorf("sina quote: %w", err)
	}
	text, err := decodeGBK(body)
	if err != nil {
		return nil, err
	}
	// var hq_str_sh600519="贵州茅台,1490.00,1488.00,1500.00,...,2024-01-02,15:00:00,00";
	start := strings.IndexByte(text, '"')
	end := strings.LastIndexByte(text, '"')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("sina: malformed quote: %w", apperrors.ErrQuoteUnavailable)
	}
	f := strings.Split(text[start+1:end], ",")
	if len(f) < 32 {
		return nil, fmt.Errorf("sina: short quote (%d fields): %w", len(f), apperrors.ErrQuoteUnavailable)
	}
	price := parseFloat(f[3])
	if price <= 0 {
		return nil, fmt.Errorf("sina: no price: %w", apperrors.ErrQuoteUnavailable)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", f[30]+" "+f[31], p.Zones.For(model.MarketCN))
	if err != nil {
		return nil, fmt.Errorf("sina quote time: %w", err)
	}
	return &model.Quote{
		Symbol:    symbol,
		Name:      f[0],
		Open:      parseFloat(f[1]),
		PrevClose: parseFloat(f[2]),
		Price:     price,
		High:      parseFloat(f[4]),
		Low:       parseFloat(f[5]),
		Volume:    parseFloat(f[8]),
		Amount:    parseFloat(f[9]),
		Time:      ts,
		Source:    p.Name(),
	}, nil
}
