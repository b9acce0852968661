package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// TencentProvider implements Provider using the gtimg quote and kline feeds.
type TencentProvider struct {
	HistoryURL string
	QuoteURL   string
	Client     *http.Client
	Zones      MarketZones
}

// NewTencentProvider creates a new Tencent provider.
func NewTencentProvider(proxyURL string, zones MarketZones) *TencentProvider {
	return &TencentProvider{
		HistoryURL: "https://web.ifzq.gtimg.cn/appstock/app/fqkline/get",
		QuoteURL:   "https://qt.gtimg.cn/q=",
		Client:     newHTTPClient(proxyURL, 30*time.Second),
		Zones:      zones,
	}
}

func (p *TencentProvider) Name() string { return "tencent" }

func tencentSymbol(symbol string) (SymbolInfo, string, error) {
	info := ParseSymbol(symbol)
	switch info.Exchange {
	case "sh", "sz", "bj", "hk":
		return info, info.Prefixed(), nil
	case "us":
		return info, "us" + info.Code, nil
	default:
		return info, "", fmt.Errorf("tencent: %s: %w", symbol, apperrors.ErrNotSupported)
	}
}

func (p *TencentProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	info, code, err := tencentSymbol(symbol)
	if err != nil {
		return nil, err
	}
	loc := p.Zones.For(info.Market)
	u := fmt.Sprintf("%s?param=%s,day,%s,%s,640,qfq", p.HistoryURL, code,
		start.In(loc).Format("2006-01-02"), end.In(loc).Format("2006-01-02"))
	body, err := getBody(ctx, p.Client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("tencent history: %w", err)
	}

	var resp struct {
		Code int                        `json:"code"`
		Msg  string                     `json:"msg"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tencent decode: %w", err)
	}
	raw, ok := resp.Data[code]
	if resp.Code != 0 || !ok {
		return nil, fmt.Errorf("tencent: no data returned (code %d %s)", resp.Code, resp.Msg)
	}
	// Unadjusted series come back under "day", adjusted under "qfqday".
	var series struct {
		QfqDay [][]interface{} `json:"qfqday"`
		Day    [][]interface{} `json:"day"`
	}
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("tencent decode series: %w", err)
	}
	rows := series.QfqDay
	if len(rows) == 0 {
		rows = series.Day
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tencent: no data returned")
	}

	volScale := 1.0
	if info.Market == model.MarketCN {
		volScale = 100
	}
	bars := make([]model.DailyBar, 0, len(rows))
	for _, row := range rows {
		// date,open,close,high,low,volume
		if len(row) < 6 {
			continue
		}
		ds, _ := row[0].(string)
		d, err := time.ParseInLocation("2006-01-02", ds, loc)
		if err != nil {
			return nil, fmt.Errorf("tencent date %q: %w", ds, err)
		}
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   toFloat(row[1]),
			Close:  toFloat(row[2]),
			High:   toFloat(row[3]),
			Low:    toFloat(row[4]),
			Volume: toFloat(row[5]) * volScale,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (p *TencentProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	info, code, err := tencentSymbol(symbol)
	if err != nil {
		return nil, err
	}
	body, err := getBody(ctx, p.Client, p.QuoteURL+code, nil)
	if err != nil {
		return nil, fmt.Errorf("tencent quote: %w", err)
	}
	text, err := decodeGBK(body)
	if err != nil {
		return nil, err
	}
	// v_sh600519="1~贵州茅台~600519~1500.00~...";
	start := strings.IndexByte(text, '"')
	end := strings.LastIndexByte(text, '"')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("tencent: malformed quote: %w", apperrors.ErrQuoteUnavailable)
	}
	f := strings.Split(text[start+1:end], "~")
	if len(f) < 38 {
		return nil, fmt.Errorf("tencent: short quote (%d fields): %w", len(f), apperrors.ErrQuoteUnavailable)
	}
	price := parseFloat(f[3])
	if price <= 0 {
		return nil, fmt.Errorf("tencent: no price: %w", apperrors.ErrQuoteUnavailable)
	}
	loc := p.Zones.For(info.Market)
	ts, err := time.ParseInLocation("20060102150405", f[30], loc)
	if err != nil {
		// HK and US quotes use a slash-separated timestamp.
		ts, err = time.ParseInLocation("2006/01/02 15:04:05", f[30], loc)
		if err != nil {
			return nil, fmt.Errorf("tencent quote time %q: %w", f[30], err)
		}
	}
	volScale := 1.0
	if info.Market == model.MarketCN {
		volScale = 100
	}
	return &model.Quote{
		Symbol:    symbol,
		Name:      f[1],
		Price:     price,
		PrevClose: parseFloat(f[4]),
		Open:      parseFloat(f[5]),
		Volume:    parseFloat(f[6]) * volScale,
		High:      parseFloat(f[33]),
		Low:       parseFloat(f[34]),
		Amount:    parseFloat(f[37]) * 1e4,
		Time:      ts,
		Source:    p.Name(),
	}, nil
}

func decodeGBK(b []byte) (string, error) {
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("gbk decode: %w", err)
	}
	return string(out), nil
}
