package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// EastmoneyProvider implements Provider, ValuationProvider and FundFlowProvider
// on the public Eastmoney push2 endpoints.
type EastmoneyProvider struct {
	HistoryURL  string
	QuoteURL    string
	FundFlowURL string
	NorthURL    string
	ReportURL   string
	BoardURL    string
	Client      *http.Client
	Zones       MarketZones

	mu      sync.Mutex
	medians map[string]medianEntry
	group   singleflight.Group
}

// industryPETTL bounds how long an industry PE median is reused.
const industryPETTL = 24 * time.Hour

type medianEntry struct {
	value float64
	at    time.Time
}

// NewEastmoneyProvider creates a new Eastmoney provider.
func NewEastmoneyProvider(proxyURL string, zones MarketZones) *EastmoneyProvider {
	return &EastmoneyProvider{
		HistoryURL:  "https://push2his.eastmoney.com/api/qt/stock/kline/get",
		QuoteURL:    "https://push2.eastmoney.com/api/qt/stock/get",
		FundFlowURL: "https://push2.eastmoney.com/api/qt/stock/fflow/daykline/get",
		NorthURL:    "https://push2.eastmoney.com/api/qt/kamt/get",
		ReportURL:   "https://datacenter-web.eastmoney.com/api/data/v1/get",
		BoardURL:    "https://push2.eastmoney.com/api/qt/clist/get",
		Client:      newHTTPClient(proxyURL, 30*time.Second),
		Zones:       zones,
	}
}

func (p *EastmoneyProvider) Name() string { return "eastmoney" }

// secID maps a symbol to Eastmoney's market.code identifier.
func secID(info SymbolInfo) (string, error) {
	switch info.Exchange {
	case "sh":
		return "1." + info.Code, nil
	case "sz", "bj":
		return "0." + info.Code, nil
	case "hk":
		return "116." + info.Code, nil
	case "us":
		return "105." + info.Code, nil
	default:
		return "", fmt.Errorf("eastmoney: unrecognised symbol %q: %w", info.Code, apperrors.ErrNotSupported)
	}
}

type emKlineResp struct {
	RC   int `json:"rc"`
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func (p *EastmoneyProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	info := ParseSymbol(symbol)
	id, err := secID(info)
	if err != nil {
		return nil, err
	}
	loc := p.Zones.For(info.Market)
	q := url.Values{}
	q.Set("secid", id)
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	q.Set("klt", "101")
	q.Set("fqt", "1")
	q.Set("beg", start.In(loc).Format("20060102"))
	q.Set("end", end.In(loc).Format("20060102"))

	body, err := getBody(ctx, p.Client, p.HistoryURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("eastmoney history: %w", err)
	}
	var resp emKlineResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("eastmoney decode: %w", err)
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, fmt.Errorf("eastmoney: no data returned")
	}

	volScale := 1.0
	if info.Market == model.MarketCN {
		volScale = 100 // lots to shares
	}
	bars := make([]model.DailyBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		// date,open,close,high,low,volume,amount
		f := strings.Split(line, ",")
		if len(f) < 7 {
			continue
		}
		d, err := time.ParseInLocation("2006-01-02", f[0], loc)
		if err != nil {
			return nil, fmt.Errorf("eastmoney date %q: %w", f[0], err)
		}
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   parseFloat(f[1]),
			Close:  parseFloat(f[2]),
			High:   parseFloat(f[3]),
			Low:    parseFloat(f[4]),
			Volume: parseFloat(f[5]) * volScale,
			Amount: parseFloat(f[6]),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

type emQuoteResp struct {
	RC   int                    `json:"rc"`
	Data map[string]interface{} `json:"data"`
}

func (p *EastmoneyProvider) fetchQuoteFields(ctx context.Context, info SymbolInfo, fields string) (map[string]interface{}, error) {
	id, err := secID(info)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s?secid=%s&fltt=2&invt=2&fields=%s", p.QuoteURL, url.QueryEscape(id), fields)
	body, err := getBody(ctx, p.Client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("eastmoney quote: %w", err)
	}
	var resp emQuoteResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("eastmoney decode: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("eastmoney: empty quote")
	}
	return resp.Data, nil
}

func (p *EastmoneyProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	info := ParseSymbol(symbol)
	d, err := p.fetchQuoteFields(ctx, info, "f43,f44,f45,f46,f47,f48,f57,f58,f60,f86")
	if err != nil {
		return nil, err
	}
	price := toFloat(d["f43"])
	if price <= 0 {
		return nil, fmt.Errorf("eastmoney: no price (suspended or closed): %w", apperrors.ErrQuoteUnavailable)
	}
	volScale := 1.0
	if info.Market == model.MarketCN {
		volScale = 100
	}
	name, _ := d["f58"].(string)
	return &model.Quote{
		Symbol:    symbol,
		Name:      name,
		Price:     price,
		High:      toFloat(d["f44"]),
		Low:       toFloat(d["f45"]),
		Open:      toFloat(d["f46"]),
		Volume:    toFloat(d["f47"]) * volScale,
		Amount:    toFloat(d["f48"]),
		PrevClose: toFloat(d["f60"]),
		Time:      time.Unix(int64(toFloat(d["f86"])), 0).In(p.Zones.For(info.Market)),
		Source:    p.Name(),
	}, nil
}

// FetchValuation returns the dynamic PE and PB. For A-shares it adds the PEG
// (PE over the latest net profit growth) and the PE median of the stock's
// industry board; either may stay zero when its endpoint has nothing.
func (p *EastmoneyProvider) FetchValuation(ctx context.Context, symbol string) (*model.Valuation, error) {
	info := ParseSymbol(symbol)
	d, err := p.fetchQuoteFields(ctx, info, "f162,f167,f127,f198")
	if err != nil {
		return nil, err
	}
	v := &model.Valuation{PE: toFloat(d["f162"]), PB: toFloat(d["f167"])}
	if v.PE == 0 && v.PB == 0 {
		return nil, fmt.Errorf("eastmoney: no valuation fields: %w", apperrors.ErrInvalidData)
	}
	if info.Market != model.MarketCN || info.Index {
		return v, nil
	}
	v.Industry, _ = d["f127"].(string)

	if growth, err := p.profitGrowth(ctx, info.Code); err == nil {
		v.NetProfitGrowth = growth
		if v.PE > 0 && growth > 0 {
			v.PEG = math.Round(v.PE/growth*100) / 100
		}
	}
	if board, _ := d["f198"].(string); board != "" {
		if median, err := p.industryPEMedian(ctx, board); err == nil {
			v.IndustryPEMedian = median
		}
	}
	return v, nil
}

type emReportResp struct {
	Result *struct {
		Data []struct {
			ReportDate string      `json:"REPORTDATE"`
			Growth     interface{} `json:"SJLTZ"`
		} `json:"data"`
	} `json:"result"`
}

// profitGrowth returns the year-on-year net profit growth of the latest report, in percent.
func (p *EastmoneyProvider) profitGrowth(ctx context.Context, code string) (float64, error) {
	q := url.Values{}
	q.Set("reportName", "RPT_LICO_FN_CPD")
	q.Set("columns", "SECURITY_CODE,REPORTDATE,SJLTZ")
	q.Set("filter", fmt.Sprintf(`(SECURITY_CODE="%s")`, code))
	q.Set("sortColumns", "REPORTDATE")
	q.Set("sortTypes", "-1")
	q.Set("pageSize", "1")
	body, err := getBody(ctx, p.Client, p.ReportURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("eastmoney report: %w", err)
	}
	var resp emReportResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("eastmoney decode: %w", err)
	}
	if resp.Result == nil || len(resp.Result.Data) == 0 || resp.Result.Data[0].Growth == nil {
		return 0, fmt.Errorf("eastmoney: no report for %s: %w", code, apperrors.ErrInvalidData)
	}
	return toFloat(resp.Result.Data[0].Growth), nil
}

// industryPEMedian returns the cached PE median of board, fetching it at most
// once per board at a time.
func (p *EastmoneyProvider) industryPEMedian(ctx context.Context, board string) (float64, error) {
	p.mu.Lock()
	e, ok := p.medians[board]
	p.mu.Unlock()
	if ok && time.Since(e.at) < industryPETTL {
		return e.value, nil
	}

	v, err, _ := p.group.Do(board, func() (interface{}, error) {
		return p.fetchIndustryPEMedian(ctx, board)
	})
	if err != nil {
		return 0, err
	}
	median := v.(float64)

	p.mu.Lock()
	if p.medians == nil {
		p.medians = make(map[string]medianEntry)
	}
	p.medians[board] = medianEntry{value: median, at: time.Now()}
	p.mu.Unlock()
	return median, nil
}

type emBoardResp struct {
	Data *struct {
		Diff []map[string]interface{} `json:"diff"`
	} `json:"data"`
}

// minIndustrySample is the fewest profitable constituents a median is built from.
const minIndustrySample = 5

func (p *EastmoneyProvider) fetchIndustryPEMedian(ctx context.Context, board string) (float64, error) {
	u := fmt.Sprintf("%s?pn=1&pz=500&po=1&np=1&fltt=2&invt=2&fid=f3&fs=b:%s&fields=f12,f9",
		p.BoardURL, url.QueryEscape(board))
	body, err := getBody(ctx, p.Client, u, nil)
	if err != nil {
		return 0, fmt.Errorf("eastmoney board: %w", err)
	}
	var resp emBoardResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("eastmoney decode: %w", err)
	}
	if resp.Data == nil {
		return 0, fmt.Errorf("eastmoney: empty board %s: %w", board, apperrors.ErrInvalidData)
	}
	pes := make([]float64, 0, len(resp.Data.Diff))
	for _, row := range resp.Data.Diff {
		if pe := toFloat(row["f9"]); pe > 0 && pe < 10000 {
			pes = append(pes, pe)
		}
	}
	if len(pes) < minIndustrySample {
		return 0, fmt.Errorf("eastmoney: board %s has %d usable PEs: %w", board, len(pes), apperrors.ErrInvalidData)
	}
	return math.Round(median(pes)*100) / 100, nil
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

type emFlowResp struct {
	Data *struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

type emNorthResp struct {
	Data *struct {
		HK2SH struct {
			DayNetAmtIn float64 `json:"dayNetAmtIn"`
		} `json:"hk2sh"`
		HK2SZ struct {
			DayNetAmtIn float64 `json:"dayNetAmtIn"`
		} `json:"hk2sz"`
	} `json:"data"`
}

// FetchFundFlow returns today's main-force net inflow and the northbound net inflow.
// Each half is optional; an error is returned only when both are missing.
func (p *EastmoneyProvider) FetchFundFlow(ctx context.Context, symbol string) (*model.FundFlow, error) {
	info := ParseSymbol(symbol)
	flow := &model.FundFlow{}
	var errs []string

	if id, err := secID(info); err == nil {
		u := fmt.Sprintf("%s?lmt=1&klt=101&secid=%s&fields1=f1,f2,f3,f7&fields2=f51,f52,f53,f54,f55,f56",
			p.FundFlowURL, url.QueryEscape(id))
		if body, err := getBody(ctx, p.Client, u, nil); err != nil {
			errs = append(errs, err.Error())
		} else {
			var resp emFlowResp
			if err := json.Unmarshal(body, &resp); err == nil && resp.Data != nil && len(resp.Data.Klines) > 0 {
				f := strings.Split(resp.Data.Klines[len(resp.Data.Klines)-1], ",")
				if len(f) >= 2 {
					flow.MainNetInflow = parseFloat(f[1]) / 1e4
					flow.HasMainInflow = true
				}
			}
		}
	}

	if info.Market == model.MarketCN {
		u := p.NorthURL + "?fields1=f1,f2,f3,f4&fields2=f51,f52,f53,f54,f63"
		if body, err := getBody(ctx, p.Client, u, nil); err != nil {
			errs = append(errs, err.Error())
		} else {
			var resp emNorthResp
			if err := json.Unmarshal(body, &resp); err == nil && resp.Data != nil {
				flow.IndexNetInflow = (resp.Data.HK2SH.DayNetAmtIn + resp.Data.HK2SZ.DayNetAmtIn) / 1e4
				flow.HasIndexInflow = true
			}
		}
	}

	if !flow.HasMainInflow && !flow.HasIndexInflow {
		return nil, fmt.Errorf("eastmoney fund flow unavailable [%s]: %w", strings.Join(errs, "; "), apperrors.ErrInvalidData)
	}
	return flow, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
