package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	apperrors "TrendSentinel/internal/errors"
	"TrendSentinel/internal/model"
)

// RESTProvider implements Provider against a self-hosted bar service
// exposing /api/v1/bars/daily and /api/v1/quote.
type RESTProvider struct {
	BaseURL  string
	APIKey   string
	Client   *http.Client
	Zones    MarketZones
}

// NewRESTProvider creates a new provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string, zones MarketZones) *RESTProvider {
	return &RESTProvider{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Client:   newHTTPClient(proxyURL, 30*time.Second),
		Zones:    zones,
	}
}

func (f *RESTProvider) Name() string { return "rest" }

// restBar is the expected JSON shape from the bar service.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
}

type restQuote struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev_close"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

func (f *RESTProvider) headers() map[string]string {
	if f.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + f.APIKey}
}

func (f *RESTProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.DailyBar, error) {
	if f.BaseURL == "" {
		return nil, fmt.Errorf("rest: base url not configured: %w", apperrors.ErrNotSupported)
	}
	loc := f.Zones.ForSymbol(symbol)
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&start=%s&end=%s", f.BaseURL,
		url.QueryEscape(symbol), start.In(loc).Format("2006-01-02"), end.In(loc).Format("2006-01-02"))
	body, err := getBody(ctx, f.Client, endpoint, f.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	var rb []restBar
	if err := json.Unmarshal(body, &rb); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.DailyBar, len(rb))
	for i, b := range rb {
		bars[i] = model.DailyBar{
			Date:   model.DateOf(time.Unix(b.Timestamp, 0), loc),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Amount: b.Amount,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (f *RESTProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	if f.BaseURL == "" {
		return nil, fmt.Errorf("rest: base url not configured: %w", apperrors.ErrNotSupported)
	}
	endpoint := fmt.Sprintf("%s/api/v1/quote?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	body, err := getBody(ctx, f.Client, endpoint, f.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	var rq restQuote
	if err := json.Unmarshal(body, &rq); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if rq.Price <= 0 {
		return nil, fmt.Errorf("rest: no price: %w", apperrors.ErrQuoteUnavailable)
	}
	return &model.Quote{
		Symbol:    symbol,
		Name:      rq.Name,
		Price:     rq.Price,
		Open:      rq.Open,
		High:      rq.High,
		Low:       rq.Low,
		PrevClose: rq.PrevClose,
		Volume:    rq.Volume,
		Amount:    rq.Amount,
		Time:      time.Unix(rq.Timestamp, 0).In(f.Zones.ForSymbol(symbol)),
		Source:    f.Name(),
	}, nil
}
