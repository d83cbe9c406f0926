// Package market fetches quote, reference and history data for tracked tickers from polygon.io
package market

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	stockmodels "github.com/go-while/go-stockblog/internal/models"
)

const (
	DefaultHistoryDays  = 30
	DefaultHistoryLimit = 120

	statusOK   = "OK"
	dateLayout = "2006-01-02"
)

const (
	opCurrentPrice    = "current_price"
	opCompanyProfile  = "company_profile"
	opHistoricalRange = "historical_range"
)

var hundred = decimal.NewFromInt(100)

// Gateway wraps the polygon.io REST client.
// Every lookup issues exactly one request. Nothing is cached and the SDK's retries are switched off.
type Gateway struct {
	client       *polygon.Client
	httpClient   *http.Client
	historyLimit int
	now          func() time.Time
	loc          *time.Location
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient makes the polygon client send its requests through hc
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gateway) { g.httpClient = hc }
}

// WithHistoryLimit caps the number of points HistoricalRange returns
func WithHistoryLimit(limit int) Option {
	return func(g *Gateway) {
		if limit > 0 {
			g.historyLimit = limit
		}
	}
}

// WithClock replaces time.Now for the end of historical windows
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLocation sets the zone trading dates are formatted in, default time.Local
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// New creates a Gateway authenticating with apiKey
func New(apiKey string, opts ...Option) *Gateway {
	g := &Gateway{
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		loc:          time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient != nil {
		g.client = polygon.NewWithClient(apiKey, g.httpClient)
	} else {
		g.client = polygon.New(apiKey)
	}
	// all sub clients share one resty client
	g.client.AggsClient.HTTP.SetRetryCount(0).SetLogger(restyLogger{})
	return g
}

// restyLogger routes the HTTP client's own messages into the [MARKET]: log
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) { log.Printf("[MARKET]: "+format, v...) }
func (restyLogger) Warnf(format string, v ...any)  { log.Printf("[MARKET]: WARN: "+format, v...) }
func (restyLogger) Debugf(format string, v ...any) {}

// CurrentPrice returns the aggregate of the most recently completed trading session
func (g *Gateway) CurrentPrice(ctx context.Context, ticker string) (*stockmodels.QuoteSnapshot, error) {
	res, err := g.client.GetPreviousCloseAgg(ctx, &models.GetPreviousCloseAggParams{Ticker: ticker})
	if err != nil {
		return nil, upstream(opCurrentPrice, ticker, err)
	}
	if res.Status != statusOK {
		return nil, upstream(opCurrentPrice, ticker, fmt.Errorf("status %q", res.Status))
	}
	if len(res.Results) == 0 {
		return nil, noData(opCurrentPrice, ticker)
	}

	agg := res.Results[0]
	change, changePercent, err := sessionChange(agg.Open, agg.Close)
	if err != nil {
		return nil, &GatewayError{Op: opCurrentPrice, Ticker: ticker, Err: err}
	}

	return &stockmodels.QuoteSnapshot{
		Ticker:        ticker,
		Price:         agg.Close,
		Volume:        agg.Volume,
		Change:        change,
		ChangePercent: changePercent,
		Date:          g.formatDate(agg.Timestamp),
	}, nil
}

// CompanyProfile returns the reference metadata of ticker
func (g *Gateway) CompanyProfile(ctx context.Context, ticker string) (*stockmodels.CompanyProfile, error) {
	res, err := g.client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: ticker})
	if err != nil {
		return nil, upstream(opCompanyProfile, ticker, err)
	}
	if res.Status != statusOK {
		return nil, upstream(opCompanyProfile, ticker, fmt.Errorf("status %q", res.Status))
	}

	r := res.Results
	return &stockmodels.CompanyProfile{
		Name:           r.Name,
		Description:    r.Description,
		HomepageURL:    r.HomepageURL,
		MarketCap:      float64(r.MarketCap),
		TotalEmployees: int64(r.TotalEmployees),
	}, nil
}

// HistoricalRange returns daily bars for [now-days, now] in ascending order.
// days <= 0 uses DefaultHistoryDays. One request is sent, further pages are not followed.
// The slice is never nil, also not on error, and holds at most the configured history limit of points.
func (g *Gateway) HistoricalRange(ctx context.Context, ticker string, days int) ([]stockmodels.HistoricalPoint, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	end := g.now()
	start := end.AddDate(0, 0, -days)

	order := models.Asc
	limit := g.historyLimit
	res, err := g.client.GetAggs(ctx, &models.GetAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
		Order:      &order,
		Limit:      &limit,
	})
	if err != nil {
		return []stockmodels.HistoricalPoint{}, upstream(opHistoricalRange, ticker, err)
	}
	if res.Status != statusOK {
		return []stockmodels.HistoricalPoint{}, upstream(opHistoricalRange, ticker, fmt.Errorf("status %q", res.Status))
	}

	aggs := res.Results
	if len(aggs) > limit {
		aggs = aggs[:limit]
	}
	points := make([]stockmodels.HistoricalPoint, 0, len(aggs))
	for _, agg := range aggs {
		points = append(points, stockmodels.HistoricalPoint{
			Date:   g.formatDate(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}
	return points, nil
}

func (g *Gateway) formatDate(ts models.Millis) string {
	return time.Time(ts).In(g.loc).Format(dateLayout)
}

// sessionChange returns closePrice-openPrice and the same relative to openPrice in percent
func sessionChange(openPrice, closePrice float64) (change, changePercent float64, err error) {
	o := decimal.NewFromFloat(openPrice)
	if o.IsZero() {
		return 0, 0, ErrZeroOpen
	}
	diff := decimal.NewFromFloat(closePrice).Sub(o)
	return diff.InexactFloat64(), diff.Div(o).Mul(hundred).InexactFloat64(), nil
}

// LogFailure logs err unless it only reports missing data. requestID may be empty.
func LogFailure(requestID string, err error) {
	if err == nil || isNoData(err) {
		return
	}
	if requestID != "" {
		log.Printf("[MARKET]: req=%s %v", requestID, err)
		return
	}
	log.Printf("[MARKET]: %v", err)
}
