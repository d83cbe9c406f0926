// Package models defines core data structures for go-stockblog
package models

import (
	"time"
)

// Post represents a blog entry in the posts table
type Post struct {
	ID      int64     `json:"id" db:"id"`
	Title   string    `json:"title" db:"title"`
	Content string    `json:"content" db:"content"`
	Created time.Time `json:"created" db:"created"` // set by the store on insert, never updated
}

// QuoteSnapshot is the previous-session aggregate of a tracked ticker.
// Change and ChangePercent are relative to the session's opening price.
type QuoteSnapshot struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Date          string  `json:"timestamp"` // trading date, YYYY-MM-DD
}

// CompanyProfile holds reference metadata of a ticker
type CompanyProfile struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	HomepageURL    string  `json:"homepage_url"`
	MarketCap      float64 `json:"market_cap"`
	TotalEmployees int64   `json:"total_employees"`
}

// HistoricalPoint is one daily bar of a historical range
type HistoricalPoint struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// StockOverview pairs the snapshot and profile of one ticker on the stocks index page
type StockOverview struct {
	Ticker  string
	Price   *QuoteSnapshot
	Company *CompanyProfile
}

// StockDataResponse is the JSON body of the stock data API
type StockDataResponse struct {
	Ticker     string            `json:"ticker"`
	Current    *QuoteSnapshot    `json:"current"`
	Historical []HistoricalPoint `json:"historical"`
}

// ErrorResponse is the JSON body for API errors
type ErrorResponse struct {
	Error string `json:"error"`
}
