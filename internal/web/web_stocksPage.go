package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-stockblog/internal/market"
	"github.com/go-while/go-stockblog/internal/models"
)

const msgStockNotTracked = "Stock not tracked"

// StocksIndexPageData represents data for the stocks overview
type StocksIndexPageData struct {
	TemplateData
	Stocks []models.StockOverview
}

// StockDetailPageData represents data for a single stock.
// Price and Company are nil when the provider had nothing or failed.
type StockDetailPageData struct {
	TemplateData
	Ticker     string
	Price      *models.QuoteSnapshot
	Company    *models.CompanyProfile
	Historical []models.HistoricalPoint
}

// stocksIndexPage lists every tracked ticker for which both the snapshot and the profile are available
func (s *WebServer) stocksIndexPage(c *gin.Context) {
	stocks := make([]models.StockOverview, 0, s.Tickers.Len())
	for _, ticker := range s.Tickers.Symbols() {
		price := s.currentPrice(c, ticker)
		company := s.companyProfile(c, ticker)
		if price == nil || company == nil {
			continue
		}
		stocks = append(stocks, models.StockOverview{Ticker: ticker, Price: price, Company: company})
	}

	s.renderTemplate(c, http.StatusOK, "stocks_index.html", StocksIndexPageData{
		TemplateData: s.getBaseTemplateData(c, "Stocks"),
		Stocks:       stocks,
	})
}

func (s *WebServer) stockDetailPage(c *gin.Context) {
	ticker := c.Param("ticker")
	if !s.Tickers.Contains(ticker) {
		c.String(http.StatusNotFound, msgStockNotTracked)
		return
	}

	s.renderTemplate(c, http.StatusOK, "stocks_detail.html", StockDetailPageData{
		TemplateData: s.getBaseTemplateData(c, ticker),
		Ticker:       ticker,
		Price:        s.currentPrice(c, ticker),
		Company:      s.companyProfile(c, ticker),
		Historical:   s.historicalRange(c, ticker),
	})
}

// currentPrice returns nil on any gateway failure
func (s *WebServer) currentPrice(c *gin.Context, ticker string) *models.QuoteSnapshot {
	price, err := s.Market.CurrentPrice(c.Request.Context(), ticker)
	if err != nil {
		s.logMarketError(c, err)
		return nil
	}
	return price
}

// companyProfile returns nil on any gateway failure
func (s *WebServer) companyProfile(c *gin.Context, ticker string) *models.CompanyProfile {
	company, err := s.Market.CompanyProfile(c.Request.Context(), ticker)
	if err != nil {
		s.logMarketError(c, err)
		return nil
	}
	return company
}

// historicalRange never returns nil
func (s *WebServer) historicalRange(c *gin.Context, ticker string) []models.HistoricalPoint {
	points, err := s.Market.HistoricalRange(c.Request.Context(), ticker, s.Config.Market.HistoryDays)
	if err != nil {
		s.logMarketError(c, err)
		return []models.HistoricalPoint{}
	}
	if points == nil {
		return []models.HistoricalPoint{}
	}
	return points
}

func (s *WebServer) logMarketError(c *gin.Context, err error) {
	if errors.Is(err, market.ErrNoData) {
		if s.Config.Web.Debug {
			log.Printf("[MARKET]: req=%s %v", requestID(c), err)
		}
		return
	}
	market.LogFailure(requestID(c), err)
}
