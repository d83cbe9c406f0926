package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-stockblog/internal/models"
)

// getStockData handles GET /stocks/api/data/:ticker
func (s *WebServer) getStockData(c *gin.Context) {
	ticker := c.Param("ticker")
	if !s.Tickers.Contains(ticker) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msgStockNotTracked})
		return
	}

	c.JSON(http.StatusOK, models.StockDataResponse{
		Ticker:     ticker,
		Current:    s.currentPrice(c, ticker),
		Historical: s.historicalRange(c, ticker),
	})
}
