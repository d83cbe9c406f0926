// Package web provides the HTTP server and web interface for go-stockblog
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/go-while/go-stockblog/internal/config"
	"github.com/go-while/go-stockblog/internal/models"
)

const requestIDHeader = "X-Request-ID"

// PostStore is the blog persistence the web server needs
type PostStore interface {
	CreatePost(ctx context.Context, title, content string) (int64, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context) ([]*models.Post, error)
	UpdatePost(ctx context.Context, id int64, title, content string) error
	DeletePost(ctx context.Context, id int64) (*models.Post, error)
}

// MarketData is the quote provider the stocks pages read from
type MarketData interface {
	CurrentPrice(ctx context.Context, ticker string) (*models.QuoteSnapshot, error)
	CompanyProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error)
	HistoricalRange(ctx context.Context, ticker string, days int) ([]models.HistoricalPoint, error)
}

// WebServer represents the web server
type WebServer struct {
	Store   PostStore
	Market  MarketData
	Router  *gin.Engine
	Config  *config.MainConfig
	Tickers config.AllowList

	StartTime     time.Time // set by Start, logged on Shutdown
	templates     map[string]*template.Template
	flash         *flashSigner
	httpServer    *http.Server
	robotsTxtPath string // Path to robots.txt file if it exists
}

// NewServer creates a new web server instance
func NewServer(store PostStore, market MarketData, cfg *config.MainConfig) *WebServer {
	if cfg.Web.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &WebServer{
		Store:     store,
		Market:    market,
		Config:    cfg,
		Tickers:   cfg.AllowList(),
		templates: mustLoadTemplates(),
		flash:     newFlashSigner(cfg.Web.SecretKey),
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(server.ApacheLogFormat(), gin.Recovery())

	// Configure Gin to trust reverse proxy headers
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if cfg.Web.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))
	router.Use(server.ReverseProxyMiddleware())
	router.Use(server.RequestIDMiddleware())

	if cfg.Web.Debug {
		if files, err := ListEmbeddedFiles(); err != nil {
			log.Printf("[WEB]: Failed to list embedded static files: %v", err)
		} else {
			log.Printf("[WEB]: Embedded static files: %v", files)
		}
	}

	robotsPath := "./web/robots.txt"
	if _, err := os.Stat(robotsPath); err == nil {
		server.robotsTxtPath = robotsPath
		log.Printf("[WEB]: Found robots.txt file at: %s", robotsPath)
	}

	server.Router = router
	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))
	s.Router.GET("/robots.txt", func(c *gin.Context) {
		if s.robotsTxtPath != "" {
			c.File(s.robotsTxtPath)
			return
		}
		c.String(http.StatusOK, "User-agent: *\nDisallow:\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	// Stocks
	s.Router.GET("/stocks", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/stocks/")
	})
	stocks := s.Router.Group("/stocks")
	{
		stocks.GET("/", s.stocksIndexPage)
		stocks.GET("/detail/:ticker", s.stockDetailPage)
		stocks.GET("/api/data/:ticker", s.getStockData)
	}

	// Blog
	s.Router.GET("/", s.indexPage)
	s.Router.GET("/create", s.createPage)
	s.Router.POST("/create", s.createSubmit)
	s.Router.GET("/:id", s.postPage)
	s.Router.GET("/:id/edit", s.editPage)
	s.Router.POST("/:id/edit", s.editSubmit)
	s.Router.POST("/:id/delete", s.deleteSubmit)

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page not found", c.Request.URL.Path)
	})
}

// Start starts the web server with SSL support if configured.
// It returns nil once Shutdown has been called.
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.Web.ListenPort)
	s.StartTime = time.Now()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.Config.Web.SSL {
		if s.Config.Web.CertFile == "" || s.Config.Web.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.httpServer.ListenAndServeTLS(s.Config.Web.CertFile, s.Config.Web.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for active requests until ctx expires
func (s *WebServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Printf("[WEB]: Shutting down after %s", time.Since(s.StartTime).Round(time.Second))
	return s.httpServer.Shutdown(ctx)
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Take the first IP from the list (original client)
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if clientIP := strings.TrimSpace(ips[0]); clientIP != "" {
				c.Request.RemoteAddr = clientIP + ":0"
			}
		}
		if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
			c.Request.RemoteAddr = realIP + ":0"
		}
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}

		c.Next()
	}
}

// RequestIDMiddleware keeps a sane incoming X-Request-ID or assigns a new one
func (s *WebServer) RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 || strings.ContainsAny(id, " \t\r\n") {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDHeader)
}

func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s" %s`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
			param.Latency,
		)
	})
}
