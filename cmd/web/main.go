// Web server for go-stockblog: blog posts plus polygon.io stock pages
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"golang.org/x/term"

	"github.com/go-while/go-stockblog/internal/config"
	"github.com/go-while/go-stockblog/internal/database"
	"github.com/go-while/go-stockblog/internal/market"
	"github.com/go-while/go-stockblog/internal/web"
)

const shutdownTimeout = 10 * time.Second

var (
	// command-line flags
	configFile  string
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	secretKey   string
	dataDir     string
	apiKey      string
	tickers     string
	historyDays int
	debug       bool
	pprofAddr   string
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configFile, "config", "", "optional YAML config file (/path/to/stockblog.yaml)")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: 5000)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&secretKey, "secret", "", "secret key signing flash messages")
	flag.StringVar(&dataDir, "data", "", "Directory holding database.db (default: ./data)")
	flag.StringVar(&apiKey, "apikey", "", "polygon.io API key (default: $POLYGON_API_KEY)")
	flag.StringVar(&tickers, "tickers", "", "comma separated list of tracked tickers (default: NVDA,AAPL)")
	flag.IntVar(&historyDays, "historydays", 0, "days of history on the detail page (default: 30)")
	flag.BoolVar(&debug, "debug", false, "gin debug mode and verbose market logging")
	flag.StringVar(&pprofAddr, "pprof", "", "serve the profiler on this address, e.g. :51111 (default: off)")
	flag.Parse()

	log.Printf("Starting go-stockblog: Web Server (version: %s)", appVersion)

	mainConfig := config.NewDefaultConfig()
	if configFile != "" {
		if err := mainConfig.LoadFile(configFile); err != nil {
			log.Fatalf("[WEB]: %v", err)
		}
	}
	applyFlags(mainConfig)

	if mainConfig.Market.APIKey == "" {
		mainConfig.Market.APIKey = os.Getenv("POLYGON_API_KEY")
	}
	if mainConfig.Market.APIKey == "" {
		key, err := promptAPIKey()
		if err != nil {
			log.Printf("[WEB]: WARNING: no polygon.io API key: %v. Stock pages will show no data.", err)
		}
		mainConfig.Market.APIKey = key
	}

	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}
	if mainConfig.Web.SecretKey == config.DefaultSecretKey {
		log.Printf("[WEB]: WARNING: using the built-in development secret key, set -secret in production")
	}
	log.Printf("[WEB]: Using WEB configuration: port=%d ssl=%t debug=%t", mainConfig.Web.ListenPort, mainConfig.Web.SSL, mainConfig.Web.Debug)
	log.Printf("[WEB]: Tracking tickers: %s", strings.Join(mainConfig.AllowList().Symbols(), ","))

	if pprofAddr != "" {
		profiler := prof.NewProf()
		go profiler.PprofWeb(pprofAddr)
		log.Printf("[WEB]: Profiler listening on %s", pprofAddr)
	}

	dbconfig := database.DefaultDBConfig()
	dbconfig.DataDir = mainConfig.Database.DataDir
	dbconfig.File = mainConfig.Database.File
	dbconfig.SkipMigrate = true // the schema is provisioned by init-db
	db, err := database.OpenDatabase(dbconfig)
	if err != nil {
		log.Fatalf("[WEB]: Failed to open database %s: %v", filepath.Join(dbconfig.DataDir, dbconfig.File), err)
	}

	gateway := market.New(mainConfig.Market.APIKey, market.WithHistoryLimit(mainConfig.Market.HistoryLimit))
	server := web.NewServer(db, gateway, mainConfig)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		webServerErrChan <- server.Start()
	}()
	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	select {
	case sig := <-sigChan:
		log.Printf("[WEB]: Received %s, initiating graceful shutdown...", sig)
	case err := <-webServerErrChan:
		if err != nil {
			db.Close()
			log.Fatalf("[WEB]: Failed to start web server: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during web server shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Fatalf("[WEB]: Failed to shutdown database: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
} // end main

// applyFlags overrides config values with command-line flags that were provided
func applyFlags(c *config.MainConfig) {
	if webport > 0 {
		c.Web.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webport)
	}
	if webssl {
		c.Web.SSL = true
	}
	if webcertFile != "" {
		c.Web.CertFile = webcertFile
	}
	if webkeyFile != "" {
		c.Web.KeyFile = webkeyFile
	}
	if secretKey != "" {
		c.Web.SecretKey = secretKey
	}
	if debug {
		c.Web.Debug = true
	}
	if dataDir != "" {
		c.Database.DataDir = dataDir
	}
	if apiKey != "" {
		c.Market.APIKey = apiKey
	}
	if tickers != "" {
		c.Market.Tickers = strings.Split(tickers, ",")
	}
	if historyDays > 0 {
		c.Market.HistoryDays = historyDays
	}
}

// promptAPIKey reads the key from the terminal without echo
func promptAPIKey() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	fmt.Print("Enter polygon.io API key: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %v", err)
	}
	return strings.TrimSpace(string(key)), nil
}
