package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/go-while/go-stockblog/internal/config"
	"github.com/go-while/go-stockblog/internal/market"
)

var (
	configFile = flag.String("config", "", "optional YAML config file")
	apiKey     = flag.String("apikey", "", "polygon.io API key (default: $POLYGON_API_KEY)")
	tickers    = flag.String("tickers", "", "comma separated tracked tickers (default: NVDA,AAPL)")

	// replaced in tests
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Commands are all subcommands of stocks
var Commands = []subcommands.Command{
	&quoteCmd{},
	&profileCmd{},
	&historyCmd{},
}

// loadConfig returns the effective configuration: defaults, -config, flags, environment
func loadConfig() (*config.MainConfig, error) {
	c := config.NewDefaultConfig()
	if *configFile != "" {
		if err := c.LoadFile(*configFile); err != nil {
			return nil, err
		}
	}
	if *apiKey != "" {
		c.Market.APIKey = *apiKey
	}
	if c.Market.APIKey == "" {
		c.Market.APIKey = os.Getenv("POLYGON_API_KEY")
	}
	if *tickers != "" {
		c.Market.Tickers = strings.Split(*tickers, ",")
	}
	if c.Market.APIKey == "" {
		return nil, fmt.Errorf("no API key: use -apikey or set POLYGON_API_KEY")
	}
	return c, nil
}

// gatewayFor validates the single ticker argument against the allow-list
func gatewayFor(f *flag.FlagSet, args []any) (*market.Gateway, *config.MainConfig, string, error) {
	if f.NArg() != 1 {
		return nil, nil, "", fmt.Errorf("expected exactly one TICKER argument")
	}
	c, err := loadConfig()
	if err != nil {
		return nil, nil, "", err
	}
	ticker := f.Arg(0)
	if !c.AllowList().Contains(ticker) {
		return nil, nil, "", fmt.Errorf("%s: Stock not tracked", ticker)
	}

	opts := []market.Option{market.WithHistoryLimit(c.Market.HistoryLimit)}
	for _, a := range args {
		if opt, ok := a.(market.Option); ok {
			opts = append(opts, opt)
		}
	}
	return market.New(c.Market.APIKey, opts...), c, ticker, nil
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(stderr, err)
	return subcommands.ExitFailure
}

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "print the previous session snapshot of a ticker" }
func (*quoteCmd) Usage() string {
	return `stocks quote TICKER

  Prints price, volume and change versus the session open as JSON.
`
}
func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	g, _, ticker, err := gatewayFor(f, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}
	snap, err := g.CurrentPrice(ctx, ticker)
	if err != nil {
		return fail(err)
	}
	return printJSON(snap)
}

type profileCmd struct{}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "print company reference data of a ticker" }
func (*profileCmd) Usage() string {
	return `stocks profile TICKER
`
}
func (*profileCmd) SetFlags(*flag.FlagSet) {}

func (*profileCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	g, _, ticker, err := gatewayFor(f, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}
	profile, err := g.CompanyProfile(ctx, ticker)
	if err != nil {
		return fail(err)
	}
	return printJSON(profile)
}

type historyCmd struct {
	days int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print daily bars of a ticker" }
func (*historyCmd) Usage() string {
	return `stocks history [-days N] TICKER

  Prints up to the configured history limit of daily bars, oldest first.
`
}

func (h *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&h.days, "days", 0, "window length in days (default: history_days from config, 30)")
}

func (h *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	g, c, ticker, err := gatewayFor(f, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}
	days := h.days
	if days <= 0 {
		days = c.Market.HistoryDays
	}
	points, err := g.HistoricalRange(ctx, ticker, days)
	if err != nil {
		return fail(err)
	}
	return printJSON(points)
}
