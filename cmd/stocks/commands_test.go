package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-while/go-stockblog/internal/market"
	"github.com/go-while/go-stockblog/internal/models"
)

type redirect struct {
	target *url.URL
	calls  atomic.Int32
}

func (rt *redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls.Add(1)
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func setup(t *testing.T) (*redirect, *bytes.Buffer) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/aggs/ticker/{ticker}/prev", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","results":[{"o":50,"c":55,"v":10,"t":1700000000000}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	require.NoError(t, flag.Set("apikey", "test-key"))
	t.Cleanup(func() { flag.Set("apikey", "") })

	out := &bytes.Buffer{}
	stdout, stderr = out, &bytes.Buffer{}
	return &redirect{target: target}, out
}

func run(t *testing.T, cmd subcommands.Command, rt http.RoundTripper, argv ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(argv))
	return cmd.Execute(context.Background(), f, market.WithHTTPClient(&http.Client{Transport: rt}))
}

func TestQuoteCmd(t *testing.T) {
	rt, out := setup(t)

	status := run(t, &quoteCmd{}, rt, "NVDA")
	require.Equal(t, subcommands.ExitSuccess, status)

	var snap models.QuoteSnapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "NVDA", snap.Ticker)
	assert.Equal(t, 55.0, snap.Price)
	assert.Equal(t, 5.0, snap.Change)
	assert.Equal(t, 10.0, snap.ChangePercent)
}

func TestUntrackedTickerIsRejected(t *testing.T) {
	rt, out := setup(t)

	for _, cmd := range Commands {
		status := run(t, cmd, rt, "MSFT")
		assert.Equal(t, subcommands.ExitUsageError, status, cmd.Name())
	}
	assert.Zero(t, rt.calls.Load())
	assert.Empty(t, out.String())
}

func TestMissingTickerArgument(t *testing.T) {
	rt, _ := setup(t)
	assert.Equal(t, subcommands.ExitUsageError, run(t, &historyCmd{}, rt))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &quoteCmd{}, rt, "NVDA", "AAPL"))
}
