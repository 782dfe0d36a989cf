// Command execution for the booksearch CLI.
//
// Information Hiding:
// - Flow dispatch (search, grab, cache maintenance) hidden behind Run
// - Prompt and spinner handling hidden
// - Output formatting hidden

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/richinex/booksearch/model"
	"github.com/richinex/booksearch/prowlarr"
	"github.com/richinex/booksearch/storage"
)

// Prowlarr is the subset of the service client the CLI uses.
type Prowlarr interface {
	ResolveTags(ctx context.Context) (prowlarr.Tags, error)
	Search(ctx context.Context, q prowlarr.Query) ([]model.Release, error)
	Grab(ctx context.Context, guid string, indexerID int) (model.Release, error)
	DownloadClients(ctx context.Context) ([]prowlarr.DownloadClient, error)
	Stats() prowlarr.Stats
}

// Options holds the parsed command line.
type Options struct {
	Terms    []string
	Kind     model.Kind
	Protocol model.Protocol
	Headless bool

	SearchID   int // -1 when not given
	Grab       int // 0 when not given
	SearchLast bool

	ListCache   bool
	ListCacheID int // -1 lists every search
	ClearCache  bool

	Debug bool
}

// DefaultOptions returns options with nothing selected.
func DefaultOptions() Options {
	return Options{
		Kind:        model.KindBoth,
		Protocol:    model.ProtocolAny,
		SearchID:    -1,
		ListCacheID: -1,
	}
}

// App wires the cache, the service client and the terminal together.
type App struct {
	Store   storage.Store
	Client  Prowlarr
	Limits  storage.Limits
	Logger  *slog.Logger
	Program string // name shown in usage hints

	In  io.Reader
	Out io.Writer

	// Spinner enables the progress spinner. Callers set it only when Out
	// is a terminal.
	Spinner bool
	Now     func() time.Time
}

// NewApp creates an app writing to stdout and reading from stdin.
func NewApp(store storage.Store, client Prowlarr, limits storage.Limits, logger *slog.Logger) *App {
	return &App{
		Store:   store,
		Client:  client,
		Limits:  limits,
		Logger:  logger,
		Program: "booksearch",
		In:      os.Stdin,
		Out:     os.Stdout,
		Spinner: IsTerminal(os.Stdout),
		Now:     time.Now,
	}
}

// Run executes the flow selected by opts.
func (a *App) Run(ctx context.Context, opts Options) error {
	a.defaults()
	start := a.Now()

	// Grab paths act on existing records and never sweep the cache.
	switch {
	case opts.SearchLast && opts.Grab > 0:
		return a.GrabLatest(ctx, opts.Grab, opts.Debug)
	case opts.SearchID >= 0 && opts.Grab > 0:
		return a.GrabFromSearch(ctx, opts.SearchID, opts.Grab, opts.Debug)
	}

	if err := a.Cleanup(ctx); err != nil {
		return err
	}

	switch {
	case opts.ListCache && opts.ListCacheID >= 0:
		return a.ShowCached(ctx, opts.ListCacheID)
	case opts.ListCache:
		return a.ListCached(ctx)
	case opts.ClearCache:
		return a.ClearCache(ctx)
	}

	var err error
	if len(opts.Terms) == 0 {
		err = a.Interactive(ctx, opts)
	} else {
		err = a.SearchTerms(ctx, opts)
	}
	if opts.Debug {
		a.logStats(start)
	}
	return err
}

// Cleanup applies the retention limits and logs what was removed.
func (a *App) Cleanup(ctx context.Context) error {
	report, err := a.Store.Cleanup(ctx, a.Limits)
	if err != nil {
		return err
	}
	if report.Removed() > 0 {
		a.Logger.Debug("cache cleanup",
			"expired", len(report.Expired),
			"evicted", len(report.Evicted),
			"discarded", len(report.Discarded),
			"remaining", report.Remaining,
			"bytes", report.Bytes,
		)
	}
	return nil
}

func (a *App) defaults() {
	if a.Logger == nil {
		a.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.Program == "" {
		a.Program = "booksearch"
	}
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
}

func (a *App) logStats(start time.Time) {
	stats := a.Client.Stats()
	args := []any{
		"runtime", a.Now().Sub(start).Round(time.Millisecond),
		"requests", stats.Requests,
		"errors", stats.Errors,
		"mean_latency", stats.MeanLatency().Round(time.Millisecond),
	}
	if stats.LastError != nil {
		args = append(args,
			"last_error", stats.LastError.Message,
			"last_error_endpoint", stats.LastError.Endpoint,
			"last_error_status", stats.LastError.Status,
		)
	}
	a.Logger.Debug("api statistics", args...)
}
