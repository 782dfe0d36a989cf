package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/richinex/booksearch/model"
)

// GrabFromSearch sends the n-th result (in size order) of a cached search
// to the download client.
func (a *App) GrabFromSearch(ctx context.Context, id, n int, debug bool) error {
	rec, err := a.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	release, err := model.Select(rec.Results, n)
	if err != nil {
		return err
	}
	a.Logger.Debug("grab operation", "search_id", id, "result", n, "guid", release.GUID(), "indexer_id", release.IndexerID())

	if debug {
		a.logDownloadClients(ctx)
	}
	return a.grab(ctx, release)
}

// GrabLatest is GrabFromSearch on the most recently stored search.
func (a *App) GrabLatest(ctx context.Context, n int, debug bool) error {
	rec, err := a.Store.Latest(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Using most recent search #%d\n", rec.ID)
	return a.GrabFromSearch(ctx, rec.ID, n, debug)
}

// ListCached prints a summary of every cached search, oldest id first.
func (a *App) ListCached(ctx context.Context) error {
	records, err := a.Store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "No cached searches found")
		return nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	renderCacheList(a.Out, records, a.Now(), a.Program)
	return nil
}

// ShowCached renders a cached search without prompting.
func (a *App) ShowCached(ctx context.Context, id int) error {
	rec, err := a.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "\n📚 Showing cached results for search #%d\n", id)
	fmt.Fprintf(a.Out, "🔍 Term: %s\n", rec.Term)
	renderResults(a.Out, model.SortBySize(rec.Results), id, a.Program)
	return nil
}

// ClearCache removes every cached search.
func (a *App) ClearCache(ctx context.Context) error {
	if err := a.Store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Cache cleared successfully")
	return nil
}

func (a *App) grab(ctx context.Context, release model.Release) error {
	if _, err := a.Client.Grab(ctx, release.GUID(), release.IndexerID()); err != nil {
		return err
	}
	renderGrabbed(a.Out, release)
	return nil
}

func (a *App) logDownloadClients(ctx context.Context) {
	clients, err := a.Client.DownloadClients(ctx)
	if err != nil {
		a.Logger.Debug("cannot list download clients", "error", err)
		return
	}
	for _, dc := range clients {
		a.Logger.Debug("download client", "name", dc.Name, "protocol", dc.Protocol, "implementation", dc.Implementation, "priority", dc.Priority)
	}
}
