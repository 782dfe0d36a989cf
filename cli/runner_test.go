package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
	"github.com/richinex/booksearch/prowlarr"
	"github.com/richinex/booksearch/storage"
)

// Sizes are 10 MB, 500 KB and 1 GB, in response order.
const releasesJSON = `[
	{"guid":"g-10mb","indexerId":3,"indexer":"AudioTracker","title":"Dune (Audio)","size":10485760,"protocol":"torrent","seeders":4,"publishDate":"2024-05-01T10:00:00Z"},
	{"guid":"g-500kb","indexerId":5,"indexer":"BookNZB","title":"Dune","size":512000,"protocol":"usenet","grabs":9},
	{"guid":"g-1gb","indexerId":3,"indexer":"AudioTracker","title":"Dune Boxset","size":1073741824,"protocol":"torrent"}
]`

func testReleases(t *testing.T) []model.Release {
	t.Helper()
	var rs []model.Release
	require.NoError(t, json.Unmarshal([]byte(releasesJSON), &rs))
	return rs
}

type fakeClient struct {
	tags      prowlarr.Tags
	responses [][]model.Release
	queries   []prowlarr.Query
	grabs     []string
	grabErr   error
}

func (f *fakeClient) ResolveTags(ctx context.Context) (prowlarr.Tags, error) {
	return f.tags, nil
}

func (f *fakeClient) Search(ctx context.Context, q prowlarr.Query) ([]model.Release, error) {
	f.queries = append(f.queries, q)
	if len(f.responses) == 0 {
		return nil, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

func (f *fakeClient) Grab(ctx context.Context, guid string, indexerID int) (model.Release, error) {
	if f.grabErr != nil {
		return nil, f.grabErr
	}
	f.grabs = append(f.grabs, guid)
	return nil, nil
}

func (f *fakeClient) DownloadClients(ctx context.Context) ([]prowlarr.DownloadClient, error) {
	return []prowlarr.DownloadClient{{Name: "qBit", Enable: true}}, nil
}

func (f *fakeClient) Stats() prowlarr.Stats { return prowlarr.Stats{} }

func newTestApp(t *testing.T, client Prowlarr, input string) (*App, *bytes.Buffer, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	out := &bytes.Buffer{}
	app := &App{
		Store:   store,
		Client:  client,
		Limits:  storage.Limits{MaxAge: 168 * time.Hour, MaxEntries: 100},
		Program: "booksearch",
		In:      strings.NewReader(input),
		Out:     out,
		Now:     time.Now,
	}
	return app, out, store
}

func runOpts(mutate func(*Options)) Options {
	opts := DefaultOptions()
	mutate(&opts)
	return opts
}

func TestRenderResultsOrdersBySize(t *testing.T) {
	var out bytes.Buffer
	renderResults(&out, model.SortBySize(testReleases(t)), 7, "booksearch")
	text := out.String()

	gb := strings.Index(text, "1.00 GB")
	mb := strings.Index(text, "10.00 MB")
	kb := strings.Index(text, "500.00 KB")
	require.True(t, gb >= 0 && mb >= 0 && kb >= 0, text)
	assert.Less(t, gb, mb)
	assert.Less(t, mb, kb)

	assert.Contains(t, text, "│ 【1】Dune Boxset")
	assert.Contains(t, text, "💀 Dead torrent")
	assert.Contains(t, text, "🌱 4 seeders")
	assert.Contains(t, text, "💫 9 grabs")
	assert.Contains(t, text, "📅 Published:     2024-05-01")
	assert.Contains(t, text, "🔌 Protocols: 🧲 torrent, 📡 usenet")
	assert.Contains(t, text, "🌐 Sites: AudioTracker, BookNZB")
	assert.Contains(t, text, "booksearch -s 7 -g <result_number>")
}

func TestTitleBoxFitsWideRunes(t *testing.T) {
	var out bytes.Buffer
	writeTitleBox(&out, "【1】三体")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	top := runewidth.StringWidth(lines[0])
	assert.Equal(t, top, runewidth.StringWidth(lines[1]))
	assert.Equal(t, top, runewidth.StringWidth(lines[2]))
}

func TestHeadlessSearch(t *testing.T) {
	client := &fakeClient{tags: prowlarr.Tags{Audiobooks: 1, Ebooks: 2}, responses: [][]model.Release{testReleases(t)}}
	app, out, store := newTestApp(t, client, "")

	err := app.Run(context.Background(), runOpts(func(o *Options) {
		o.Terms = []string{"frank", "herbert"}
		o.Headless = true
		o.Kind = model.KindAudiobooks
		o.Protocol = model.ProtocolTorrent
	}))
	require.NoError(t, err)

	require.Len(t, client.queries, 1)
	assert.Equal(t, "frank herbert", client.queries[0].Term)
	assert.Equal(t, []int{1}, client.queries[0].TagIDs)
	assert.Equal(t, model.ProtocolTorrent, client.queries[0].Protocol)

	text := out.String()
	assert.Contains(t, text, " 1. 🧲 [1.00GB] Dune Boxset")
	assert.Contains(t, text, " 3. 📡 [500.00KB] Dune")
	assert.Contains(t, text, "🔑 Search ID:  #1")
	assert.Contains(t, text, "🧩 Kind:       🎧 Audiobooks")
	assert.Contains(t, text, "🔌 Protocol:   🧲 torrent")
	assert.Contains(t, text, "booksearch -s 1 -g <result_number>")
	assert.Contains(t, text, "Results will be available for 7 days")
	assert.NotContains(t, text, "Enter result number")

	rec, err := store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "frank herbert", rec.Term)
	assert.Equal(t, model.ModeHeadless, rec.Mode)
	assert.Len(t, rec.Results, 3)
}

func TestHeadlessNoResults(t *testing.T) {
	client := &fakeClient{}
	app, out, store := newTestApp(t, client, "")

	err := app.Run(context.Background(), runOpts(func(o *Options) {
		o.Terms = []string{"nothing"}
		o.Headless = true
	}))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No results found")
	assert.Len(t, client.queries, 1, "headless never re-runs")

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records, "empty searches are not cached")
}

func TestEmptyResultsOfferRerun(t *testing.T) {
	client := &fakeClient{responses: [][]model.Release{nil, testReleases(t)}}
	app, out, _ := newTestApp(t, client, "y\nq\n")

	err := app.Run(context.Background(), runOpts(func(o *Options) { o.Terms = []string{"dune"} }))
	require.NoError(t, err)
	assert.Len(t, client.queries, 2)
	assert.Contains(t, out.String(), "Search again?")
	assert.Contains(t, out.String(), "Found 3 items")
}

func TestInteractiveFlow(t *testing.T) {
	client := &fakeClient{tags: prowlarr.Tags{Audiobooks: 1, Ebooks: 2}, responses: [][]model.Release{testReleases(t)}}
	app, out, _ := newTestApp(t, client, "7\n2\n\ndune\nabc\n9\n2\nq\n")

	err := app.Run(context.Background(), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, client.queries, 1)
	assert.Equal(t, []int{2}, client.queries[0].TagIDs, "menu choice 2 is ebooks")
	assert.Equal(t, "dune", client.queries[0].Term)
	assert.Equal(t, []string{"g-10mb"}, client.grabs, "second largest")

	text := out.String()
	assert.Contains(t, text, "Please choose 1, 2, 3, or q to quit")
	assert.Contains(t, text, "Please enter a search term")
	assert.Contains(t, text, "Please enter a valid number")
	assert.Contains(t, text, "Invalid selection. Please try again.")
	assert.Contains(t, text, "Successfully sent to download client!")
}

func TestInteractiveQuit(t *testing.T) {
	client := &fakeClient{}
	app, _, _ := newTestApp(t, client, "q\n")

	require.NoError(t, app.Run(context.Background(), DefaultOptions()))
	assert.Empty(t, client.queries)
}

func TestSelectionLoopSurvivesGrabFailure(t *testing.T) {
	client := &fakeClient{
		responses: [][]model.Release{testReleases(t)},
		grabErr:   domainerrors.Servicef("download rejected: blocked"),
	}
	app, out, _ := newTestApp(t, client, "1\nq\n")

	err := app.Run(context.Background(), runOpts(func(o *Options) { o.Terms = []string{"dune"} }))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "❌ Error: download rejected: blocked")
}

func TestGrabFromSearchUsesSizeOrder(t *testing.T) {
	client := &fakeClient{}
	app, out, store := newTestApp(t, client, "")
	id, err := store.Create(context.Background(), storage.SearchRecord{
		Term: "dune", Kind: model.KindBoth, Mode: model.ModeHeadless, Timestamp: time.Now(), Results: testReleases(t),
	})
	require.NoError(t, err)

	err = app.Run(context.Background(), runOpts(func(o *Options) { o.SearchID = id; o.Grab = 3 }))
	require.NoError(t, err)
	assert.Equal(t, []string{"g-500kb"}, client.grabs)
	assert.Contains(t, out.String(), "    Dune\n")

	err = app.Run(context.Background(), runOpts(func(o *Options) { o.SearchID = id; o.Grab = 4 }))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	err = app.Run(context.Background(), runOpts(func(o *Options) { o.SearchID = 99; o.Grab = 1 }))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestGrabLatest(t *testing.T) {
	client := &fakeClient{}
	app, out, _ := newTestApp(t, client, "")

	err := app.Run(context.Background(), runOpts(func(o *Options) { o.SearchLast = true; o.Grab = 1 }))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	for _, term := range []string{"first", "second"} {
		_, err := app.Store.Create(context.Background(), storage.SearchRecord{
			Term: term, Kind: model.KindBoth, Mode: model.ModeHeadless, Timestamp: time.Now(), Results: testReleases(t),
		})
		require.NoError(t, err)
	}

	err = app.Run(context.Background(), runOpts(func(o *Options) { o.SearchLast = true; o.Grab = 1; o.Debug = true }))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Using most recent search #2")
	assert.Equal(t, []string{"g-1gb"}, client.grabs)
}

func TestGrabSkipsCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := storage.OpenFileStore(dir)
	require.NoError(t, err)

	id, err := store.Create(context.Background(), storage.SearchRecord{
		Term: "old", Kind: model.KindBoth, Mode: model.ModeHeadless, Timestamp: time.Now(), Results: testReleases(t),
	})
	require.NoError(t, err)
	old := time.Now().Add(-200 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "search_1"), old, old))

	client := &fakeClient{}
	app := &App{Store: store, Client: client, Limits: storage.Limits{MaxAge: 168 * time.Hour}, Out: io.Discard}

	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.SearchID = id; o.Grab = 1 })))
	assert.Equal(t, []string{"g-1gb"}, client.grabs, "expired record is still grabbable")

	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.ListCache = true })))
	_, err = store.Load(context.Background(), id)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "listing sweeps the cache")
}

func TestListAndShowCache(t *testing.T) {
	client := &fakeClient{}
	app, out, store := newTestApp(t, client, "")
	now := time.Now()
	app.Now = func() time.Time { return now }

	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.ListCache = true })))
	assert.Contains(t, out.String(), "No cached searches found")

	_, err := store.Create(context.Background(), storage.SearchRecord{
		Term: "dune", Kind: model.KindAudiobooks, Protocol: model.ProtocolUsenet,
		Mode: model.ModeHeadless, Timestamp: now.Add(-3 * time.Hour), Results: testReleases(t),
	})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.ListCache = true })))
	text := out.String()
	assert.Contains(t, text, "[1] dune")
	assert.Contains(t, text, "🧩 Kind: 🎧 Audiobooks")
	assert.Contains(t, text, "3 hours ago")
	assert.Contains(t, text, "booksearch --list-cache <search_id>")

	out.Reset()
	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.ListCache = true; o.ListCacheID = 1 })))
	text = out.String()
	assert.Contains(t, text, "Showing cached results for search #1")
	assert.Contains(t, text, "🔍 Term: dune")
	assert.Contains(t, text, "【1】Dune Boxset")
	assert.NotContains(t, text, "Enter result number")

	err = app.Run(context.Background(), runOpts(func(o *Options) { o.ListCache = true; o.ListCacheID = 42 }))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestClearCache(t *testing.T) {
	app, out, store := newTestApp(t, &fakeClient{}, "")
	_, err := store.Create(context.Background(), storage.SearchRecord{Term: "x", Kind: model.KindBoth, Mode: model.ModeHeadless, Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.ClearCache = true })))
	assert.Contains(t, out.String(), "Cache cleared successfully")

	id, err := store.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

// TestGrabThroughService drives a grab against a real client and a fake
// Prowlarr server and checks the submitted payload.
func TestGrabThroughService(t *testing.T) {
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/v1/search" {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			io.WriteString(w, `{"title":"ok"}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	app, out, store := newTestApp(t, prowlarr.New(server.URL, "key"), "")
	id, err := store.Create(context.Background(), storage.SearchRecord{
		Term: "dune", Kind: model.KindBoth, Mode: model.ModeHeadless, Timestamp: time.Now(), Results: testReleases(t),
	})
	require.NoError(t, err)

	require.NoError(t, app.Run(context.Background(), runOpts(func(o *Options) { o.SearchID = id; o.Grab = 3 })))
	assert.Equal(t, map[string]any{"guid": "g-500kb", "indexerId": float64(5)}, posted)
	assert.Contains(t, out.String(), "Successfully sent to download client!")
}

func TestRetentionText(t *testing.T) {
	assert.Equal(t, "for 7 days", retentionText(168*time.Hour))
	assert.Equal(t, "for 1 day", retentionText(24*time.Hour))
	assert.Equal(t, "for 36 hours", retentionText(36*time.Hour))
	assert.Equal(t, "until the cache is cleared", retentionText(0))
}

func TestSpinner(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out, "Searching", true)
	s.Start()
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Contains(t, out.String(), "\rSearching ⣾")
	assert.True(t, strings.HasSuffix(out.String(), "\r"))

	out.Reset()
	disabled := NewSpinner(&out, "Searching", false)
	disabled.Start()
	disabled.Stop()
	assert.Empty(t, out.String())
	assert.False(t, IsTerminal(&out))
}
