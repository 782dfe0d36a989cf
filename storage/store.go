// Package storage provides the local search result cache.
//
// Information Hiding:
// - Backend layout (directories vs SQLite tables) hidden behind Store
// - Identifier allocation and its persistence owned by the backend
// - Atomicity of record writes handled internally (rename or transaction)
package storage

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/richinex/booksearch/model"
)

// MaxID bounds the identifier space. Identifiers wrap into [0, MaxID).
const MaxID = 1000

// SearchRecord is one executed search and its raw results.
type SearchRecord struct {
	ID        int
	Term      string
	Kind      model.Kind
	Protocol  model.Protocol
	Mode      model.Mode
	Timestamp time.Time // when the search ran

	// Set by the store on read.
	StoredAt time.Time // storage time, drives eviction and Latest
	Size     int64     // bytes of the stored results payload

	// Nil for records returned by List.
	Results []model.Release
}

// Limits bounds what Cleanup retains. Zero disables a limit.
type Limits struct {
	MaxAge       time.Duration
	MaxSizeBytes int64
	MaxEntries   int
}

// CleanupReport describes what Cleanup removed.
type CleanupReport struct {
	Expired   []int // older than MaxAge
	Evicted   []int // removed to satisfy size or count limits
	Discarded []int // incomplete or unreadable records
	Remaining int
	Bytes     int64 // total size of remaining records
}

// Removed returns the total number of records removed.
func (r CleanupReport) Removed() int {
	return len(r.Expired) + len(r.Evicted) + len(r.Discarded)
}

// Store is the interface for result cache operations.
type Store interface {
	// NextID allocates and persists the next identifier.
	NextID(ctx context.Context) (int, error)

	// Save persists a record under rec.ID. Metadata and results become
	// visible together or not at all. An existing record with the same ID
	// is replaced.
	Save(ctx context.Context, rec SearchRecord) error

	// Create allocates an identifier and saves rec under it as one step.
	Create(ctx context.Context, rec SearchRecord) (int, error)

	// Load returns the full record. Fails with a not found error if the
	// record or either of its parts is missing.
	Load(ctx context.Context, id int) (*SearchRecord, error)

	// List returns metadata for every retained record in storage order.
	List(ctx context.Context) ([]SearchRecord, error)

	// Latest returns the metadata of the most recently stored record.
	Latest(ctx context.Context) (*SearchRecord, error)

	// Clear removes all records and resets the identifier pointer.
	Clear(ctx context.Context) error

	// Cleanup removes expired records, then the oldest records until the
	// size and count limits hold.
	Cleanup(ctx context.Context, limits Limits) (CleanupReport, error)

	// Close releases resources.
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// nextID wraps last+1 into [0, MaxID).
func nextID(last int) int {
	return (last + 1) % MaxID
}

func validID(id int) bool {
	return id >= 0 && id < MaxID
}

// planEviction decides which records Cleanup removes. Records older than
// MaxAge go first; the survivors are then removed oldest first until both
// the size and the count limits hold.
func planEviction(records []SearchRecord, limits Limits, now time.Time) CleanupReport {
	var report CleanupReport
	kept := make([]SearchRecord, 0, len(records))

	for _, rec := range records {
		if limits.MaxAge > 0 && now.Sub(rec.StoredAt) > limits.MaxAge {
			report.Expired = append(report.Expired, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].StoredAt.Equal(kept[j].StoredAt) {
			return kept[i].ID < kept[j].ID
		}
		return kept[i].StoredAt.Before(kept[j].StoredAt)
	})

	var total int64
	for _, rec := range kept {
		total += rec.Size
	}

	overLimit := func() bool {
		if limits.MaxEntries > 0 && len(kept) > limits.MaxEntries {
			return true
		}
		return limits.MaxSizeBytes > 0 && total > limits.MaxSizeBytes
	}

	for len(kept) > 0 && overLimit() {
		oldest := kept[0]
		kept = kept[1:]
		total -= oldest.Size
		report.Evicted = append(report.Evicted, oldest.ID)
	}

	report.Remaining = len(kept)
	report.Bytes = total
	return report
}

// latest picks the record with the greatest StoredAt. Ties go to the
// record listed last.
func latest(records []SearchRecord) *SearchRecord {
	var best *SearchRecord
	for i := range records {
		if best == nil || !records[i].StoredAt.Before(best.StoredAt) {
			best = &records[i]
		}
	}
	return best
}
