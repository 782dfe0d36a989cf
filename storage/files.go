package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
)

const (
	recordPrefix  = "search_"
	stagingPrefix = ".staging-"
	metaFile      = "meta"
	resultsFile   = "results.json"
	lastIDFile    = "last_id"
	lockFile      = ".lock"

	// Staging directories older than this are leftovers of a crashed save.
	stagingMaxAge = time.Hour
)

// FileStore keeps one directory per search under a cache root:
//
//	<dir>/last_id
//	<dir>/search_<id>/meta
//	<dir>/search_<id>/results.json
//
// A record is written into a staging directory and renamed into place, so
// readers never observe a record with only one of its files. NextID+Save
// in Create run under an exclusive lock on <dir>/.lock.
type FileStore struct {
	dir     string
	counter *Counter
	logger  *slog.Logger
	now     func() time.Time
}

// OpenFileStore creates a store rooted at dir. The directory is created
// lazily on the first write.
func OpenFileStore(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		return nil, domainerrors.Storage("open cache", fmt.Errorf("empty cache directory"))
	}
	o := applyOptions(opts)
	return &FileStore{
		dir:     dir,
		counter: NewCounter(filepath.Join(dir, lastIDFile)),
		logger:  o.logger.With("component", "cache", "backend", "files"),
		now:     o.now,
	}, nil
}

// Dir returns the cache root.
func (s *FileStore) Dir() string {
	return s.dir
}

// NextID allocates and persists the next identifier.
func (s *FileStore) NextID(ctx context.Context) (int, error) {
	var id int
	err := s.withLock(func() error {
		var err error
		id, err = s.counter.Next()
		return err
	})
	if err != nil {
		return 0, domainerrors.Storage("allocate search id", err)
	}
	return id, nil
}

// Save persists rec under rec.ID.
func (s *FileStore) Save(ctx context.Context, rec SearchRecord) error {
	if !validID(rec.ID) {
		return domainerrors.Validationf("search id %d out of range [0, %d)", rec.ID, MaxID)
	}
	if err := s.withLock(func() error { return s.saveRecord(rec) }); err != nil {
		return domainerrors.Storage(fmt.Sprintf("save search #%d", rec.ID), err)
	}
	return nil
}

// Create allocates an identifier and saves rec under it while holding the
// cache lock.
func (s *FileStore) Create(ctx context.Context, rec SearchRecord) (int, error) {
	var id int
	err := s.withLock(func() error {
		var err error
		id, err = s.counter.Next()
		if err != nil {
			return err
		}
		rec.ID = id
		return s.saveRecord(rec)
	})
	if err != nil {
		return 0, domainerrors.Storage("save search", err)
	}
	s.logger.Debug("search cached", "id", id, "term", rec.Term, "results", len(rec.Results))
	return id, nil
}

func (s *FileStore) saveRecord(rec SearchRecord) error {
	results := rec.Results
	if results == nil {
		results = []model.Release{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	staging := filepath.Join(s.dir, stagingPrefix+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(staging) }

	if err := os.WriteFile(filepath.Join(staging, resultsFile), payload, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("write results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, metaFile), encodeMeta(rec), 0o644); err != nil {
		cleanup()
		return fmt.Errorf("write metadata: %w", err)
	}

	final := s.recordDir(rec.ID)
	if _, err := os.Stat(final); err == nil {
		s.logger.Debug("replacing record with wrapped id", "id", rec.ID)
		if err := os.RemoveAll(final); err != nil {
			cleanup()
			return fmt.Errorf("replace existing record: %w", err)
		}
	}
	if err := os.Rename(staging, final); err != nil {
		cleanup()
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// Load returns the full record for id.
func (s *FileStore) Load(ctx context.Context, id int) (*SearchRecord, error) {
	if !validID(id) {
		return nil, domainerrors.NotFoundf("search #%d not found", id)
	}
	rec, err := s.readRecord(id, true)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.NotFoundf("search #%d not found", id)
		}
		s.logger.Debug("unreadable record", "id", id, "error", err)
		return nil, domainerrors.NotFoundf("search #%d not found", id).WithCause(err)
	}
	return rec, nil
}

// readRecord reads a record directory. Metadata is always parsed; results
// only when withResults is set. Both files must exist either way.
func (s *FileStore) readRecord(id int, withResults bool) (*SearchRecord, error) {
	dir := s.recordDir(id)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	resultsInfo, err := os.Stat(filepath.Join(dir, resultsFile))
	if err != nil {
		return nil, err
	}
	metaData, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, err
	}

	rec := &SearchRecord{ID: id, StoredAt: info.ModTime(), Size: resultsInfo.Size()}
	if err := decodeMeta(metaData, rec); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	if withResults {
		payload, err := os.ReadFile(filepath.Join(dir, resultsFile))
		if err != nil {
			return nil, err
		}
		var results []model.Release
		if err := json.Unmarshal(payload, &results); err != nil {
			return nil, fmt.Errorf("results: %w", err)
		}
		rec.Results = results
	}
	return rec, nil
}

// List returns metadata for every complete record in directory order.
func (s *FileStore) List(ctx context.Context) ([]SearchRecord, error) {
	records, _, err := s.scan()
	return records, err
}

// scan reads the metadata of every record directory. Directories that
// cannot be read as a record are returned separately in broken.
func (s *FileStore) scan() (records []SearchRecord, broken []int, err error) {
	ids, err := s.recordIDs()
	if err != nil {
		return nil, nil, err
	}

	records = make([]SearchRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.readRecord(id, false)
		if err != nil {
			s.logger.Debug("skipping incomplete record", "id", id, "error", err)
			broken = append(broken, id)
			continue
		}
		records = append(records, *rec)
	}
	return records, broken, nil
}

// Latest returns the record with the most recent storage time.
func (s *FileStore) Latest(ctx context.Context) (*SearchRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	best := latest(records)
	if best == nil {
		return nil, domainerrors.NotFoundf("no recent searches found")
	}
	return best, nil
}

// Clear removes all records and the identifier pointer.
func (s *FileStore) Clear(ctx context.Context) error {
	err := s.withLock(func() error {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, recordPrefix) || strings.HasPrefix(name, stagingPrefix) {
				if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
					return err
				}
			}
		}
		return s.counter.Reset()
	})
	if err != nil {
		return domainerrors.Storage("clear cache", err)
	}
	s.logger.Debug("cache cleared")
	return nil
}

// Cleanup enforces limits, judging age by directory modification time.
// Saves land by rename, so a record directory that cannot be read is
// damaged rather than in flight, and is removed as well.
func (s *FileStore) Cleanup(ctx context.Context, limits Limits) (CleanupReport, error) {
	var report CleanupReport
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return report, nil
	}

	err := s.withLock(func() error {
		s.sweepStaging()

		records, broken, err := s.scan()
		if err != nil {
			return err
		}
		report = planEviction(records, limits, s.now())
		report.Discarded = broken

		removed := append(append(append([]int{}, report.Expired...), report.Evicted...), broken...)
		for _, id := range removed {
			if err := os.RemoveAll(s.recordDir(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CleanupReport{}, domainerrors.Storage("clean up cache", err)
	}
	if report.Removed() > 0 {
		s.logger.Debug("cache cleaned", "expired", report.Expired, "evicted", report.Evicted, "discarded", report.Discarded, "remaining", report.Remaining)
	}
	return report, nil
}

// Close releases resources. FileStore holds none between calls.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) recordDir(id int) string {
	return filepath.Join(s.dir, recordPrefix+strconv.Itoa(id))
}

// recordIDs returns ids of search_<id> directories in directory order.
func (s *FileStore) recordIDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.Storage("read cache directory", err)
	}

	var ids []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), recordPrefix) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(e.Name(), recordPrefix))
		if err != nil || !validID(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sweepStaging removes staging directories left behind by interrupted saves.
func (s *FileStore) sweepStaging() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	now := s.now()
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < stagingMaxAge {
			continue
		}
		os.RemoveAll(filepath.Join(s.dir, e.Name()))
	}
}

// withLock runs fn while holding the cache lock, creating the cache
// directory first if needed.
func (s *FileStore) withLock(fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	lock, err := acquireLock(filepath.Join(s.dir, lockFile))
	if err != nil {
		return err
	}
	defer lock.release()
	return fn()
}

var _ Store = (*FileStore)(nil)
