package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	domainerrors "github.com/richinex/booksearch/internal/errors"
)

// Release is one search result exactly as Prowlarr returned it.
// The payload is never re-encoded; accessors read fields in place.
type Release []byte

// MarshalJSON returns r verbatim.
func (r Release) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of data.
func (r *Release) UnmarshalJSON(data []byte) error {
	if r == nil {
		return fmt.Errorf("model.Release: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], data...)
	return nil
}

func (r Release) get(path string) gjson.Result {
	return gjson.GetBytes(r, path)
}

// Title returns the release title.
func (r Release) Title() string { return r.get("title").String() }

// GUID returns the identifier Prowlarr needs to grab the release.
func (r Release) GUID() string { return r.get("guid").String() }

// IndexerID returns the numeric id of the indexer that produced the release.
func (r Release) IndexerID() int { return int(r.get("indexerId").Int()) }

// Indexer returns the indexer name.
func (r Release) Indexer() string { return r.get("indexer").String() }

// Size returns the release size in bytes, 0 if unknown.
func (r Release) Size() int64 { return r.get("size").Int() }

// Protocol returns the raw protocol field ("usenet" or "torrent").
func (r Release) Protocol() string { return r.get("protocol").String() }

// PublishDate returns the raw publishDate field.
func (r Release) PublishDate() string { return r.get("publishDate").String() }

// Grabs returns the usenet grab count.
func (r Release) Grabs() int { return int(r.get("grabs").Int()) }

// Seeders returns the torrent seeder count.
func (r Release) Seeders() int { return int(r.get("seeders").Int()) }

// IsUsenet reports whether the release is an NZB.
func (r Release) IsUsenet() bool { return strings.EqualFold(r.Protocol(), string(ProtocolUsenet)) }

// SortBySize returns a copy of releases ordered by size, largest first.
// Releases of equal size keep their response order.
func SortBySize(releases []Release) []Release {
	sorted := make([]Release, len(releases))
	copy(sorted, releases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size() > sorted[j].Size()
	})
	return sorted
}

// FilterByProtocol returns the releases whose protocol matches p.
func FilterByProtocol(releases []Release, p Protocol) []Release {
	if p == ProtocolAny {
		return releases
	}
	out := make([]Release, 0, len(releases))
	for _, r := range releases {
		if p.Matches(r.Protocol()) {
			out = append(out, r)
		}
	}
	return out
}

// Select returns the n-th (1-based) release of the size-ordered view.
func Select(releases []Release, n int) (Release, error) {
	if n < 1 || n > len(releases) {
		return nil, domainerrors.Validationf("invalid result number %d (search has %d results)", n, len(releases))
	}
	return SortBySize(releases)[n-1], nil
}

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatSize renders a byte count the way result cards show it: "1.50 GB".
// Unknown or zero sizes render as "N/A".
func FormatSize(size int64) string {
	return formatSize(size, " ")
}

// FormatSizeCompact renders a byte count without a space: "1.50GB".
func FormatSizeCompact(size int64) string {
	return formatSize(size, "")
}

func formatSize(size int64, sep string) string {
	switch {
	case size <= 0:
		return "N/A"
	case size > gib:
		return fmt.Sprintf("%.2f%sGB", float64(size)/gib, sep)
	case size > mib:
		return fmt.Sprintf("%.2f%sMB", float64(size)/mib, sep)
	default:
		return fmt.Sprintf("%.2f%sKB", float64(size)/kib, sep)
	}
}

// Status summarises release health: grabs for usenet, seeders for torrents.
func (r Release) Status() string {
	if r.IsUsenet() {
		return fmt.Sprintf("💫 %d grabs", r.Grabs())
	}
	if s := r.Seeders(); s > 0 {
		return fmt.Sprintf("🌱 %d seeders", s)
	}
	return "💀 Dead torrent"
}

// PublishedDay returns the date part of publishDate, or "N/A".
func (r Release) PublishedDay() string {
	d := r.PublishDate()
	if d == "" {
		return "N/A"
	}
	if len(d) > 10 {
		return d[:10]
	}
	return d
}

// ProtocolIcon returns the icon for the release's own protocol.
func (r Release) ProtocolIcon() string {
	if r.IsUsenet() {
		return ProtocolUsenet.Icon()
	}
	return ProtocolTorrent.Icon()
}

// Protocols returns the distinct, sorted protocol names present in releases.
func Protocols(releases []Release) []string {
	return distinct(releases, Release.Protocol)
}

// Indexers returns the distinct, sorted indexer names present in releases.
func Indexers(releases []Release) []string {
	return distinct(releases, Release.Indexer)
}

func distinct(releases []Release, field func(Release) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range releases {
		v := field(r)
		if v == "" {
			v = "unknown"
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
