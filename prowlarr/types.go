package prowlarr

import (
	"time"

	"github.com/richinex/booksearch/model"
)

// Tag labels that mark indexers for each media kind.
const (
	AudiobooksLabel = "audiobooks"
	EbooksLabel     = "ebooks"
)

// Tag is a Prowlarr tag.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Tags holds the identifiers of the two book tags.
type Tags struct {
	Audiobooks int
	Ebooks     int
}

// For returns the tag identifiers a search of kind k should use.
func (t Tags) For(k model.Kind) []int {
	switch k {
	case model.KindAudiobooks:
		return []int{t.Audiobooks}
	case model.KindEbook:
		return []int{t.Ebooks}
	default:
		return []int{t.Audiobooks, t.Ebooks}
	}
}

// Indexer is a configured Prowlarr indexer.
type Indexer struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Enable   bool   `json:"enable"`
	Protocol string `json:"protocol"`
	Tags     []int  `json:"tags"`
}

// DownloadClient is a download client configured in Prowlarr.
type DownloadClient struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Enable         bool   `json:"enable"`
	Protocol       string `json:"protocol"`
	Implementation string `json:"implementation"`
	Priority       int    `json:"priority"`
}

// Query describes one release search.
type Query struct {
	Term     string
	TagIDs   []int
	Protocol model.Protocol
}

// APIError records the most recent failed request.
type APIError struct {
	Time     time.Time
	Endpoint string
	Status   int // 0 for transport failures
	Message  string
}

// Stats summarizes the requests made by a client.
type Stats struct {
	Requests   int
	Errors     int
	TotalTime  time.Duration
	ByEndpoint map[string]int
	LastError  *APIError
}

// MeanLatency returns the average request duration.
func (s Stats) MeanLatency() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Requests)
}
