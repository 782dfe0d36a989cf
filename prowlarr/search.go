package prowlarr

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	domainerrors "github.com/richinex/booksearch/internal/errors"
	jsonx "github.com/richinex/booksearch/internal/json"
	"github.com/richinex/booksearch/model"
)

const searchLimit = 100

// Search runs q against every indexer matching its tags and protocol and
// returns the releases those indexers produced, in response order.
func (c *Client) Search(ctx context.Context, q Query) ([]model.Release, error) {
	indexers, err := c.Indexers(ctx)
	if err != nil {
		return nil, err
	}
	ids := MatchIndexers(indexers, q.TagIDs, q.Protocol)
	if len(ids) == 0 {
		return nil, domainerrors.NotFoundf("no matching indexers found for tags %v and protocol %s", q.TagIDs, q.Protocol)
	}

	params := url.Values{}
	params.Set("query", q.Term)
	params.Set("type", "search")
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("offset", "0")

	data, err := c.do(ctx, http.MethodGet, "/api/v1/search", params, nil)
	if err != nil {
		return nil, err
	}
	if !jsonx.IsArray(data) {
		if msg, ok := jsonx.ErrorMessage(data); ok {
			return nil, domainerrors.Service(msg)
		}
		return nil, domainerrors.Servicef("unexpected search response: %s", jsonx.Preview(data))
	}

	allowed := make(map[int]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	total := 0
	var releases []model.Release
	gjson.ParseBytes(data).ForEach(func(_, item gjson.Result) bool {
		total++
		r := model.Release(item.Raw)
		if allowed[r.IndexerID()] {
			releases = append(releases, r)
		}
		return true
	})
	releases = model.FilterByProtocol(releases, q.Protocol)

	c.logger.Debug("search stats",
		"term", q.Term,
		"indexers", ids,
		"total", total,
		"filtered", len(releases),
		"protocols", model.Protocols(releases),
		"sources", model.Indexers(releases),
	)
	return releases, nil
}

// Grab asks Prowlarr to send a release to its download client. Returns
// the release document Prowlarr echoes back.
func (c *Client) Grab(ctx context.Context, guid string, indexerID int) (model.Release, error) {
	payload := struct {
		GUID      string `json:"guid"`
		IndexerID int    `json:"indexerId"`
	}{guid, indexerID}

	data, err := c.do(ctx, http.MethodPost, "/api/v1/search", nil, payload)
	if err != nil {
		return nil, err
	}
	if reason, ok := rejection(data); ok {
		return nil, domainerrors.Servicef("download rejected: %s", reason)
	}
	c.logger.Debug("release grabbed", "guid", guid, "indexer_id", indexerID)
	return model.Release(data), nil
}

// rejection reports whether a grab response carries a truthy "rejected"
// field, and the reason to show for it. Prowlarr echoes "rejected": false
// on accepted grabs, so the field's presence alone is not a rejection.
func rejection(data []byte) (string, bool) {
	rejected := jsonx.Field(data, "rejected")
	if !rejected.Exists() || rejected.Type == gjson.False || rejected.Type == gjson.Null {
		return "", false
	}
	if rejected.Type == gjson.String && rejected.String() != "" {
		return rejected.String(), true
	}
	if reasons := jsonx.Field(data, "rejections"); reasons.IsArray() && len(reasons.Array()) > 0 {
		var out []string
		for _, r := range reasons.Array() {
			out = append(out, r.String())
		}
		return strings.Join(out, "; "), true
	}
	return rejected.Raw, true
}
