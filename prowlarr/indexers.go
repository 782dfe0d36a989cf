package prowlarr

import (
	"context"
	"slices"
	"strings"

	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
)

// Tags lists all tags.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.getJSON(ctx, "/api/v1/tag", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// ResolveTags finds the audiobooks and ebooks tags. Labels match
// case-insensitively; both tags must exist.
func (c *Client) ResolveTags(ctx context.Context) (Tags, error) {
	tags, err := c.Tags(ctx)
	if err != nil {
		return Tags{}, err
	}

	audio, audioOK := findTag(tags, AudiobooksLabel)
	ebook, ebookOK := findTag(tags, EbooksLabel)
	if !audioOK || !ebookOK {
		return Tags{}, domainerrors.NotFoundf("required tags %q and %q not found in Prowlarr", AudiobooksLabel, EbooksLabel)
	}
	return Tags{Audiobooks: audio, Ebooks: ebook}, nil
}

func findTag(tags []Tag, label string) (int, bool) {
	for _, t := range tags {
		if strings.EqualFold(t.Label, label) {
			return t.ID, true
		}
	}
	return 0, false
}

// Indexers lists all indexers.
func (c *Client) Indexers(ctx context.Context) ([]Indexer, error) {
	var indexers []Indexer
	if err := c.getJSON(ctx, "/api/v1/indexer", &indexers); err != nil {
		return nil, err
	}
	return indexers, nil
}

// MatchIndexers returns the ids of enabled indexers that carry any of
// tagIDs and serve protocol.
func MatchIndexers(indexers []Indexer, tagIDs []int, protocol model.Protocol) []int {
	var ids []int
	for _, ix := range indexers {
		if !ix.Enable || !protocol.Matches(ix.Protocol) {
			continue
		}
		if slices.ContainsFunc(ix.Tags, func(tag int) bool { return slices.Contains(tagIDs, tag) }) {
			ids = append(ids, ix.ID)
		}
	}
	return ids
}

// DownloadClients lists enabled download clients.
func (c *Client) DownloadClients(ctx context.Context) ([]DownloadClient, error) {
	var all []DownloadClient
	if err := c.getJSON(ctx, "/api/v1/downloadclient", &all); err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, dc := range all {
		if dc.Enable {
			enabled = append(enabled, dc)
		}
	}
	return enabled, nil
}
