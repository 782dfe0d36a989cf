package main

import (
	"strconv"
	"strings"

	"github.com/richinex/booksearch/cli"
	"github.com/richinex/booksearch/config"
	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
	"github.com/richinex/booksearch/storage"
)

// listAll is the --list-cache value when no id is given.
const listAll = "all"

// flags holds raw command line values.
type flags struct {
	configPath string
	debug      bool

	kind       string
	protocol   string
	headless   bool
	search     int
	grab       int
	listCache  string
	clearCache bool
	searchLast bool
}

// buildOptions validates flags and fills unset values from settings.
func buildOptions(f flags, args []string, settings config.Settings) (cli.Options, error) {
	opts := cli.DefaultOptions()
	opts.Terms = args
	opts.Headless = f.headless
	opts.SearchID = f.search
	opts.Grab = f.grab
	opts.SearchLast = f.searchLast
	opts.ClearCache = f.clearCache
	opts.Debug = f.debug

	opts.Kind = settings.DefaultKind()
	if f.kind != "" {
		switch strings.ToLower(f.kind) {
		case "audio", "book", "both":
		default:
			return cli.Options{}, domainerrors.Validationf("invalid --kind %q (want audio, book or both)", f.kind)
		}
		opts.Kind, _ = model.ParseKind(f.kind)
	}

	opts.Protocol = settings.DefaultProtocol()
	if f.protocol != "" {
		switch strings.ToLower(f.protocol) {
		case "tor", "nzb", "both":
		default:
			return cli.Options{}, domainerrors.Validationf("invalid --protocol %q (want tor or nzb)", f.protocol)
		}
		opts.Protocol, _ = model.ParseProtocol(f.protocol)
	}

	if f.listCache != "" {
		opts.ListCache = true
		value := f.listCache
		// "--list-cache 5" leaves the id as a positional argument.
		if value == listAll && len(args) == 1 {
			if _, err := strconv.Atoi(args[0]); err == nil {
				value = args[0]
				opts.Terms = nil
			}
		}
		if value != listAll {
			id, err := strconv.Atoi(value)
			if err != nil || id < 0 || id >= storage.MaxID {
				return cli.Options{}, domainerrors.Validationf("invalid --list-cache id %q", value)
			}
			opts.ListCacheID = id
		}
	}

	switch {
	case f.grab < 0:
		return cli.Options{}, domainerrors.Validationf("--grab must be a positive result number")
	case f.search >= storage.MaxID || f.search < -1:
		return cli.Options{}, domainerrors.Validationf("--search id must be between 0 and %d", storage.MaxID-1)
	case f.grab > 0 && f.search < 0 && !f.searchLast:
		return cli.Options{}, domainerrors.Validationf("--grab requires --search <id> or --search-last")
	case f.search >= 0 && f.grab == 0:
		return cli.Options{}, domainerrors.Validationf("--search requires --grab <result_number>")
	case f.searchLast && f.grab == 0:
		return cli.Options{}, domainerrors.Validationf("--search-last requires --grab <result_number>")
	}
	return opts, nil
}
