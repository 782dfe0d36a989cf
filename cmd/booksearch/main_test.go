package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/booksearch/config"
	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
)

func noFlags() flags {
	return flags{search: -1}
}

func TestBuildOptionsDefaultsFromSettings(t *testing.T) {
	settings := config.Defaults()
	settings.Search.DefaultProtocol = "nzb"
	settings.Search.DefaultMediaType = "book"

	opts, err := buildOptions(noFlags(), []string{"dune"}, settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"dune"}, opts.Terms)
	assert.Equal(t, model.KindEbook, opts.Kind)
	assert.Equal(t, model.ProtocolUsenet, opts.Protocol)
	assert.Equal(t, -1, opts.SearchID)
	assert.False(t, opts.ListCache)
}

func TestBuildOptionsFlagsOverrideSettings(t *testing.T) {
	f := noFlags()
	f.kind = "audio"
	f.protocol = "tor"
	f.headless = true

	opts, err := buildOptions(f, []string{"dune"}, config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, model.KindAudiobooks, opts.Kind)
	assert.Equal(t, model.ProtocolTorrent, opts.Protocol)
	assert.True(t, opts.Headless)
}

func TestBuildOptionsListCache(t *testing.T) {
	f := noFlags()
	f.listCache = listAll
	opts, err := buildOptions(f, nil, config.Defaults())
	require.NoError(t, err)
	assert.True(t, opts.ListCache)
	assert.Equal(t, -1, opts.ListCacheID)

	opts, err = buildOptions(f, []string{"12"}, config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 12, opts.ListCacheID)
	assert.Empty(t, opts.Terms)

	f.listCache = "7"
	opts, err = buildOptions(f, nil, config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 7, opts.ListCacheID)
}

func TestBuildOptionsValidation(t *testing.T) {
	tests := map[string]func(*flags){
		"bad kind":          func(f *flags) { f.kind = "comics" },
		"bad protocol":      func(f *flags) { f.protocol = "ftp" },
		"grab alone":        func(f *flags) { f.grab = 2 },
		"search alone":      func(f *flags) { f.search = 3 },
		"search last alone": func(f *flags) { f.searchLast = true },
		"negative grab":     func(f *flags) { f.search = 1; f.grab = -1 },
		"id out of range":   func(f *flags) { f.search = 1000; f.grab = 1 },
		"bad list id":       func(f *flags) { f.listCache = "abc" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := noFlags()
			mutate(&f)
			_, err := buildOptions(f, nil, config.Defaults())
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
			assert.Equal(t, 1, domainerrors.ExitCode(err))
		})
	}
}

func TestBuildOptionsGrabPaths(t *testing.T) {
	f := noFlags()
	f.search = 4
	f.grab = 2
	opts, err := buildOptions(f, nil, config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 4, opts.SearchID)
	assert.Equal(t, 2, opts.Grab)

	f = noFlags()
	f.searchLast = true
	f.grab = 1
	opts, err = buildOptions(f, nil, config.Defaults())
	require.NoError(t, err)
	assert.True(t, opts.SearchLast)
}

func TestUnknownFlagIsValidationError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--bogus"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestConfigCommandMasksKey(t *testing.T) {
	for _, key := range []string{"PROWLARR_URL", "API_KEY", "CACHE_DIR", "CACHE_BACKEND", "LOG_LEVEL", "PROWLARR_TIMEOUT",
		"CACHE_MAX_AGE", "CACHE_MAX_SIZE", "CACHE_MAX_ENTRIES", "DEFAULT_PROTOCOL", "DEFAULT_MEDIA_TYPE"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("PROWLARR_URL", "http://prowlarr.local:9696")
	t.Setenv("API_KEY", "supersecretkey")
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	path := filepath.Join(dir, "config.yaml")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "config"})
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "**********tkey")
	assert.NotContains(t, out.String(), "supersecretkey")
	assert.Contains(t, out.String(), "# "+path)

	_, err := os.Stat(path)
	assert.NoError(t, err, "config file created on first run")
}

func TestMissingConfigIsConfigurationError(t *testing.T) {
	for _, key := range []string{"PROWLARR_URL", "API_KEY"} {
		t.Setenv(key, "")
	}
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "config.yaml"), "--list-cache"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConfiguration))
	assert.Equal(t, 1, domainerrors.ExitCode(err))
}
