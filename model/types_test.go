package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"audio":               KindAudiobooks,
		"Audiobooks":          KindAudiobooks,
		"book":                KindEbook,
		"eBook":               KindEbook,
		"both":                KindBoth,
		"":                    KindBoth,
		"Audiobooks & eBooks": KindBoth,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("comics")
	assert.Error(t, err)
}

func TestParseProtocol(t *testing.T) {
	tests := map[string]Protocol{
		"tor":     ProtocolTorrent,
		"torrent": ProtocolTorrent,
		"nzb":     ProtocolUsenet,
		"USENET":  ProtocolUsenet,
		"both":    ProtocolAny,
		"":        ProtocolAny,
	}
	for in, want := range tests {
		got, err := ParseProtocol(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseProtocol("ftp")
	assert.Error(t, err)
}

func TestProtocolMatches(t *testing.T) {
	assert.True(t, ProtocolTorrent.Matches("TORRENT"))
	assert.False(t, ProtocolTorrent.Matches("usenet"))
	assert.True(t, ProtocolAny.Matches("anything"))
	assert.Equal(t, "both", ProtocolAny.String())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Headless")
	require.NoError(t, err)
	assert.Equal(t, ModeHeadless, m)

	_, err = ParseMode("batch")
	assert.Error(t, err)
}

func TestIcons(t *testing.T) {
	assert.Equal(t, "🎧", KindAudiobooks.Icon())
	assert.Equal(t, "📚", KindEbook.Icon())
	assert.Equal(t, "🎧+📚", KindBoth.Icon())
	assert.Equal(t, "📡", ProtocolUsenet.Icon())
	assert.Equal(t, "📡+🧲", ProtocolAny.Icon())
}
