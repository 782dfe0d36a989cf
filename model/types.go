// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
)

// Kind is the media kind a search targets.
type Kind string

const (
	// KindAudiobooks searches indexers tagged "audiobooks".
	KindAudiobooks Kind = "Audiobooks"
	// KindEbook searches indexers tagged "ebooks".
	KindEbook Kind = "eBook"
	// KindBoth searches both tags.
	KindBoth Kind = "Both"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Icon returns the emoji shown next to the kind.
func (k Kind) Icon() string {
	switch k {
	case KindAudiobooks:
		return "🎧"
	case KindEbook:
		return "📚"
	default:
		return "🎧+📚"
	}
}

// ParseKind parses a stored or user-supplied kind. Accepts the canonical
// names as well as the CLI spellings "audio", "book" and "both".
// An empty string is KindBoth.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audiobooks", "audiobook", "audio":
		return KindAudiobooks, nil
	case "ebook", "ebooks", "book":
		return KindEbook, nil
	case "both", "", "audiobooks & ebooks":
		return KindBoth, nil
	default:
		return "", fmt.Errorf("unknown media kind: %q (want audio, book or both)", s)
	}
}

// Protocol is a download protocol. The zero value means both.
type Protocol string

const (
	// ProtocolAny matches every protocol.
	ProtocolAny Protocol = ""
	// ProtocolUsenet is NZB downloads.
	ProtocolUsenet Protocol = "usenet"
	// ProtocolTorrent is torrent downloads.
	ProtocolTorrent Protocol = "torrent"
)

// String returns "both" for ProtocolAny.
func (p Protocol) String() string {
	if p == ProtocolAny {
		return "both"
	}
	return string(p)
}

// Icon returns the emoji shown next to the protocol.
func (p Protocol) Icon() string {
	switch p {
	case ProtocolUsenet:
		return "📡"
	case ProtocolTorrent:
		return "🧲"
	default:
		return "📡+🧲"
	}
}

// Matches reports whether a release protocol satisfies p. Comparison ignores case.
func (p Protocol) Matches(releaseProtocol string) bool {
	return p == ProtocolAny || strings.EqualFold(string(p), releaseProtocol)
}

// ParseProtocol parses a stored or user-supplied protocol. Accepts the
// CLI spellings "tor" and "nzb"; "both" and "" are ProtocolAny.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "torrent", "tor":
		return ProtocolTorrent, nil
	case "usenet", "nzb":
		return ProtocolUsenet, nil
	case "both", "", "none":
		return ProtocolAny, nil
	default:
		return "", fmt.Errorf("unknown protocol: %q (want tor, nzb or both)", s)
	}
}

// Mode records how a search was run.
type Mode string

const (
	// ModeInteractive shows full result cards and prompts for a selection.
	ModeInteractive Mode = "interactive"
	// ModeHeadless prints a condensed listing and exits.
	ModeHeadless Mode = "headless"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a stored mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interactive":
		return ModeInteractive, nil
	case "headless":
		return ModeHeadless, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}
