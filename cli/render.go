package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/richinex/booksearch/model"
	"github.com/richinex/booksearch/storage"
)

var (
	heavyRule = strings.Repeat("═", 50)
	lightRule = strings.Repeat("─", 50)
	wideRule  = strings.Repeat("═", 60)
)

// renderResults prints one card per release, a summary and the grab hint.
// releases must already be in display order.
func renderResults(w io.Writer, releases []model.Release, id int, program string) {
	fmt.Fprintln(w, "\n📚 Search Results Found 📚")
	fmt.Fprintln(w, "═══════════════════════")
	fmt.Fprintf(w, "Found %d items\n\n", len(releases))

	for i, r := range releases {
		writeTitleBox(w, fmt.Sprintf("【%d】%s", i+1, r.Title()))
		fmt.Fprintf(w, "  📦 Size:          %s\n", model.FormatSize(r.Size()))
		fmt.Fprintf(w, "  📅 Published:     %s\n", r.PublishedDay())
		fmt.Fprintf(w, "  🔌 Protocol:      %s %s\n", r.ProtocolIcon(), orNA(r.Protocol()))
		fmt.Fprintf(w, "  🔍 Indexer:       %s\n", orNA(r.Indexer()))
		fmt.Fprintf(w, "  ⚡ Status:        %s\n\n", r.Status())
	}

	fmt.Fprintln(w, "\n"+heavyRule)
	fmt.Fprintln(w, "📊 Search Summary")
	fmt.Fprintln(w, lightRule)
	fmt.Fprintf(w, "🔍 Found: %d items\n", len(releases))
	fmt.Fprintf(w, "🔌 Protocols: %s\n", protocolList(releases))
	fmt.Fprintf(w, "🌐 Sites: %s\n", strings.Join(model.Indexers(releases), ", "))
	fmt.Fprintln(w, heavyRule)

	fmt.Fprintln(w, "\n"+wideRule)
	fmt.Fprintln(w, "✨ Search saved! To download later, use this ID: ✨")
	fmt.Fprintf(w, "🔑 Search ID: #%d\n", id)
	fmt.Fprintln(w, wideRule)
	fmt.Fprintln(w, "\nTo download, use:")
	fmt.Fprintf(w, "%s -s %d -g <result_number>\n", program, id)
}

// writeTitleBox draws a box sized to the title's display width.
func writeTitleBox(w io.Writer, title string) {
	width := runewidth.StringWidth(title)
	inner := width + 6
	fmt.Fprintf(w, "┌%s┐\n", strings.Repeat("─", inner))
	fmt.Fprintf(w, "│ %s%s│\n", title, strings.Repeat(" ", inner-width-1))
	fmt.Fprintf(w, "└%s┘\n", strings.Repeat("─", inner))
}

// renderHeadless prints the condensed listing and search summary.
func renderHeadless(w io.Writer, releases []model.Release, rec storage.SearchRecord, program string, retention time.Duration) {
	fmt.Fprintln(w, "\n📚 Results:")
	fmt.Fprintln(w, lightRule)
	for i, r := range releases {
		fmt.Fprintf(w, "%2d. %s [%s] %s\n", i+1, r.ProtocolIcon(), model.FormatSizeCompact(r.Size()), r.Title())
	}

	fmt.Fprintln(w, "\n"+wideRule)
	fmt.Fprintln(w, "✨ Search Summary ✨")
	fmt.Fprintln(w, wideRule)
	fmt.Fprintf(w, "🔑 Search ID:  #%d\n", rec.ID)
	fmt.Fprintf(w, "🔍 Term:       %s\n", rec.Term)
	fmt.Fprintf(w, "🧩 Kind:       %s %s\n", rec.Kind.Icon(), rec.Kind)
	fmt.Fprintf(w, "🔌 Protocol:   %s %s\n", rec.Protocol.Icon(), rec.Protocol)
	fmt.Fprintf(w, "📊 Results:    %d items found\n", len(releases))
	fmt.Fprintf(w, "🔗 Available:  %s\n", protocolList(releases))
	fmt.Fprintf(w, "🌐 Sites:      %s\n", strings.Join(model.Indexers(releases), ", "))
	fmt.Fprintln(w, wideRule)

	fmt.Fprintln(w, "\n📝 To download a result, use:")
	fmt.Fprintf(w, "%s -s %d -g <result_number>\n", program, rec.ID)
	fmt.Fprintf(w, "\n⏰ Results will be available %s\n", retentionText(retention))
	fmt.Fprintln(w, wideRule)
}

// renderCacheList prints one entry per cached search.
func renderCacheList(w io.Writer, records []storage.SearchRecord, now time.Time, program string) {
	fmt.Fprintln(w, "\n📚 Cached Searches")
	fmt.Fprintln(w, "═══════════════════")
	for _, rec := range records {
		fmt.Fprintf(w, "\n[%d] %s\n", rec.ID, rec.Term)
		fmt.Fprintf(w, "  🧩 Kind: %s %s\n", rec.Kind.Icon(), rec.Kind)
		fmt.Fprintf(w, "  🔌 Protocol: %s %s\n", rec.Protocol.Icon(), rec.Protocol)
		fmt.Fprintf(w, "  ⏰ Age:  %s\n", humanize.RelTime(rec.Timestamp, now, "ago", "from now"))
		fmt.Fprintf(w, "  💾 Size: %s\n", humanize.IBytes(uint64(max(rec.Size, 0))))
	}
	fmt.Fprintln(w, "\n✨ To view details of a specific search, use:")
	fmt.Fprintf(w, "%s --list-cache <search_id>\n", program)
}

func renderGrabbed(w io.Writer, r model.Release) {
	fmt.Fprintln(w, "\n✨ Successfully sent to download client!")
	fmt.Fprintln(w, "📥 Title:")
	fmt.Fprintf(w, "    %s\n", r.Title())
}

// protocolList renders the distinct protocols with their icons.
func protocolList(releases []model.Release) string {
	names := model.Protocols(releases)
	parts := make([]string, len(names))
	for i, p := range names {
		icon := model.ProtocolTorrent.Icon()
		if strings.EqualFold(p, string(model.ProtocolUsenet)) {
			icon = model.ProtocolUsenet.Icon()
		}
		parts[i] = icon + " " + p
	}
	return strings.Join(parts, ", ")
}

// retentionText describes how long a record survives the age limit.
func retentionText(maxAge time.Duration) string {
	switch {
	case maxAge <= 0:
		return "until the cache is cleared"
	case maxAge%(24*time.Hour) == 0:
		days := int(maxAge / (24 * time.Hour))
		if days == 1 {
			return "for 1 day"
		}
		return fmt.Sprintf("for %d days", days)
	default:
		return fmt.Sprintf("for %s", humanize.Comma(int64(maxAge/time.Hour))+" hours")
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
