package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/booksearch/model"
)

// Metadata file keys, written in this order.
const (
	metaTerm      = "term"
	metaKind      = "kind"
	metaProtocol  = "protocol"
	metaTimestamp = "timestamp"
	metaMode      = "mode"
)

// encodeMeta renders record metadata as key="value" lines. Values are Go
// quoted strings so any term, including newlines and quotes, round-trips.
// The format is parsed, never evaluated.
func encodeMeta(rec SearchRecord) []byte {
	var buf bytes.Buffer
	write := func(key, value string) {
		buf.WriteString(key)
		buf.WriteByte('=')
		buf.WriteString(strconv.Quote(value))
		buf.WriteByte('\n')
	}
	write(metaTerm, rec.Term)
	write(metaKind, rec.Kind.String())
	write(metaProtocol, string(rec.Protocol))
	write(metaTimestamp, rec.Timestamp.Format(time.RFC3339Nano))
	write(metaMode, rec.Mode.String())
	return buf.Bytes()
}

// decodeMeta parses a metadata file into rec. Unknown keys are ignored;
// every known key is required.
func decodeMeta(data []byte, rec *SearchRecord) error {
	values := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, raw, ok := strings.Cut(text, "=")
		if !ok {
			return fmt.Errorf("line %d: missing '='", line)
		}
		value, err := strconv.Unquote(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("line %d: bad value for %q: %w", line, key, err)
		}
		values[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, key := range []string{metaTerm, metaKind, metaProtocol, metaTimestamp, metaMode} {
		if _, ok := values[key]; !ok {
			return fmt.Errorf("missing key %q", key)
		}
	}

	kind, err := model.ParseKind(values[metaKind])
	if err != nil {
		return err
	}
	protocol, err := model.ParseProtocol(values[metaProtocol])
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(values[metaMode])
	if err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, values[metaTimestamp])
	if err != nil {
		return fmt.Errorf("bad timestamp: %w", err)
	}

	rec.Term = values[metaTerm]
	rec.Kind = kind
	rec.Protocol = protocol
	rec.Mode = mode
	rec.Timestamp = ts
	return nil
}
