// Package json provides helpers for inspecting raw JSON payloads returned by
// the Prowlarr API without decoding them into Go types.
//
// Prowlarr answers most endpoints with either the expected document or an
// error document, and error documents come in several shapes:
// 1. {"message": "..."} or {"error": "..."}
// 2. [{"propertyName": "...", "errorMessage": "..."}] (validation failures)
// 3. plain text or HTML from a reverse proxy
package json

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// maxPreview bounds the length of raw text quoted in error messages.
const maxPreview = 200

// IsArray reports whether body is a JSON array.
func IsArray(body []byte) bool {
	return gjson.ParseBytes(body).IsArray()
}

// ErrorMessage extracts a human-readable message from an error payload.
// Returns false if body does not look like an error document.
func ErrorMessage(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	doc := gjson.ParseBytes(body)

	if doc.IsObject() {
		for _, key := range []string{"message", "error", "errorMessage", "title"} {
			if v := doc.Get(key); v.Exists() && v.String() != "" {
				return v.String(), true
			}
		}
		return "", false
	}

	if doc.IsArray() {
		var msgs []string
		doc.ForEach(func(_, item gjson.Result) bool {
			if m := item.Get("errorMessage"); m.Exists() && m.String() != "" {
				msgs = append(msgs, m.String())
			}
			return true
		})
		if len(msgs) > 0 {
			return strings.Join(msgs, "; "), true
		}
	}
	return "", false
}

// Field returns the raw gjson result for path in body.
func Field(body []byte, path string) gjson.Result {
	return gjson.GetBytes(body, path)
}

// Preview returns a trimmed, length-bounded rendering of body for error messages.
func Preview(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > maxPreview {
		return string(trimmed[:maxPreview]) + "..."
	}
	return string(trimmed)
}
