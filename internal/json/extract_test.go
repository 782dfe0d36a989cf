package json

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"message object", `{"message":"Indexer unavailable"}`, "Indexer unavailable", true},
		{"error object", `{"error":"Unauthorized"}`, "Unauthorized", true},
		{"validation array", `[{"propertyName":"Query","errorMessage":"must not be empty"},{"errorMessage":"bad type"}]`, "must not be empty; bad type", true},
		{"release array", `[{"title":"Dune","guid":"x"}]`, "", false},
		{"object without message", `{"id":1}`, "", false},
		{"empty message", `{"message":""}`, "", false},
		{"not json", `<html>502 Bad Gateway</html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ErrorMessage([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapes(t *testing.T) {
	assert.True(t, IsArray([]byte(` [ ] `)))
	assert.False(t, IsArray([]byte(`{}`)))
}

func TestField(t *testing.T) {
	body := []byte(`{"guid":"abc","indexerId":12}`)
	assert.Equal(t, "abc", Field(body, "guid").String())
	assert.Equal(t, int64(12), Field(body, "indexerId").Int())
	assert.False(t, Field(body, "missing").Exists())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview([]byte("  short\n")))

	long := strings.Repeat("x", 500)
	p := Preview([]byte(long))
	assert.Len(t, p, maxPreview+3)
	assert.True(t, strings.HasSuffix(p, "..."))
}
