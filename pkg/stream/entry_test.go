package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
		want  Entry
	}{
		{
			name:  "add",
			event: "add",
			data:  `{"text":"hello"}`,
			want:  Entry{Kind: KindText, Text: "hello"},
		},
		{
			name:  "keywords are space joined",
			event: "processing",
			data:  `{"type":"keyword","data":["a","b","c"]}`,
			want:  Entry{Kind: KindKeyword, Text: "a b c"},
		},
		{
			name:  "keywords trimmed",
			event: "processing",
			data:  `{"type":"keyword","data":[" a","b "]}`,
			want:  Entry{Kind: KindKeyword, Text: "a b"},
		},
		{
			name:  "finish",
			event: "finish",
			data:  `{"text":"bye"}`,
			want:  Entry{Kind: KindFinish, Text: "bye"},
		},
		{
			name:  "finish without text",
			event: "finish",
			data:  `{}`,
			want:  Entry{Kind: KindFinish},
		},
		{
			name:  "finish with scalar data",
			event: "finish",
			data:  `null`,
			want:  Entry{Kind: KindFinish},
		},
		{
			name:  "unknown event",
			event: "ping",
			data:  `{"text":"x"}`,
			want:  Entry{},
		},
		{
			name:  "empty event",
			event: "",
			data:  `{"text":"x"}`,
			want:  Entry{},
		},
		{
			name:  "empty object",
			event: "add",
			data:  `{}`,
			want:  Entry{},
		},
		{
			name:  "array payload",
			event: "add",
			data:  `["x"]`,
			want:  Entry{},
		},
		{
			name:  "unknown processing type",
			event: "processing",
			data:  `{"type":"thinking","data":"x"}`,
			want:  Entry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEntry(tt.event, json.RawMessage(tt.data))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind == KindNone, got.IsZero())
		})
	}
}

func TestParseEntry_Crawl(t *testing.T) {
	entry := ParseEntry("processing", json.RawMessage(`{"type":"crawl","data":{"1":{"status":"ok","url":"http://x","title":"X"}}}`))

	require.Equal(t, KindCrawl, entry.Kind)
	require.Len(t, entry.Websites, 1)
	assert.Equal(t, WebsiteReference{Citation: "1", Status: "ok", URL: "http://x", Title: "X"}, entry.Websites[0])
}

func TestParseEntry_CrawlManyKeys(t *testing.T) {
	entry := ParseEntry("processing", json.RawMessage(`{"type":"crawl","data":{"2":{"url":"b"},"1":{"url":"a"},"3":{"url":"c"}}}`))

	require.Len(t, entry.Websites, 3)
	byKey := map[string]string{}
	for _, w := range entry.Websites {
		byKey[w.Citation] = w.URL
	}
	assert.Equal(t, map[string]string{"1": "a", "2": "b", "3": "c"}, byKey)
}
