package stream

import (
	"encoding/json"
	"sort"
	"strings"
)

// Kind classifies a decoded Entry.
type Kind string

const (
	KindNone    Kind = ""
	KindText    Kind = "text"
	KindKeyword Kind = "keyword"
	KindCrawl   Kind = "crawl"
	KindFinish  Kind = "finish"
)

// Event names used by the chat stream.
const (
	EventAdd        = "add"
	EventProcessing = "processing"
	EventFinish     = "finish"
)

// WebsiteReference is a citation produced by an online-search crawl.
type WebsiteReference struct {
	Citation string `json:"citation"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

// Entry is the normalized form of one Record.
type Entry struct {
	ID       string
	Kind     Kind
	Text     string
	Websites []WebsiteReference
}

// IsZero reports whether the entry carries nothing a subscriber should act on.
func (e Entry) IsZero() bool {
	return e.Kind == KindNone
}

type processingPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textPayload struct {
	Text string `json:"text"`
}

type crawlItem struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// ParseEntry maps an event name and its JSON object to an Entry. Finish always
// yields a finish Entry, with empty text when data carries none. For other
// events, unknown names, empty objects and payloads of the wrong shape yield
// an Entry with KindNone.
func ParseEntry(event string, data json.RawMessage) Entry {
	if event == EventFinish {
		var p textPayload
		_ = json.Unmarshal(data, &p)
		return Entry{Kind: KindFinish, Text: p.Text}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || len(fields) == 0 {
		return Entry{}
	}

	switch event {
	case EventAdd:
		var p textPayload
		_ = json.Unmarshal(data, &p)
		return Entry{Kind: KindText, Text: p.Text}

	case EventProcessing:
		var p processingPayload
		_ = json.Unmarshal(data, &p)
		switch p.Type {
		case string(KindKeyword):
			return Entry{Kind: KindKeyword, Text: joinKeywords(p.Data)}
		case string(KindCrawl):
			return Entry{Kind: KindCrawl, Websites: parseCrawl(p.Data)}
		}
		return Entry{}
	}

	return Entry{}
}

func joinKeywords(raw json.RawMessage) string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}

	var b strings.Builder
	for _, item := range items {
		var s string
		// non-string items contribute an empty keyword
		_ = json.Unmarshal(item, &s)
		b.WriteString(s)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

func parseCrawl(raw json.RawMessage) []WebsiteReference {
	var items map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	websites := make([]WebsiteReference, 0, len(keys))
	for _, key := range keys {
		var item crawlItem
		_ = json.Unmarshal(items[key], &item)
		websites = append(websites, WebsiteReference{
			Citation: key,
			Status:   item.Status,
			URL:      item.URL,
			Title:    item.Title,
		})
	}
	return websites
}
