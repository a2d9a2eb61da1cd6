package stream

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/kcaldas/copilot/pkg/logging"
)

// Record is one decoded unit of the chat event stream.
type Record struct {
	Event string
	ID    string
	Data  json.RawMessage
}

// Decoder turns the raw bytes of one connection into Records. It keeps the
// most recent event and id across reads and holds back any trailing partial
// line until the next Feed, so the way bytes are split across reads does not
// change the decoded output.
//
// A Decoder is not safe for concurrent use; one connection owns one Decoder.
type Decoder struct {
	event   string
	id      string
	pending []byte
	logger  logging.Logger
}

// NewDecoder creates a Decoder. A nil logger falls back to a component logger.
func NewDecoder(logger logging.Logger) *Decoder {
	if logger == nil {
		logger = logging.NewComponentLogger("stream")
	}
	return &Decoder{logger: logger}
}

// Feed decodes every complete line in chunk (plus anything held back from the
// previous call) and returns the records in arrival order.
//
// A data line that is not valid JSON is skipped, unless the current event is
// finish: then, as for finish data that is not a JSON object, a finish record
// with empty data is returned in its place and the remaining lines of this
// chunk are dropped.
func (d *Decoder) Feed(chunk []byte) []Record {
	d.pending = append(d.pending, chunk...)

	cut := bytes.LastIndexByte(d.pending, '\n')
	if cut < 0 {
		return nil
	}
	complete := d.pending[:cut]
	d.pending = append([]byte(nil), d.pending[cut+1:]...)

	return d.decodeLines(complete)
}

// Flush decodes a final unterminated line, if any. Call it once the body is exhausted.
func (d *Decoder) Flush() []Record {
	if len(d.pending) == 0 {
		return nil
	}
	rest := d.pending
	d.pending = nil
	return d.decodeLines(rest)
}

func (d *Decoder) decodeLines(block []byte) []Record {
	var records []Record
	for _, raw := range bytes.Split(block, []byte{'\n'}) {
		line := toText(bytes.TrimSuffix(raw, []byte{'\r'}))

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		switch key {
		case "event":
			d.event = strings.TrimSpace(value)
		case "id":
			d.id = strings.TrimSpace(value)
		case "data":
			payload := strings.TrimSpace(value)
			recordsTotal.WithLabelValues(d.event).Inc()
			if !json.Valid([]byte(payload)) || (d.event == EventFinish && !isObject(payload)) {
				parseErrorsTotal.WithLabelValues(d.event).Inc()
				d.logger.Warn("invalid json in stream data", "event", d.event, "id", d.id)
				if d.event == EventFinish {
					return append(records, Record{Event: EventFinish, ID: d.id})
				}
				continue
			}
			records = append(records, Record{Event: d.event, ID: d.id, Data: json.RawMessage(payload)})
		}
	}
	return records
}

func isObject(payload string) bool {
	return strings.HasPrefix(payload, "{")
}

// toText decodes b as UTF-8, replacing invalid sequences.
func toText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// Decode is a convenience that maps a Record to its Entry.
func Decode(r Record) Entry {
	entry := ParseEntry(r.Event, r.Data)
	entry.ID = r.ID
	return entry
}
