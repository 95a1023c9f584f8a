package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
	errs "xqtimeline/pkg/errors"
)

// Entry is one timeline post. Only the id is interpreted, the rest of the
// object is kept as an opaque payload in canonical compact form.
type Entry struct {
	ID  int64
	raw []byte
}

// NewEntry validates raw as a JSON object with an integer "id" and
// canonicalizes it.
func NewEntry(raw []byte) (Entry, error) {
	if !gjson.ValidBytes(raw) {
		return Entry{}, errs.New(errs.ErrorTypeParsing, "decode entry", "invalid JSON")
	}

	obj := gjson.ParseBytes(raw)
	if !obj.IsObject() {
		return Entry{}, errs.New(errs.ErrorTypeParsing, "decode entry", "entry is not a JSON object")
	}

	idField := obj.Get("id")
	if idField.Type != gjson.Number {
		return Entry{}, errs.New(errs.ErrorTypeParsing, "decode entry", "entry has no numeric id")
	}
	id, err := strconv.ParseInt(idField.Raw, 10, 64)
	if err != nil {
		return Entry{}, errs.Wrap(fmt.Errorf("id %s is not an integer: %w", idField.Raw, err), errs.ErrorTypeParsing, "decode entry")
	}

	return Entry{ID: id, raw: canonicalize(raw)}, nil
}

// MustEntry is NewEntry for literals known to be valid; it panics otherwise
func MustEntry(raw string) Entry {
	e, err := NewEntry([]byte(raw))
	if err != nil {
		panic(err)
	}
	return e
}

// Raw returns the canonical JSON of the entry
func (e Entry) Raw() []byte {
	return e.raw
}

// Get reads a field of the payload with a gjson path
func (e Entry) Get(path string) gjson.Result {
	return gjson.GetBytes(e.raw, path)
}

// Equal reports whether both entries hold the same logical content
func (e Entry) Equal(other Entry) bool {
	return e.ID == other.ID && bytes.Equal(e.raw, other.raw)
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.raw == nil {
		return []byte("null"), nil
	}
	return e.raw, nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	entry, err := NewEntry(data)
	if err != nil {
		return err
	}
	*e = entry
	return nil
}

// Canonicalize returns raw with object keys sorted at every depth and all
// insignificant whitespace removed. Numbers are kept verbatim; strings are
// re-encoded so equivalent escapes ("\/" and "/") produce the same bytes.
// A key repeated within one object keeps its last value.
func Canonicalize(raw []byte) ([]byte, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errs.New(errs.ErrorTypeParsing, "canonicalize", "invalid JSON")
	}
	return canonicalize(raw), nil
}

func canonicalize(raw []byte) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, gjson.ParseBytes(raw))
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v gjson.Result) {
	switch {
	case v.IsObject():
		values := map[string]gjson.Result{}
		var keys []string
		v.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if _, seen := values[k]; !seen {
				keys = append(keys, k)
			}
			values[k] = value
			return true
		})
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, values[k])
		}
		buf.WriteByte('}')
	case v.IsArray():
		buf.WriteByte('[')
		i := 0
		v.ForEach(func(_, value gjson.Result) bool {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, value)
			i++
			return true
		})
		buf.WriteByte(']')
	case v.Type == gjson.String:
		writeString(buf, v.String())
	default:
		buf.WriteString(v.Raw)
	}
}

// writeString encodes s with the minimal escapes, HTML characters untouched
func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
