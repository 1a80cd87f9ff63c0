package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSONArray means the text held no parseable JSON array.
var ErrNoJSONArray = errors.New("no JSON array found in text")

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// maxScanStarts bounds how many '[' or '{' positions are tried in prose.
const maxScanStarts = 64

// ExtractJSONArray pulls a JSON array out of model output. It accepts a bare
// array, a markdown-fenced block, an array embedded in prose, and an object
// wrapper: the "clips" member when it is an array, otherwise the first
// non-empty array member in key order.
func ExtractJSONArray(text string) (json.RawMessage, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, ErrNoJSONArray
	}
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	if arr, ok := arrayFrom([]byte(raw)); ok {
		return arr, nil
	}
	for _, open := range []string{"[", "{"} {
		if arr, ok := scanFor(raw, open); ok {
			return arr, nil
		}
	}
	return nil, ErrNoJSONArray
}

// DecodeJSONArray extracts an array from text and decodes it into []T.
func DecodeJSONArray[T any](text string) ([]T, error) {
	arr, err := ExtractJSONArray(text)
	if err != nil {
		return nil, err
	}
	var out []T
	if err = json.Unmarshal(arr, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// scanFor tries to decode one JSON value at each occurrence of open, ignoring
// whatever follows the value.
func scanFor(raw, open string) (json.RawMessage, bool) {
	offset := 0
	for tries := 0; tries < maxScanStarts; tries++ {
		idx := strings.Index(raw[offset:], open)
		if idx < 0 {
			return nil, false
		}
		start := offset + idx
		dec := json.NewDecoder(strings.NewReader(raw[start:]))
		var v json.RawMessage
		if err := dec.Decode(&v); err == nil {
			if arr, ok := arrayFrom(v); ok {
				return arr, true
			}
		}
		offset = start + 1
	}
	return nil, false
}

func arrayFrom(data []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, false
	}
	switch trimmed[0] {
	case '[':
		return json.RawMessage(trimmed), true
	case '{':
		return arrayMember(trimmed)
	}
	return nil, false
}

func arrayMember(obj []byte) (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}

	var first json.RawMessage
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, _ := keyTok.(string)

		var val json.RawMessage
		if err = dec.Decode(&val); err != nil {
			return nil, false
		}
		val = bytes.TrimSpace(val)
		if len(val) == 0 || val[0] != '[' {
			continue
		}
		if key == "clips" {
			return val, true
		}
		if first == nil && !isEmptyArray(val) {
			first = val
		}
	}
	return first, first != nil
}

func isEmptyArray(val json.RawMessage) bool {
	var items []json.RawMessage
	return json.Unmarshal(val, &items) == nil && len(items) == 0
}
