// Package query compiles nested field selections into parameterized GraphQL queries.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ArgsKey marks the argument map of a field inside a selection.
const ArgsKey = "__args"

// Selection is an ordered field -> sub-selection mapping. Values are either
// nested *Selection (an object field), or anything else (a leaf). Under ArgsKey
// the value is a *Selection of argument name -> scalar.
type Selection = orderedmap.OrderedMap[string, any]

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return orderedmap.New[string, any]()
}

// ParseSelection decodes a JSON object into a Selection, keeping key order at
// every level. Numbers are kept as json.Number so integers stay integers.
func ParseSelection(data []byte) (*Selection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("parse selection: expected a JSON object")
	}
	sel, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse selection: trailing data after object")
	}
	return sel, nil
}

// decodeObject reads key/value pairs until the closing brace; the opening brace is already consumed.
func decodeObject(dec *json.Decoder) (*Selection, error) {
	sel := NewSelection()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		sel.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // '}'
		return nil, err
	}
	return sel, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			var items []any
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return nil, err
			}
			return items, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return t, nil
	}
}
