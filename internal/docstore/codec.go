package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mkandawire/docket/internal/domain"
)

// encodePayload serializes a payload for storage. Top-level and nested nil
// values are stripped first: an absent field and a field set to nil are
// indistinguishable to callers, and storing nulls would make json_patch
// merges delete fields by accident.
func encodePayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := json.Marshal(stripNils(payload))
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

// jsonMarshal serializes a merge patch verbatim: nils survive because they
// are the patch format's field deletions.
func jsonMarshal(m map[string]any) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return string(data), nil
}

// stripNils returns a copy of m without nil values, recursing into nested
// objects and arrays.
func stripNils(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = stripNilsValue(v)
	}
	return out
}

func stripNilsValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return stripNils(val)
	case []any:
		out := make([]any, 0, len(val))
		for _, elem := range val {
			// nil array elements are positional; they stay.
			if elem == nil {
				out = append(out, nil)
				continue
			}
			out = append(out, stripNilsValue(elem))
		}
		return out
	default:
		return v
	}
}

// decodePayload parses stored JSON back into a native map. Numbers decode
// as json.Number so large integers survive the round trip. Malformed or
// non-object data reports domain.ErrCorruptRecord.
func decodePayload(id, data string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("record %q: %w: %v", id, domain.ErrCorruptRecord, err)
	}
	return payload, nil
}

// ToPayload converts a typed value (struct with json tags) to the generic
// payload form the engine stores. Used by higher layers that keep typed
// entities over schemaless collections.
func ToPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("to payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("to payload: %w", err)
	}
	return payload, nil
}

// FromPayload converts a generic payload back into a typed value.
func FromPayload(payload map[string]any, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("from payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("from payload: %w", err)
	}
	return nil
}
