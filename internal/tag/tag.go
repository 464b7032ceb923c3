// Package tag implements the key/value tree that mission state is saved into.
//
// A Compound holds ints, strings, bools, nested compounds and lists of those.
// Values read back from a decoded save arrive as json.Number, []any and
// map[string]any; the typed getters accept both the in-memory and the decoded
// representation so callers never care which side of a save they are on.
package tag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Compound is a single node of saved data.
type Compound map[string]any

// New returns an empty compound.
func New() Compound { return Compound{} }

// Set stores v under key, replacing any previous value.
func (c Compound) Set(key string, v any) {
	c[key] = v
}

// Has reports whether key is present.
func (c Compound) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// GetInt returns the integer stored under key.
func (c Compound) GetInt(key string) (int, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// GetString returns the string stored under key.
func (c Compound) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// GetBool returns the bool stored under key.
func (c Compound) GetBool(key string) (bool, bool) {
	b, ok := c[key].(bool)
	return b, ok
}

// GetCompound returns the nested compound stored under key.
func (c Compound) GetCompound(key string) (Compound, bool) {
	v, ok := c[key]
	if !ok {
		return nil, false
	}
	return toCompound(v)
}

// GetCompoundList returns the list of compounds stored under key.
// Any element that is not a compound makes the whole lookup fail.
func (c Compound) GetCompoundList(key string) ([]Compound, bool) {
	switch list := c[key].(type) {
	case []Compound:
		return list, true
	case []any:
		out := make([]Compound, 0, len(list))
		for _, item := range list {
			sub, ok := toCompound(item)
			if !ok {
				return nil, false
			}
			out = append(out, sub)
		}
		return out, true
	default:
		return nil, false
	}
}

// GetStringList returns the list of strings stored under key.
func (c Compound) GetStringList(key string) ([]string, bool) {
	switch list := c[key].(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// GetIntList returns the list of integers stored under key.
func (c Compound) GetIntList(key string) ([]int, bool) {
	switch list := c[key].(type) {
	case []int:
		return list, true
	case []any:
		out := make([]int, 0, len(list))
		for _, item := range list {
			n, ok := toInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

// Marshal encodes a compound for durable storage.
func Marshal(c Compound) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("tag: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal decodes bytes produced by Marshal. Numbers are kept exact.
func Unmarshal(data []byte) (Compound, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tag: unmarshal: %w", err)
	}
	if raw == nil {
		return New(), nil
	}
	return Compound(raw), nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func toCompound(v any) (Compound, bool) {
	switch m := v.(type) {
	case Compound:
		return m, true
	case map[string]any:
		return Compound(m), true
	default:
		return nil, false
	}
}
