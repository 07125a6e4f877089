package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Source is a read-only view over configuration values addressed by dotted
// keys such as "render.mode".
type Source interface {
	Get(key string, def any) any
	Has(key string) bool
}

// MapSource is a Source over a flattened document.
type MapSource map[string]any

// NewMapSource flattens a nested YAML document into dotted keys. Lists are
// kept as leaf values.
func NewMapSource(doc map[string]any) MapSource {
	out := MapSource{}
	flatten("", doc, out)
	return out
}

func flatten(prefix string, node map[string]any, out MapSource) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// Get returns the value at key, or def when absent.
func (s MapSource) Get(key string, def any) any {
	if v, ok := s[key]; ok && v != nil {
		return v
	}
	return def
}

// Has reports whether key is present.
func (s MapSource) Has(key string) bool {
	v, ok := s[key]
	return ok && v != nil
}

// Keys returns every key in sorted order.
func (s MapSource) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// String reads key as a string.
func String(src Source, key, def string) string {
	switch v := src.Get(key, def).(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Bool reads key as a boolean. Strings such as "true", "1" and "off" are
// accepted since values may come from environment expansion.
func Bool(src Source, key string, def bool) (bool, error) {
	switch v := src.Get(key, def).(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return def, nil
		case "on", "yes":
			return true, nil
		case "off", "no":
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def, fmt.Errorf("%s: %q is not a boolean", key, v)
		}
		return b, nil
	default:
		return def, fmt.Errorf("%s: unexpected type %T", key, v)
	}
}

// Int reads key as an integer.
func Int(src Source, key string, def int) (int, error) {
	switch v := src.Get(key, def).(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def, fmt.Errorf("%s: %q is not an integer", key, v)
		}
		return n, nil
	default:
		return def, fmt.Errorf("%s: unexpected type %T", key, v)
	}
}
