// Package flatmap converts between nested configuration structures and the
// flat colon-delimited key form used by the layered store. Keys follow the
// standard hierarchical configuration convention: "Database:ConnectionString",
// array elements indexed as "Servers:0".
package flatmap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Separator is the canonical hierarchical key separator.
const Separator = ":"

// Flatten walks a nested structure (as produced by the JSON, YAML and TOML
// decoders) and emits flat colon-delimited keys. Scalar values are rendered
// as strings; explicit nulls are kept as nil entries so callers can
// distinguish "present but null" from "absent".
func Flatten(data any) map[string]*string {
	out := make(map[string]*string)
	flattenInto(out, "", data)
	return out
}

func flattenInto(out map[string]*string, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 && prefix != "" {
			out[prefix] = nil
			return
		}
		for k, child := range val {
			flattenInto(out, joinKey(prefix, k), child)
		}
	case map[any]any:
		// Older YAML decoders produce interface-keyed maps.
		for k, child := range val {
			flattenInto(out, joinKey(prefix, stringify(k)), child)
		}
	case []any:
		if len(val) == 0 && prefix != "" {
			out[prefix] = nil
			return
		}
		for i, child := range val {
			flattenInto(out, joinKey(prefix, strconv.Itoa(i)), child)
		}
	case nil:
		if prefix != "" {
			out[prefix] = nil
		}
	default:
		if prefix == "" {
			return
		}
		s := stringify(val)
		out[prefix] = &s
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Separator + key
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		// JSON numbers arrive as float64; render integral values without
		// a fractional part so "8080" survives a JSON round trip.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

// Unflatten rebuilds a nested map from flat colon-delimited keys. Key
// segments that form a dense zero-based integer sequence become slices, so
// "Servers:0" and "Servers:1" round-trip to a two-element array.
func Unflatten(flat map[string]*string) map[string]any {
	root := newNode()
	for key, value := range flat {
		segments := strings.Split(key, Separator)
		insert(root, segments, value)
	}
	built := build(root)
	if m, ok := built.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

type node struct {
	children map[string]*node
	value    *string
	hasValue bool
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func insert(n *node, segments []string, value *string) {
	if len(segments) == 0 {
		n.value = value
		n.hasValue = true
		return
	}
	child, ok := n.children[segments[0]]
	if !ok {
		child = newNode()
		n.children[segments[0]] = child
	}
	insert(child, segments[1:], value)
}

func build(n *node) any {
	if len(n.children) == 0 {
		if n.value == nil {
			return nil
		}
		return *n.value
	}

	if indexes, ok := sequentialIndexes(n.children); ok {
		arr := make([]any, len(indexes))
		for i, key := range indexes {
			arr[i] = build(n.children[key])
		}
		return arr
	}

	m := make(map[string]any, len(n.children))
	for key, child := range n.children {
		m[key] = build(child)
	}
	return m
}

// sequentialIndexes reports whether every child key is a non-negative integer
// forming a dense sequence starting at zero, returning the keys in order.
func sequentialIndexes(children map[string]*node) ([]string, bool) {
	keys := make([]string, 0, len(children))
	for key := range children {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return nil, false
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
	for i, key := range keys {
		if key != strconv.Itoa(i) {
			return nil, false
		}
	}
	return keys, true
}
