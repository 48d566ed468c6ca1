package flexconfig

import (
	"sort"
	"strings"
	"sync"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

// Separator is the canonical hierarchical key separator. Dotted paths are
// accepted on lookup and normalized to this form.
const Separator = flatmap.Separator

// entry is a single merged configuration value. The original key casing is
// preserved for enumeration; lookups are case-insensitive.
type entry struct {
	key    string
	value  *string
	source string
}

// layer is one feeder's snapshot, kept so reload can replace a single
// feeder's contribution while retaining the rest.
type layer struct {
	name   string
	values map[string]entry
}

// store holds the merged configuration view. Reads take a shared lock;
// rebuilds swap the merged map wholesale and bump the version counter, which
// doubles as the change token.
type store struct {
	mu      sync.RWMutex
	layers  []*layer
	merged  map[string]entry
	version uint64
}

func newStore() *store {
	return &store{merged: make(map[string]entry)}
}

// normalizeKey lower-cases a path and converts dotted navigation to the
// canonical colon form. Leading and trailing separators are tolerated.
func normalizeKey(path string) string {
	path = strings.ReplaceAll(path, ".", Separator)
	path = strings.Trim(path, Separator)
	return strings.ToLower(path)
}

func newLayer(name string, snapshot map[string]*string) *layer {
	values := make(map[string]entry, len(snapshot))
	for key, val := range snapshot {
		norm := normalizeKey(key)
		if norm == "" {
			continue
		}
		values[norm] = entry{key: strings.Trim(strings.ReplaceAll(key, ".", Separator), Separator), value: val, source: name}
	}
	return &layer{name: name, values: values}
}

// setLayers replaces the full layer list and rebuilds the merged view.
// Returns true when the merged data changed.
func (s *store) setLayers(layers []*layer) bool {
	merged := make(map[string]entry)
	for _, l := range layers {
		for key, e := range l.values {
			merged[key] = e
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	changed := !mergedEqual(s.merged, merged)
	s.layers = layers
	s.merged = merged
	if changed {
		s.version++
	}
	return changed
}

func mergedEqual(a, b map[string]entry) bool {
	if len(a) != len(b) {
		return false
	}
	for key, ea := range a {
		eb, ok := b[key]
		if !ok {
			return false
		}
		if (ea.value == nil) != (eb.value == nil) {
			return false
		}
		if ea.value != nil && *ea.value != *eb.value {
			return false
		}
	}
	return true
}

func (s *store) lookup(path string) (entry, bool) {
	norm := normalizeKey(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.merged[norm]
	return e, ok
}

func (s *store) currentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// children returns the immediate child segment names under the given path,
// in original casing, sorted. The empty path enumerates root keys.
func (s *store) children(path string) []string {
	prefix := normalizeKey(path)
	depth := segmentCount(prefix)
	if prefix != "" {
		prefix += Separator
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]string)
	for norm, e := range s.merged {
		if !strings.HasPrefix(norm, prefix) {
			continue
		}
		rest := norm[len(prefix):]
		segment, _, _ := strings.Cut(rest, Separator)
		if segment == "" {
			continue
		}
		if _, ok := seen[segment]; !ok {
			// Case folding can change byte lengths, so the original-cased
			// key is trimmed by segment count, not by prefix length.
			origRest := trimSegments(e.key, depth)
			origSegment, _, _ := strings.Cut(origRest, Separator)
			seen[segment] = origSegment
		}
	}

	names := make([]string, 0, len(seen))
	for _, orig := range seen {
		names = append(names, orig)
	}
	sort.Strings(names)
	return names
}

// flat returns all keys under path, relative to it, in original casing.
func (s *store) flat(path string) map[string]*string {
	prefix := normalizeKey(path)
	depth := segmentCount(prefix)
	if prefix != "" {
		prefix += Separator
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*string)
	for norm, e := range s.merged {
		if !strings.HasPrefix(norm, prefix) {
			continue
		}
		rest := trimSegments(e.key, depth)
		if rest == "" {
			continue
		}
		out[rest] = e.value
	}
	return out
}

// segmentCount returns the number of separator-delimited segments in a
// normalized key; the empty key has zero.
func segmentCount(key string) int {
	if key == "" {
		return 0
	}
	return strings.Count(key, Separator) + 1
}

// trimSegments removes n leading segments from a key, returning the rest.
func trimSegments(key string, n int) string {
	for ; n > 0; n-- {
		_, rest, ok := strings.Cut(key, Separator)
		if !ok {
			return ""
		}
		key = rest
	}
	return key
}

// exists reports whether path itself holds a value or has descendants.
func (s *store) exists(path string) bool {
	norm := normalizeKey(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.merged[norm]; ok {
		return true
	}
	prefix := norm + Separator
	for key := range s.merged {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
