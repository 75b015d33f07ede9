package vars

import (
	"fmt"
	"strings"
)

// Store is the mutable variable table for one run. It is seeded from the
// task document's variables section and grows as tasks and helpers record
// their output and input. Values keep their decoded YAML types because an
// iteration source may name a variable holding a sequence.
type Store struct {
	values map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{values: map[string]any{}}
}

// Seed copies all entries from m into the store.
func (s *Store) Seed(m map[string]any) {
	for name, value := range m {
		s.values[name] = value
	}
}

// Set stores value under name, replacing any previous entry.
func (s *Store) Set(name string, value any) {
	s.values[name] = value
}

// Get returns the raw value for name. Absence is not an error here;
// callers decide how to report it.
func (s *Store) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// GetString returns the value for name rendered as a string.
func (s *Store) GetString(name string) (string, bool) {
	v, ok := s.values[name]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

// GetList returns the value for name as a sequence, if it is one.
func (s *Store) GetList(name string) ([]any, bool) {
	v, ok := s.values[name]
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.values)
}

// Stringify renders a decoded YAML value for substitution into a command
// string. Sequences join with spaces so a list variable can be splatted
// into a shell line.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", val)
	}
}
