package runtime

import (
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// ValueStore holds per-run execution state as a nested document, addressed
// by dot-separated paths (e.g. "steps.generate.text"). Expression
// evaluation receives the full nested map so predicates can traverse it
// naturally.
type ValueStore struct {
	c *gabs.Container
}

func NewValueStore() *ValueStore {
	return &ValueStore{c: gabs.New()}
}

// Set stores a value at a dot-separated path, creating intermediate
// objects as needed. A non-object value sitting on an intermediate segment
// is replaced; the newest write wins.
func (s *ValueStore) Set(path string, value any) {
	if _, err := s.c.SetP(value, path); err == nil {
		return
	}

	// SetP failed on a path collision: some prefix of the path holds a
	// non-object value. Deleting the full path hits the same collision, so
	// remove the shortest blocking prefix instead. Everything above it is
	// an object and everything below it is gone, so the retry cannot
	// collide again.
	segments := strings.Split(path, ".")
	for i := 1; i <= len(segments); i++ {
		prefix := strings.Join(segments[:i], ".")
		if !s.c.ExistsP(prefix) {
			break
		}
		if _, isObj := s.c.Path(prefix).Data().(map[string]any); !isObj {
			s.c.DeleteP(prefix)
			break
		}
	}
	s.c.SetP(value, path)
}

// Get retrieves the value at a dot-separated path.
func (s *ValueStore) Get(path string) (any, bool) {
	if !s.c.ExistsP(path) {
		return nil, false
	}
	return s.c.Path(path).Data(), true
}

// SetNested stores every entry of m under prefix, preserving hierarchy.
func (s *ValueStore) SetNested(prefix string, m map[string]any) {
	for k, v := range m {
		s.Set(prefix+"."+k, v)
	}
}

// All returns the full nested context map for expression evaluation.
func (s *ValueStore) All() map[string]any {
	if m, ok := s.c.Data().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Snapshot returns the store serialized as JSON, for checkpoints.
func (s *ValueStore) Snapshot() []byte {
	return s.c.Bytes()
}
