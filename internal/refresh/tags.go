package refresh

import "sync"

// Tags issues monotonically increasing request tags for one resource and
// applies results only for the latest one.
type Tags struct {
	mu     sync.Mutex
	issued uint64

	applyMu sync.Mutex
	applied uint64
}

// Issue returns a new tag, making every earlier tag stale.
func (t *Tags) Issue() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	return t.issued
}

// Latest reports whether tag is the most recently issued tag.
func (t *Tags) Latest(tag uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tag == t.issued
}

// Apply runs fn if tag is still the latest and was not applied before.
// It reports whether fn ran. Calls are serialized.
func (t *Tags) Apply(tag uint64, fn func()) bool {
	t.applyMu.Lock()
	defer t.applyMu.Unlock()
	if !t.Latest(tag) || tag <= t.applied {
		return false
	}
	fn()
	t.applied = tag
	return true
}
