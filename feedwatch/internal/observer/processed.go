package observer

import "sync"

// ProcessedSet tracks which items have already been classified, keyed on
// the content+author hash. Re-running the sweep over an unchanged page
// must not classify or count the same item twice.
type ProcessedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedSet creates an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{seen: make(map[string]struct{})}
}

// MarkSeen records the key and reports whether it was already present.
func (p *ProcessedSet) MarkSeen(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[key]; ok {
		return true
	}
	p.seen[key] = struct{}{}
	return false
}

// Seen reports whether the key has been processed, without recording it.
func (p *ProcessedSet) Seen(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[key]
	return ok
}

// Len returns the number of processed items.
func (p *ProcessedSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

// Reset clears the set. Used when the page is re-navigated and the feed
// starts over.
func (p *ProcessedSet) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = make(map[string]struct{})
}
