package interpreter

import (
	"strconv"
	"strings"

	"minilisp/interpreter-go/pkg/runtime"
)

// MemoKey identifies one call: the callee's identity plus its argument values.
type MemoKey string

// NewMemoKey builds the key for calling fn with args.
func NewMemoKey(fn *runtime.FunctionValue, args []runtime.Value) MemoKey {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(fn.ID, 10))
	b.WriteByte('|')
	for _, arg := range args {
		runtime.AppendKey(&b, arg)
	}
	return MemoKey(b.String())
}

// MemoStats summarises memoizer activity.
type MemoStats struct {
	Entries int
	Hits    int
	Misses  int
}

// Memoizer caches call results. Entries are never evicted; Reset drops them all.
type Memoizer struct {
	entries map[MemoKey]runtime.Value
	hits    int
	misses  int
}

// NewMemoizer returns an empty cache.
func NewMemoizer() *Memoizer {
	return &Memoizer{entries: make(map[MemoKey]runtime.Value)}
}

// Get looks up a cached result and counts the hit or miss.
func (m *Memoizer) Get(key MemoKey) (runtime.Value, bool) {
	val, ok := m.entries[key]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return val, ok
}

// Put stores a result. The first value stored for a key wins.
func (m *Memoizer) Put(key MemoKey, val runtime.Value) {
	if _, exists := m.entries[key]; exists {
		return
	}
	m.entries[key] = val
}

// Len returns the number of cached results.
func (m *Memoizer) Len() int {
	return len(m.entries)
}

// Reset clears cached results. Counters are kept.
func (m *Memoizer) Reset() {
	m.entries = make(map[MemoKey]runtime.Value)
}

// Stats returns the entry count and hit/miss counters.
func (m *Memoizer) Stats() MemoStats {
	return MemoStats{Entries: len(m.entries), Hits: m.hits, Misses: m.misses}
}
