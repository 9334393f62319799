package state

// DefaultHistoryLimit bounds the number of snapshots kept.
const DefaultHistoryLimit = 200

// Snapshot is one history entry: a full copy of the page list and the
// current index at the time it was recorded.
type Snapshot struct {
	Label     string
	PageIndex int
	Pages     []Page
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Label: s.Label, PageIndex: s.PageIndex, Pages: clonePages(s.Pages)}
}

// History is a bounded snapshot stack with a pointer. After the first
// Record the pointer always indexes a valid entry.
type History struct {
	entries []Snapshot
	ptr     int
	limit   int
}

// NewHistory returns an empty history holding at most limit entries.
// A limit below 2 uses DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit < 2 {
		limit = DefaultHistoryLimit
	}
	return &History{ptr: -1, limit: limit}
}

// Record stores a copy of snap after the pointer, discarding any redo
// entries, and moves the pointer onto it. When the stack is full the
// oldest entry is dropped.
func (h *History) Record(snap Snapshot) {
	h.entries = append(h.entries[:h.ptr+1], snap.Clone())
	h.ptr++
	if len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([]Snapshot(nil), h.entries[drop:]...)
		h.ptr -= drop
	}
}

// Undo moves the pointer back one entry and returns a copy of it.
// It is a no-op at the initial entry.
func (h *History) Undo() (Snapshot, bool) {
	if h.ptr <= 0 {
		return Snapshot{}, false
	}
	h.ptr--
	return h.entries[h.ptr].Clone(), true
}

// Redo moves the pointer forward one entry and returns a copy of it.
// It is a no-op at the last entry.
func (h *History) Redo() (Snapshot, bool) {
	if h.ptr >= len(h.entries)-1 {
		return Snapshot{}, false
	}
	h.ptr++
	return h.entries[h.ptr].Clone(), true
}

// CanUndo reports whether Undo would change state.
func (h *History) CanUndo() bool { return h.ptr > 0 }

// CanRedo reports whether Redo would change state.
func (h *History) CanRedo() bool { return h.ptr < len(h.entries)-1 }

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Pointer returns the index of the current entry, -1 when empty.
func (h *History) Pointer() int { return h.ptr }

// Labels lists the entry labels, oldest first.
func (h *History) Labels() []string {
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Label
	}
	return out
}

// Reset drops every entry.
func (h *History) Reset() {
	h.entries = nil
	h.ptr = -1
}
