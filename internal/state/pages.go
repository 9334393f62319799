package state

import "fmt"

// PageStore is the ordered list of pages plus the current page pointer.
// The store always holds at least one page and the current index is
// always valid.
type PageStore struct {
	pages   []Page
	current int
}

// NewPageStore returns a store with a single blank page.
func NewPageStore() *PageStore {
	return &PageStore{pages: []Page{NewPage()}}
}

// Len returns the number of pages.
func (s *PageStore) Len() int { return len(s.pages) }

// Index returns the current page index.
func (s *PageStore) Index() int { return s.current }

// Current returns the live current page. Callers mutate it only through
// Board operations.
func (s *PageStore) Current() *Page { return &s.pages[s.current] }

// Page returns the live page at i.
func (s *PageStore) Page(i int) (*Page, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", i, len(s.pages), ErrPageOutOfRange)
	}
	return &s.pages[i], nil
}

// Add inserts a blank page after index after (clamped) and makes it current.
func (s *PageStore) Add(after int) int {
	return s.insert(s.clamp(after)+1, NewPage())
}

// Duplicate deep-copies page i into a new page right after it and makes the
// copy current.
func (s *PageStore) Duplicate(i int) (int, error) {
	p, err := s.Page(i)
	if err != nil {
		return s.current, err
	}
	return s.insert(i+1, p.Duplicate()), nil
}

// Delete removes page i. It refuses (returns false) when only one page is
// left or i is out of range. Deleting the current page moves to the
// previous one.
func (s *PageStore) Delete(i int) bool {
	if len(s.pages) <= 1 || i < 0 || i >= len(s.pages) {
		return false
	}
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
	if i < s.current || (i == s.current && s.current > 0) {
		s.current--
	}
	s.current = s.clamp(s.current)
	return true
}

// Switch makes page i current.
func (s *PageStore) Switch(i int) error {
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("switch to page %d of %d: %w", i, len(s.pages), ErrPageOutOfRange)
	}
	s.current = i
	return nil
}

// Move changes the current page by delta, clamped to the valid range.
// It reports whether the current page changed.
func (s *PageStore) Move(delta int) bool {
	next := s.clamp(s.current + delta)
	if next == s.current {
		return false
	}
	s.current = next
	return true
}

// Clear empties page i. It reports whether anything was removed.
func (s *PageStore) Clear(i int) (bool, error) {
	p, err := s.Page(i)
	if err != nil {
		return false, err
	}
	if len(p.Strokes) == 0 && len(p.Objects) == 0 {
		return false, nil
	}
	p.Strokes = []Stroke{}
	p.Objects = []Object{}
	return true, nil
}

// Snapshot deep-copies the pages and current index.
func (s *PageStore) Snapshot(label string) Snapshot {
	return Snapshot{Label: label, PageIndex: s.current, Pages: clonePages(s.pages)}
}

// Restore replaces the live state with a deep copy of snap. An empty
// snapshot restores a single blank page.
func (s *PageStore) Restore(snap Snapshot) {
	if len(snap.Pages) == 0 {
		s.pages = []Page{NewPage()}
		s.current = 0
		return
	}
	s.pages = clonePages(snap.Pages)
	s.current = s.clamp(snap.PageIndex)
}

// Pages returns a deep copy of every page.
func (s *PageStore) Pages() []Page { return clonePages(s.pages) }

func (s *PageStore) insert(at int, p Page) int {
	s.pages = append(s.pages, Page{})
	copy(s.pages[at+1:], s.pages[at:])
	s.pages[at] = p
	s.current = at
	return at
}

func (s *PageStore) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(s.pages) {
		return len(s.pages) - 1
	}
	return i
}
