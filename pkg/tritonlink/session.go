package tritonlink

import (
	"fmt"
	"sync"

	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

// Content slot names.
const (
	SlotDegreeAudit     = "DegreeAudit"
	SlotAcademicHistory = "AcademicHistory"
)

// Session is the browser plus everything the workflow has accumulated so far.
// It is threaded through every step and owns the browser exclusively.
type Session struct {
	mu       sync.Mutex
	browser  driver.Browser
	pages    []driver.Page
	content  map[string]Document
	released bool
	closeErr error
}

func newSession(b driver.Browser) *Session {
	return &Session{
		browser: b,
		content: make(map[string]Document),
	}
}

// Page returns the page at index i. Index 0 is the primary page; later
// indices are windows opened by navigation, in the order they appeared.
func (s *Session) Page(i int) (driver.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, ErrUnexpectedTeardown
	}
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("no page at index %d (have %d)", i, len(s.pages))
	}
	return s.pages[i], nil
}

// PageCount returns the number of recorded pages.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

func (s *Session) addPage(p driver.Page) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
	return len(s.pages) - 1
}

// fill stores doc under its slot. Slots are written at most once.
func (s *Session) fill(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[doc.Slot]; ok {
		return fmt.Errorf("%w: %s", ErrSlotFilled, doc.Slot)
	}
	s.content[doc.Slot] = doc
	return nil
}

// Document returns the document stored under slot.
func (s *Session) Document(slot string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.content[slot]
	return doc, ok
}

// Documents returns a copy of every filled slot.
func (s *Session) Documents() map[string]Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Document, len(s.content))
	for k, v := range s.content {
		out[k] = v
	}
	return out
}

// Released reports whether the browser has been closed.
func (s *Session) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// release closes the browser exactly once. Later calls return the first
// call's result.
func (s *Session) release() error {
	s.mu.Lock()
	if s.released {
		err := s.closeErr
		s.mu.Unlock()
		return err
	}
	s.released = true
	b := s.browser
	s.mu.Unlock()

	var err error
	if b != nil {
		err = b.Close()
	}

	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
	return err
}
