package usecase

import (
	"fmt"

	"voicelist/internal/ports"
)

// ListStore holds transcripts in insertion order. It is not safe for
// concurrent use; the controller only touches it from the main loop.
type ListStore struct {
	items    []string
	observer ports.ListObserver
}

// NewListStore returns an empty store. observer may be nil.
func NewListStore(observer ports.ListObserver) *ListStore {
	return &ListStore{observer: observer}
}

// Append adds text at the end and returns the new count.
func (s *ListStore) Append(text string) int {
	s.items = append(s.items, text)
	s.notify()
	return len(s.items)
}

// RemoveLast drops the most recent item. It is a no-op on an empty store.
func (s *ListStore) RemoveLast() (string, bool) {
	if len(s.items) == 0 {
		return "", false
	}
	last := len(s.items) - 1
	removed := s.items[last]
	s.items[last] = ""
	s.items = s.items[:last]
	s.notify()
	return removed, true
}

func (s *ListStore) Get(index int) (string, error) {
	if index < 0 || index >= len(s.items) {
		return "", fmt.Errorf("%w: index %d, count %d", ErrIndexOutOfRange, index, len(s.items))
	}
	return s.items[index], nil
}

func (s *ListStore) Count() int {
	return len(s.items)
}

// Items returns a copy of the current list.
func (s *ListStore) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s *ListStore) notify() {
	if s.observer == nil {
		return
	}
	s.observer.ListChanged(s.Items())
}
