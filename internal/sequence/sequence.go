// Package sequence allocates per-property image ordinals and the filenames
// derived from them.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// FilenameLister returns the filenames of images already stored for a property.
type FilenameLister interface {
	ImageFilenames(ctx context.Context, propertyID string) ([]string, error)
}

// Sequencer computes the next free ordinal for a property. Callers that store
// images must hold Lock for the property between NextOrdinal and the write.
type Sequencer struct {
	store FilenameLister

	mu    sync.Mutex
	locks map[string]*propertyLock
}

type propertyLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs a Sequencer.
func New(store FilenameLister) *Sequencer {
	return &Sequencer{store: store, locks: make(map[string]*propertyLock)}
}

// NextOrdinal returns one more than the highest ordinal in use, or 1.
// Filenames whose ordinal segment does not parse are ignored.
func (s *Sequencer) NextOrdinal(ctx context.Context, propertyID string) (int, error) {
	names, err := s.store.ImageFilenames(ctx, propertyID)
	if err != nil {
		return 0, fmt.Errorf("list image filenames: %w", err)
	}
	highest := 0
	for _, name := range names {
		if n, ok := ParseOrdinal(name); ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// Lock serializes ordinal allocation for one property and returns the unlock
// function. Entries are dropped once no goroutine holds or waits on them.
func (s *Sequencer) Lock(propertyID string) func() {
	s.mu.Lock()
	l, ok := s.locks[propertyID]
	if !ok {
		l = &propertyLock{}
		s.locks[propertyID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, propertyID)
			}
			s.mu.Unlock()
		})
	}
}

// Filename formats the stored name of an image, e.g. "P1-03.jpg".
func Filename(propertyID string, ordinal int) string {
	return fmt.Sprintf("%s-%02d.jpg", propertyID, ordinal)
}

// ParseOrdinal extracts the ordinal from a filename produced by Filename.
func ParseOrdinal(filename string) (int, bool) {
	base := strings.TrimSuffix(filename, ".jpg")
	i := strings.LastIndex(base, "-")
	if i < 0 || i == len(base)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(base[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
