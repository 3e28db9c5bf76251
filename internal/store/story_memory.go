package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/serroba/ollo/internal/story"
)

// StoryMemoryStore is an in-memory implementation of story.Repository.
type StoryMemoryStore struct {
	mu      sync.RWMutex
	stories map[string]story.Story
}

// NewStoryMemoryStore creates a new in-memory story store.
func NewStoryMemoryStore() *StoryMemoryStore {
	return &StoryMemoryStore{
		stories: make(map[string]story.Story),
	}
}

func (m *StoryMemoryStore) Save(_ context.Context, s *story.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stories[s.ID] = *s

	return nil
}

func (m *StoryMemoryStore) Get(_ context.Context, id string) (*story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stories[id]
	if !ok {
		return nil, story.ErrNotFound
	}

	return &s, nil
}

func (m *StoryMemoryStore) ListActive(_ context.Context, now time.Time, limit int) ([]*story.Story, error) {
	active := m.filter(func(s *story.Story) bool { return !s.Expired(now) })

	slices.SortFunc(active, func(a, b *story.Story) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}

	return active, nil
}

func (m *StoryMemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[id]; !ok {
		return story.ErrNotFound
	}

	delete(m.stories, id)

	return nil
}

func (m *StoryMemoryStore) FindExpired(_ context.Context, now time.Time) ([]*story.Story, error) {
	return m.filter(func(s *story.Story) bool { return s.Expired(now) }), nil
}

func (m *StoryMemoryStore) DeleteBatch(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.stories, id)
	}

	return nil
}

// Len returns the number of stored stories, expired or not.
func (m *StoryMemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.stories)
}

func (m *StoryMemoryStore) filter(keep func(*story.Story) bool) []*story.Story {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*story.Story

	for _, s := range m.stories {
		if keep(&s) {
			out = append(out, &s)
		}
	}

	return out
}

// Compile-time check.
var _ story.Repository = (*StoryMemoryStore)(nil)
