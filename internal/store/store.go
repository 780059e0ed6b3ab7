// Package store persists the client's small key/value state: the
// bearer token and the bookmarked list IDs. The two entries are
// independent; writes are idempotent and last-write-wins.
package store

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// Store is the persisted state accessed by the session manager and the
// saved-lists views.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	SavedListIDs(ctx context.Context) ([]string, error)
	SetSavedListIDs(ctx context.Context, ids []string) error
}

// uniqIDs trims, drops blanks and deduplicates while preserving order.
func uniqIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		v := strings.TrimSpace(id)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// AddSavedListID bookmarks a list and returns the updated IDs.
func AddSavedListID(ctx context.Context, s Store, id string) ([]string, error) {
	key := strings.TrimSpace(id)
	cur, err := s.SavedListIDs(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return cur, nil
	}
	next := uniqIDs(append(cur, key))
	if err := s.SetSavedListIDs(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// RemoveSavedListID removes a bookmark and returns the updated IDs.
func RemoveSavedListID(ctx context.Context, s Store, id string) ([]string, error) {
	key := strings.TrimSpace(id)
	cur, err := s.SavedListIDs(ctx)
	if err != nil {
		return nil, err
	}
	next := make([]string, 0, len(cur))
	for _, x := range cur {
		if x != key {
			next = append(next, x)
		}
	}
	if err := s.SetSavedListIDs(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ToggleSavedListID adds the bookmark when absent and removes it when
// present.
func ToggleSavedListID(ctx context.Context, s Store, id string) ([]string, error) {
	key := strings.TrimSpace(id)
	if key == "" {
		return s.SavedListIDs(ctx)
	}
	cur, err := s.SavedListIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, x := range cur {
		if x == key {
			return RemoveSavedListID(ctx, s, key)
		}
	}
	return AddSavedListID(ctx, s, key)
}

// fileState is the on-disk layout of FileStore.
type fileState struct {
	Token        string   `json:"token"`
	SavedListIDs []string `json:"saved_list_ids"`
}

// FileStore keeps the persisted state in a single JSON file. A missing
// file reads as empty state.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (fileState, error) {
	var st fileState
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return fileState{}, err
	}
	return st, nil
}

func (f *FileStore) save(st fileState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

// Token returns the persisted bearer token, or "" when none is stored.
func (f *FileStore) Token(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.load()
	if err != nil {
		return "", err
	}
	return st.Token, nil
}

// SetToken stores token; an empty token clears the entry.
func (f *FileStore) SetToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.load()
	if err != nil {
		return err
	}
	st.Token = strings.TrimSpace(token)
	return f.save(st)
}

// SavedListIDs returns the bookmarked list IDs, deduplicated.
func (f *FileStore) SavedListIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.load()
	if err != nil {
		return nil, err
	}
	return uniqIDs(st.SavedListIDs), nil
}

// SetSavedListIDs replaces the bookmarked list IDs.
func (f *FileStore) SetSavedListIDs(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.load()
	if err != nil {
		return err
	}
	st.SavedListIDs = uniqIDs(ids)
	return f.save(st)
}
