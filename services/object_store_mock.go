package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
)

// ErrObjectStoreDown is returned by MockObjectStore while failures are enabled
var ErrObjectStoreDown = errors.New("object store unavailable")

// MockObjectStore keeps objects in memory and records deletes
type MockObjectStore struct {
	mu           sync.RWMutex
	objects      map[string]storedObject
	deleted      []string
	failRequests bool
}

type storedObject struct {
	content     []byte
	contentType string
}

// NewMockObjectStore creates an empty in-memory object store
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{objects: make(map[string]storedObject)}
}

func (m *MockObjectStore) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := m.check(ctx); err != nil {
		return err
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}
	if size >= 0 && int64(len(content)) != size {
		return fmt.Errorf("object %s: read %d bytes, expected %d", key, len(content), size)
	}

	m.mu.Lock()
	m.objects[key] = storedObject{content: content, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	if err := m.check(ctx); err != nil {
		return "", err
	}
	if !m.Has(key) {
		return "", fmt.Errorf("object not found: %s", key)
	}
	return "https://photos.example.test/" + key + "?signature=" + url.QueryEscape("mock"), nil
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, key string) error {
	if err := m.check(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
	return nil
}

func (m *MockObjectStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failRequests {
		return ErrObjectStoreDown
	}
	return nil
}

// Has reports whether key is currently stored
func (m *MockObjectStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Content returns the stored bytes and content type of key
func (m *MockObjectStore) Content(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.content, obj.contentType, ok
}

// Len returns the number of stored objects
func (m *MockObjectStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Deleted returns keys passed to DeleteObject, in call order
func (m *MockObjectStore) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// Fail toggles ErrObjectStoreDown for every request
func (m *MockObjectStore) Fail(fail bool) {
	m.mu.Lock()
	m.failRequests = fail
	m.mu.Unlock()
}
