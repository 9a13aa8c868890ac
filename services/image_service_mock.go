package services

import (
	"fmt"
	"mime/multipart"
	"sync/atomic"

	"github.com/neraa-rental/orders-api/utils"
)

// MockImageService runs the S3 image backend over an in-memory object store
type MockImageService struct {
	*S3ImageService
	store       *MockObjectStore
	failUploads atomic.Bool
}

// NewMockImageService creates an image service backed by a MockObjectStore
func NewMockImageService() *MockImageService {
	store := NewMockObjectStore()
	return &MockImageService{
		S3ImageService: NewS3ImageService(store),
		store:          store,
	}
}

// SetAsMockForTesting installs this mock as the global image service
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// UploadImage validates the file, then stores it unless uploads are failing
func (m *MockImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if m.failUploads.Load() {
		if err := utils.ValidateImageFile(fileHeader); err != nil {
			return "", err
		}
		return "", fmt.Errorf("failed to upload image: %w", ErrObjectStoreDown)
	}
	return m.S3ImageService.UploadImage(fileHeader)
}

// Store exposes the backing object store
func (m *MockImageService) Store() *MockObjectStore {
	return m.store
}

// GetUploadedImages returns the stored image contents by key
func (m *MockImageService) GetUploadedImages() map[string][]byte {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	images := make(map[string][]byte, len(m.store.objects))
	for key, obj := range m.store.objects {
		images[key] = obj.content
	}
	return images
}

// ImageExists reports whether key is stored
func (m *MockImageService) ImageExists(imageKey string) bool {
	return m.store.Has(imageKey)
}

// DeletedImages returns the keys passed to DeleteImage, in call order
func (m *MockImageService) DeletedImages() []string {
	return m.store.Deleted()
}

// FailUploads makes subsequent uploads fail with a storage error
func (m *MockImageService) FailUploads(fail bool) {
	m.failUploads.Store(fail)
}

// Clear drops every stored image and the delete log
func (m *MockImageService) Clear() {
	m.store.mu.Lock()
	m.store.objects = make(map[string]storedObject)
	m.store.deleted = nil
	m.store.mu.Unlock()
}
