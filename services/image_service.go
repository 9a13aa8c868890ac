package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neraa-rental/orders-api/utils"
)

// ImageService handles order photo storage: upload, retrieval and deletion
type ImageService interface {
	// UploadImage validates and stores an image file, returns the storage key
	UploadImage(fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(imageKey string) error
}

// S3ImageService implements ImageService on an ObjectStore. Keys look like
// order-photos/{timestamp}_{short uuid}_{filename}.
type S3ImageService struct {
	store   ObjectStore
	prefix  string
	timeout time.Duration
}

// LocalImageService implements ImageService on a local directory. Files are
// served back through GET /api/v1/uploads/:filename.
type LocalImageService struct {
	dir string
}

const photoKeyPrefix = "order-photos/"

var imageServiceInstance ImageService

// InitImageService initializes the image service with an object store backend
func InitImageService(store ObjectStore) ImageService {
	imageServiceInstance = NewS3ImageService(store)
	return imageServiceInstance
}

// NewS3ImageService creates an image service storing photos in store
func NewS3ImageService(store ObjectStore) *S3ImageService {
	return &S3ImageService{
		store:   store,
		prefix:  photoKeyPrefix,
		timeout: 30 * time.Second,
	}
}

// InitLocalImageService initializes the image service with a local directory backend
func InitLocalImageService(dir string) ImageService {
	imageServiceInstance = NewLocalImageService(dir)
	return imageServiceInstance
}

// NewLocalImageService creates a local image service rooted at dir
func NewLocalImageService(dir string) *LocalImageService {
	return &LocalImageService{dir: dir}
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadImage validates an image file and streams it into the object store
func (s *S3ImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	key := s.prefix + utils.GenerateStorageName(fileHeader.Filename, time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.PutObject(ctx, key, file, fileHeader.Size, utils.ContentType(fileHeader.Filename)); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	url, err := s.store.PresignGet(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes an image from the object store
func (s *S3ImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}
	if !strings.HasPrefix(imageKey, s.prefix) {
		return fmt.Errorf("invalid image key: %s", imageKey)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.DeleteObject(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}

// UploadImage validates and writes an image file into the upload directory
func (s *LocalImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	filename, err := utils.SaveUploadedFile(fileHeader, s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return filename, nil
}

// GetImageURL returns the API path serving the stored file
func (s *LocalImageService) GetImageURL(imageKey string) (string, error) {
	return utils.GetImageURL(imageKey), nil
}

// DeleteImage removes a stored file. Missing files are not an error.
func (s *LocalImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}
	if !utils.IsSafeFilename(imageKey) {
		return fmt.Errorf("invalid image key: %s", imageKey)
	}

	if err := os.Remove(filepath.Join(s.dir, imageKey)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}

// Dir returns the directory files are stored in
func (s *LocalImageService) Dir() string {
	return s.dir
}
