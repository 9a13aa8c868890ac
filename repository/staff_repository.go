package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/neraa-rental/orders-api/models"
	"gorm.io/gorm"
)

// GormStaffRepository implements StaffRepository on top of gorm
type GormStaffRepository struct {
	db *gorm.DB
}

// NewStaffRepository creates a staff repository backed by db
func NewStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// FindStaffByID returns the staff member with the given id
func (r *GormStaffRepository) FindStaffByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find staff %d: %w", id, err)
	}
	return &user, nil
}

// FindStaffByUsername returns the staff member with the given username
func (r *GormStaffRepository) FindStaffByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find staff %q: %w", username, err)
	}
	return &user, nil
}

// ListStaff returns every staff account, admins included, by id
func (r *GormStaffRepository) ListStaff(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return users, nil
}

// CreateStaff inserts a new staff account
func (r *GormStaffRepository) CreateStaff(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleStaff
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create staff: %w", err)
	}
	return nil
}
