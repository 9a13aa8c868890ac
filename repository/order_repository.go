package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/neraa-rental/orders-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository on top of gorm
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by db
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// LoadOrder fetches an order with its staff and customer
func (r *GormOrderRepository) LoadOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Staff").
		Preload("Customer").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return &order, nil
}

// SaveOrder inserts or updates the order row. Associations are saved
// separately through SaveCustomer.
func (r *GormOrderRepository) SaveOrder(ctx context.Context, order *models.Order) error {
	if order.Photos == nil {
		order.Photos = []string{}
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// ListOrders returns orders matching filter with staff and customer preloaded
func (r *GormOrderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Staff").
		Preload("Customer")

	if filter.StaffID != nil {
		query = query.Where("staff_id = ?", *filter.StaffID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", filter.CreatedTo.UTC())
	}
	if filter.Ascending {
		query = query.Order("created_at ASC").Order("id ASC")
	} else {
		query = query.Order("created_at DESC").Order("id DESC")
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// FindCustomerByPhone returns the first customer with the given phone, or nil
func (r *GormOrderRepository) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("phone = ?", phone).Order("id ASC").First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &customer, nil
}

// LoadCustomer fetches a customer by id
func (r *GormOrderRepository) LoadCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", id, err)
	}
	return &customer, nil
}

// SaveCustomer inserts or updates a customer
func (r *GormOrderRepository) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Save(customer).Error; err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// Transaction runs fn inside a database transaction
func (r *GormOrderRepository) Transaction(ctx context.Context, fn func(tx OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormOrderRepository{db: tx})
	})
}
