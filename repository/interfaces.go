package repository

import (
	"context"
	"errors"
	"time"

	"github.com/neraa-rental/orders-api/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// OrderFilter narrows ListOrders. Zero values mean "no restriction".
type OrderFilter struct {
	StaffID     *uint
	CreatedFrom *time.Time // inclusive
	CreatedTo   *time.Time // exclusive
	Ascending   bool       // by created_at; newest first otherwise
}

// OrderRepository defines persistence operations on orders and their customers.
// Orders and customers are never deleted, so there is no delete operation.
type OrderRepository interface {
	LoadOrder(ctx context.Context, id uint) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	LoadCustomer(ctx context.Context, id uint) (*models.Customer, error)
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	// Transaction runs fn against a repository bound to a single transaction
	Transaction(ctx context.Context, fn func(tx OrderRepository) error) error
}

// StaffRepository defines operations on staff accounts
type StaffRepository interface {
	FindStaffByID(ctx context.Context, id uint) (*models.User, error)
	FindStaffByUsername(ctx context.Context, username string) (*models.User, error)
	ListStaff(ctx context.Context) ([]models.User, error)
	CreateStaff(ctx context.Context, user *models.User) error
}
