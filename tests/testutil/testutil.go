package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}

	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

// NewTestDB opens a migrated in-memory SQLite database. A single connection is
// kept so every query sees the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	if err := config.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateStaff inserts a staff account with an unusable password hash
func CreateStaff(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		FullName:     fmt.Sprintf("%s user", username),
		PasswordHash: "not-a-bcrypt-hash",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create staff %s: %v", username, err)
	}
	return user
}

// CreateCustomer inserts a customer
func CreateCustomer(t *testing.T, db *gorm.DB, name, phone string) *models.Customer {
	t.Helper()

	customer := &models.Customer{Name: name, Phone: phone, Address: "12 Market Road"}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("Failed to create customer %s: %v", name, err)
	}
	return customer
}

// OrderSeed describes an order inserted directly into the database
type OrderSeed struct {
	Staff     *models.User
	Customer  *models.Customer
	Product   string
	Price     string
	Quantity  int
	Advance   string
	Status    models.OrderStatus
	CreatedAt time.Time
}

// CreateOrder inserts an order with derived amounts already applied
func CreateOrder(t *testing.T, db *gorm.DB, seed OrderSeed) *models.Order {
	t.Helper()

	order := &models.Order{
		ProductName:   seed.Product,
		Price:         decimal.RequireFromString(orDefault(seed.Price, "0")),
		Quantity:      seed.Quantity,
		AmountAdvance: decimal.RequireFromString(orDefault(seed.Advance, "0")),
		Status:        seed.Status,
		StaffID:       seed.Staff.ID,
		CustomerID:    seed.Customer.ID,
		Photos:        []string{},
		CreatedAt:     seed.CreatedAt,
	}
	if order.ProductName == "" {
		order.ProductName = "Silk saree"
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.ApplyAmounts()

	if err := db.Omit("Staff", "Customer").Create(order).Error; err != nil {
		t.Fatalf("Failed to create order: %v", err)
	}
	return order
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
