package services

import (
	"context"
	"testing"
	"time"

	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/repository"
	"github.com/neraa-rental/orders-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(id, staffID uint, status models.OrderStatus, total string) models.Order {
	return models.Order{
		ID:          id,
		StaffID:     staffID,
		Status:      status,
		TotalAmount: decimal.RequireFromString(total),
	}
}

func TestComputeStats(t *testing.T) {
	orders := []models.Order{
		testOrder(1, 1, models.OrderStatusPending, "100"),
		testOrder(2, 1, models.OrderStatusApproved, "200"),
		testOrder(3, 2, models.OrderStatusCompleted, "300"),
		testOrder(4, 2, models.OrderStatusCompleted, "50.25"),
		testOrder(5, 2, models.OrderStatusCanceled, "999"),
		testOrder(6, 3, models.OrderStatusRejected, "10"),
	}

	stats := ComputeStats(orders)
	assert.Equal(t, 6, stats.TotalOrders)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.ApprovedOrders)
	assert.Equal(t, 2, stats.CompletedOrders)
	assert.Equal(t, 1, stats.CanceledOrders)
	assert.Equal(t, 1, stats.RejectedOrders)
	assert.Equal(t, "350.25", stats.TotalRevenue.StringFixed(2), "Only completed orders count as revenue")
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Zero(t, stats.TotalOrders)
	assert.Equal(t, "0.00", stats.TotalRevenue.StringFixed(2))
}

func TestComputeStats_CancelingCompletedRemovesRevenue(t *testing.T) {
	orders := []models.Order{testOrder(1, 1, models.OrderStatusCompleted, "120")}
	assert.Equal(t, "120.00", ComputeStats(orders).TotalRevenue.StringFixed(2))

	orders[0].Status = models.OrderStatusCanceled
	assert.Equal(t, "0.00", ComputeStats(orders).TotalRevenue.StringFixed(2))
}

func TestRankStaff(t *testing.T) {
	staff := []models.User{
		{ID: 1, Username: "admin", Role: models.RoleAdmin},
		{ID: 2, Username: "meera", FullName: "Meera K", Role: models.RoleStaff},
		{ID: 3, Username: "ravi", Role: models.RoleStaff},
		{ID: 4, Username: "sana", Role: models.RoleStaff},
	}
	orders := []models.Order{
		testOrder(1, 3, models.OrderStatusCompleted, "100"),
		testOrder(2, 3, models.OrderStatusApproved, "40"),
		testOrder(3, 2, models.OrderStatusCompleted, "70"),
		testOrder(4, 4, models.OrderStatusPending, "10"),
		testOrder(5, 3, models.OrderStatusCompleted, "25"),
		testOrder(6, 2, models.OrderStatusApproved, "5"),
	}

	ranking := RankStaff(staff, orders)
	require.Len(t, ranking, 4, "Every staff member appears, admins included")

	assert.Equal(t, uint(3), ranking[0].StaffID)
	assert.Equal(t, 3, ranking[0].OrderCount)
	assert.Equal(t, 1, ranking[0].ApprovedOrders)
	assert.Equal(t, "125.00", ranking[0].Revenue.StringFixed(2))

	assert.Equal(t, uint(2), ranking[1].StaffID)
	assert.Equal(t, "Meera K", ranking[1].DisplayName)
	assert.Equal(t, "70.00", ranking[1].Revenue.StringFixed(2))

	assert.Equal(t, uint(4), ranking[2].StaffID)
	assert.Equal(t, uint(1), ranking[3].StaffID)
	assert.Zero(t, ranking[3].OrderCount)
}

func TestRankStaff_TiesKeepEnumerationOrder(t *testing.T) {
	staff := []models.User{{ID: 5}, {ID: 2}, {ID: 9}}
	orders := []models.Order{
		testOrder(1, 9, models.OrderStatusPending, "1"),
		testOrder(2, 5, models.OrderStatusPending, "1"),
		testOrder(3, 2, models.OrderStatusPending, "1"),
	}

	ranking := RankStaff(staff, orders)
	assert.Equal(t, []uint{5, 2, 9}, []uint{ranking[0].StaffID, ranking[1].StaffID, ranking[2].StaffID})
}

func TestFilterOrders(t *testing.T) {
	created := time.Date(2024, 3, 10, 14, 5, 9, 0, time.UTC)
	orders := []models.Order{
		{ID: 1, ProductName: "Silk Saree", CreatedAt: created,
			Staff: &models.User{Username: "meera", FullName: "Meera Krishnan"}, Customer: &models.Customer{Name: "Anita"}},
		{ID: 2, ProductName: "Sherwani", CreatedAt: created.AddDate(0, 1, 0),
			Staff: &models.User{Username: "ravi"}, Customer: &models.Customer{Name: "Bilal"}},
		{ID: 3, ProductName: "Lehenga", CreatedAt: created.AddDate(0, 0, 1)},
	}

	tests := []struct {
		name  string
		query string
		ids   []uint
	}{
		{"blank returns everything", "  ", []uint{1, 2, 3}},
		{"product name case-insensitive", "SAREE", []uint{1}},
		{"customer name", "bilal", []uint{2}},
		{"staff full name", "krishnan", []uint{1}},
		{"staff username when no full name", "RAVI", []uint{2}},
		{"creation date", "2024-03-11", []uint{3}},
		{"creation time", "14:05:09", []uint{1, 2, 3}},
		{"no match", "tuxedo", []uint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []uint{}
			for _, o := range FilterOrders(orders, tt.query) {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestDashboardService(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateStaff(t, db, "admin", models.RoleAdmin)
	meera := testutil.CreateStaff(t, db, "meera", models.RoleStaff)
	ravi := testutil.CreateStaff(t, db, "ravi", models.RoleStaff)
	customer := testutil.CreateCustomer(t, db, "Anita", "9876543210")

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := testutil.CreateOrder(t, db, testutil.OrderSeed{Staff: meera, Customer: customer, Product: "Saree", Price: "100", Quantity: 2, Status: models.OrderStatusCompleted, CreatedAt: base})
	second := testutil.CreateOrder(t, db, testutil.OrderSeed{Staff: ravi, Customer: customer, Product: "Sherwani", Price: "300", Quantity: 1, Status: models.OrderStatusPending, CreatedAt: base.Add(time.Hour)})
	third := testutil.CreateOrder(t, db, testutil.OrderSeed{Staff: ravi, Customer: customer, Product: "Lehenga", Price: "50", Quantity: 1, Status: models.OrderStatusApproved, CreatedAt: base.Add(2 * time.Hour)})

	svc := NewDashboardService(repository.NewOrderRepository(db), repository.NewStaffRepository(db))
	ctx := context.Background()

	t.Run("admin dashboard", func(t *testing.T) {
		dash, err := svc.AdminDashboard(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, 3, dash.Stats.TotalOrders)
		assert.Equal(t, "200.00", dash.Stats.TotalRevenue.StringFixed(2))
		require.Len(t, dash.StaffPerformance, 3)
		assert.Equal(t, ravi.ID, dash.StaffPerformance[0].StaffID)
		assert.Equal(t, third.ID, dash.RecentOrders[0].ID, "Newest first")
	})

	t.Run("staff cannot open admin views", func(t *testing.T) {
		_, err := svc.AdminDashboard(ctx, meera)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = svc.SearchOrders(ctx, meera, "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff dashboard is scoped to own orders", func(t *testing.T) {
		dash, err := svc.StaffDashboard(ctx, ravi)
		require.NoError(t, err)
		assert.Equal(t, 2, dash.Stats.TotalOrders)
		assert.Equal(t, 1, dash.Stats.PendingOrders)
		assert.Equal(t, "0.00", dash.Stats.TotalRevenue.StringFixed(2))
	})

	t.Run("search", func(t *testing.T) {
		orders, err := svc.SearchOrders(ctx, admin, "sherwani")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, second.ID, orders[0].ID)

		orders, err = svc.SearchOrders(ctx, admin, "")
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, []uint{third.ID, second.ID, first.ID}, []uint{orders[0].ID, orders[1].ID, orders[2].ID})
	})

	t.Run("my orders", func(t *testing.T) {
		orders, err := svc.ListMyOrders(ctx, meera)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, first.ID, orders[0].ID)
		require.NotNil(t, orders[0].Customer)
		assert.Equal(t, "Anita", orders[0].Customer.Name)
	})
}
