package services

import (
	"context"
	"sort"
	"strings"

	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/repository"
	"github.com/shopspring/decimal"
)

// searchTimeLayout is how creation timestamps are rendered for admin search
const searchTimeLayout = "2006-01-02 15:04:05"

// DashboardStats summarizes a set of orders
type DashboardStats struct {
	TotalOrders     int             `json:"total_orders"`
	PendingOrders   int             `json:"pending_orders"`
	ApprovedOrders  int             `json:"approved_orders"`
	RejectedOrders  int             `json:"rejected_orders"`
	CompletedOrders int             `json:"completed_orders"`
	CanceledOrders  int             `json:"canceled_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

// StaffPerformance is one row of the admin staff ranking
type StaffPerformance struct {
	StaffID        uint            `json:"staff_id"`
	Username       string          `json:"username"`
	DisplayName    string          `json:"display_name"`
	Role           string          `json:"role"`
	OrderCount     int             `json:"order_count"`
	ApprovedOrders int             `json:"approved_orders"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// AdminDashboard is the admin landing view
type AdminDashboard struct {
	Stats            DashboardStats     `json:"stats"`
	StaffPerformance []StaffPerformance `json:"staff_performance"`
	RecentOrders     []models.Order     `json:"recent_orders"`
}

// StaffDashboard is a staff member's landing view over their own orders
type StaffDashboard struct {
	Stats        DashboardStats `json:"stats"`
	RecentOrders []models.Order `json:"recent_orders"`
}

// recentOrdersLimit bounds the recent orders shown on dashboards
const recentOrdersLimit = 10

// ComputeStats counts orders by status and sums the total of completed orders
func ComputeStats(orders []models.Order) DashboardStats {
	stats := DashboardStats{
		TotalOrders:  len(orders),
		TotalRevenue: decimal.Zero,
	}
	for i := range orders {
		switch orders[i].Status {
		case models.OrderStatusPending:
			stats.PendingOrders++
		case models.OrderStatusApproved:
			stats.ApprovedOrders++
		case models.OrderStatusRejected:
			stats.RejectedOrders++
		case models.OrderStatusCompleted:
			stats.CompletedOrders++
			stats.TotalRevenue = stats.TotalRevenue.Add(orders[i].TotalAmount)
		case models.OrderStatusCanceled:
			stats.CanceledOrders++
		}
	}
	return stats
}

// RankStaff computes per-staff order counts and revenue. Every staff member
// appears, including admins and staff without orders. Ties keep the order of
// staff.
func RankStaff(staff []models.User, orders []models.Order) []StaffPerformance {
	byStaff := make(map[uint][]models.Order, len(staff))
	for i := range orders {
		byStaff[orders[i].StaffID] = append(byStaff[orders[i].StaffID], orders[i])
	}

	ranking := make([]StaffPerformance, 0, len(staff))
	for i := range staff {
		stats := ComputeStats(byStaff[staff[i].ID])
		ranking = append(ranking, StaffPerformance{
			StaffID:        staff[i].ID,
			Username:       staff[i].Username,
			DisplayName:    staff[i].DisplayName(),
			Role:           staff[i].Role,
			OrderCount:     stats.TotalOrders,
			ApprovedOrders: stats.ApprovedOrders,
			Revenue:        stats.TotalRevenue,
		})
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].OrderCount > ranking[b].OrderCount
	})
	return ranking
}

// MatchesQuery reports whether an order matches an admin search query. The
// comparison is case-insensitive over customer name, product name, staff
// display name and the rendered creation timestamp.
func MatchesQuery(order *models.Order, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	fields := []string{
		order.ProductName,
		order.CreatedAt.UTC().Format(searchTimeLayout),
		order.Staff.DisplayName(),
	}
	if order.Customer != nil {
		fields = append(fields, order.Customer.Name)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// FilterOrders keeps the orders matching query, preserving their order
func FilterOrders(orders []models.Order, query string) []models.Order {
	if strings.TrimSpace(query) == "" {
		return orders
	}
	matched := make([]models.Order, 0, len(orders))
	for i := range orders {
		if MatchesQuery(&orders[i], query) {
			matched = append(matched, orders[i])
		}
	}
	return matched
}

// DashboardService builds the read-only views over the order set
type DashboardService struct {
	orders repository.OrderRepository
	staff  repository.StaffRepository
}

// NewDashboardService creates a dashboard service
func NewDashboardService(orders repository.OrderRepository, staff repository.StaffRepository) *DashboardService {
	return &DashboardService{orders: orders, staff: staff}
}

var dashboardServiceInstance *DashboardService

// SetDashboardService sets the dashboard service used by the HTTP handlers
func SetDashboardService(s *DashboardService) {
	dashboardServiceInstance = s
}

// GetDashboardService returns the dashboard service used by the HTTP handlers
func GetDashboardService() *DashboardService {
	return dashboardServiceInstance
}

// AdminDashboard returns global stats and the staff ranking
func (s *DashboardService) AdminDashboard(ctx context.Context, actor *models.User) (*AdminDashboard, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can view the admin dashboard")
	}

	orders, err := s.orders.ListOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	staff, err := s.staff.ListStaff(ctx)
	if err != nil {
		return nil, err
	}

	return &AdminDashboard{
		Stats:            ComputeStats(orders),
		StaffPerformance: RankStaff(staff, orders),
		RecentOrders:     firstN(orders, recentOrdersLimit),
	}, nil
}

// StaffDashboard returns stats over the actor's own orders
func (s *DashboardService) StaffDashboard(ctx context.Context, actor *models.User) (*StaffDashboard, error) {
	if actor == nil {
		return nil, forbidden("Authentication required")
	}

	orders, err := s.ListMyOrders(ctx, actor)
	if err != nil {
		return nil, err
	}

	return &StaffDashboard{
		Stats:        ComputeStats(orders),
		RecentOrders: firstN(orders, recentOrdersLimit),
	}, nil
}

// SearchOrders returns all orders matching query, newest first
func (s *DashboardService) SearchOrders(ctx context.Context, actor *models.User, query string) ([]models.Order, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can search all orders")
	}

	orders, err := s.orders.ListOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	return FilterOrders(orders, query), nil
}

// ListMyOrders returns the actor's own orders, newest first
func (s *DashboardService) ListMyOrders(ctx context.Context, actor *models.User) ([]models.Order, error) {
	if actor == nil {
		return nil, forbidden("Authentication required")
	}
	staffID := actor.ID
	return s.orders.ListOrders(ctx, repository.OrderFilter{StaffID: &staffID})
}

func firstN(orders []models.Order, n int) []models.Order {
	if len(orders) <= n {
		return orders
	}
	return orders[:n]
}
