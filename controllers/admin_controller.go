package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/services"
)

// GetAdminDashboard handles GET /api/v1/admin/dashboard
func GetAdminDashboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	dashboard, err := services.GetDashboardService().AdminDashboard(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}
	withPhotoURLsAll(dashboard.RecentOrders)

	respondData(c, http.StatusOK, dashboard)
}

// SearchOrders handles GET /api/v1/admin/orders?q= - all orders matching q, newest first
func SearchOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	orders, err := services.GetDashboardService().SearchOrders(c.Request.Context(), actor, c.Query("q"))
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, withPhotoURLsAll(orders))
}

type transitionFunc func(ctx context.Context, actor *models.User, id uint) (*models.Order, error)

func handleTransition(c *gin.Context, fn func(*services.OrderService) transitionFunc) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := fn(services.GetOrderService())(c.Request.Context(), actor, id)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, order)
}

// ApproveOrder handles POST /api/v1/admin/orders/:id/approve
func ApproveOrder(c *gin.Context) {
	handleTransition(c, func(s *services.OrderService) transitionFunc { return s.Approve })
}

// RejectOrder handles POST /api/v1/admin/orders/:id/reject
func RejectOrder(c *gin.Context) {
	handleTransition(c, func(s *services.OrderService) transitionFunc { return s.Reject })
}

// CompleteOrder handles POST /api/v1/admin/orders/:id/complete
func CompleteOrder(c *gin.Context) {
	handleTransition(c, func(s *services.OrderService) transitionFunc { return s.Complete })
}

// CancelOrder handles POST /api/v1/admin/orders/:id/cancel
func CancelOrder(c *gin.Context) {
	handleTransition(c, func(s *services.OrderService) transitionFunc { return s.Cancel })
}

// AdminEditOrder handles PUT /api/v1/admin/orders/:id - rewrites any field including status
func AdminEditOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	input, err := bindOrderInput(c)
	if err != nil {
		handleError(c, err)
		return
	}

	order, err := services.GetOrderService().AdminEdit(c.Request.Context(), actor, id, input)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, order)
}

// DownloadBill handles GET /api/v1/admin/orders/:id/bill - a single order's bill as PDF
func DownloadBill(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	pdf, err := services.GetReportService().RenderBill(c.Request.Context(), actor, id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+services.BillFilename(id)+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
