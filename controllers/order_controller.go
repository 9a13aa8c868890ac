package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/services"
	"github.com/neraa-rental/orders-api/utils"
)

// photosField is the multipart field carrying order photos
const photosField = "photos"

// bindOrderInput reads an order form. Works with multipart and urlencoded
// bodies; photos are only read from multipart bodies.
func bindOrderInput(c *gin.Context) (services.OrderInput, error) {
	price, err := services.ParseAmount("Price", c.PostForm("price"))
	if err != nil {
		return services.OrderInput{}, err
	}
	advance, err := services.ParseAmount("Advance", c.PostForm("advance"))
	if err != nil {
		return services.OrderInput{}, err
	}
	quantity, err := services.ParseQuantity(c.PostForm("quantity"))
	if err != nil {
		return services.OrderInput{}, err
	}

	var attachments []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		attachments = form.File[photosField]
	}

	return services.OrderInput{
		CustomerName:   c.PostForm("customer_name"),
		Phone:          c.PostForm("phone"),
		Address:        c.PostForm("address"),
		ProductName:    c.PostForm("product_name"),
		ProductDetails: c.PostForm("product_details"),
		Price:          price,
		Quantity:       quantity,
		Advance:        advance,
		DeliveryAt:     utils.ParseDateTime(c.PostForm("delivery_at")),
		ReturnAt:       utils.ParseDateTime(c.PostForm("return_at")),
		Status:         c.PostForm("status"),
		Attachments:    attachments,
	}, nil
}

// withPhotoURLsAll resolves photo URLs for list responses
func withPhotoURLsAll(orders []models.Order) []models.Order {
	if svc := services.GetOrderService(); svc != nil {
		for i := range orders {
			svc.ResolvePhotoURLs(&orders[i])
		}
	}
	return orders
}

// CreateOrder handles POST /api/v1/orders - staff record an order for a customer
func CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	input, err := bindOrderInput(c)
	if err != nil {
		handleError(c, err)
		return
	}

	order, err := services.GetOrderService().CreateOrder(c.Request.Context(), actor, input)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusCreated, order)
}

// ListMyOrders handles GET /api/v1/orders - the caller's own orders, newest first
func ListMyOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	orders, err := services.GetDashboardService().ListMyOrders(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, withPhotoURLsAll(orders))
}

// GetOrder handles GET /api/v1/orders/:id - admins see any order, staff their own
func GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, order)
}

// EditOrder handles PUT /api/v1/orders/:id - the author rewrites a pending order
func EditOrder(c *gin.Context) {
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

	order, err := services.GetOrderService().EditOrder(c.Request.Context(), actor, id, input)
	if err != nil {
		handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, order)
}

// GetStaffDashboard handles GET /api/v1/dashboard - stats over the caller's orders
func GetStaffDashboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	dashboard, err := services.GetDashboardService().StaffDashboard(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}
	withPhotoURLsAll(dashboard.RecentOrders)

	respondData(c, http.StatusOK, dashboard)
}
