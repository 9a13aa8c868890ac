package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/repository"
	"github.com/neraa-rental/orders-api/utils"
	"go.uber.org/zap"
)

// ReportHeader is the first row of every CSV report
var ReportHeader = []string{
	"Order ID", "Created", "Staff", "Customer", "Phone", "Product", "Price",
	"Quantity", "Total", "Advance", "Pending", "Status", "Delivery", "Return",
}

// ReportRow flattens an order into CSV columns. Missing staff, customer or
// dates render as empty strings.
func ReportRow(order *models.Order) []string {
	var customer, phone string
	if order.Customer != nil {
		customer = order.Customer.Name
		phone = order.Customer.Phone
	}
	return []string{
		strconv.FormatUint(uint64(order.ID), 10),
		utils.FormatDateTime(&order.CreatedAt),
		order.Staff.DisplayName(),
		customer,
		phone,
		order.ProductName,
		order.Price.StringFixed(2),
		strconv.Itoa(order.Quantity),
		order.EffectiveTotal().StringFixed(2),
		order.AmountAdvance.StringFixed(2),
		order.AmountPending.StringFixed(2),
		order.Status.String(),
		utils.FormatDateTime(order.DeliveryAt),
		utils.FormatDateTime(order.ReturnAt),
	}
}

// WriteCSVReport writes the header and one row per order
func WriteCSVReport(w io.Writer, orders []models.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for i := range orders {
		if err := cw.Write(ReportRow(&orders[i])); err != nil {
			return fmt.Errorf("failed to write report row for order %d: %w", orders[i].ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReportFilename is the download name of a CSV report
func ReportFilename(w Window) string {
	return fmt.Sprintf("%s_report_%s.csv", w.Kind, w.Selector)
}

// ArchiveFilename is the download name of a bill archive
func ArchiveFilename(w Window) string {
	return fmt.Sprintf("bills_%s_%s.zip", w.Kind, w.Selector)
}

// ExportResult describes what a bulk bill export produced
type ExportResult struct {
	Written []string `json:"written"`
	Skipped []uint   `json:"skipped"`
}

// ReportService reads orders for a report window and exports them
type ReportService struct {
	orders        repository.OrderRepository
	renderer      BillRenderer
	logger        *zap.Logger
	renderTimeout time.Duration
}

// NewReportService creates a report service. A non-positive renderTimeout
// leaves renders bounded only by the caller's context.
func NewReportService(orders repository.OrderRepository, renderer BillRenderer, renderTimeout time.Duration, l *zap.Logger) *ReportService {
	return &ReportService{
		orders:        orders,
		renderer:      renderer,
		logger:        logger.OrNop(l),
		renderTimeout: renderTimeout,
	}
}

var reportServiceInstance *ReportService

// SetReportService sets the report service used by the HTTP handlers
func SetReportService(s *ReportService) {
	reportServiceInstance = s
}

// GetReportService returns the report service used by the HTTP handlers
func GetReportService() *ReportService {
	return reportServiceInstance
}

// OrdersInWindow returns the orders created inside w, oldest first
func (s *ReportService) OrdersInWindow(ctx context.Context, actor *models.User, w Window) ([]models.Order, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can download reports")
	}
	return s.orders.ListOrders(ctx, repository.OrderFilter{
		CreatedFrom: &w.Start,
		CreatedTo:   &w.End,
		Ascending:   true,
	})
}

// ExportBills renders a bill per order into archive. A bill that fails to
// render is logged and skipped. Cancellation stops further renders; the
// archive is closed with whatever was already written.
func (s *ReportService) ExportBills(ctx context.Context, orders []models.Order, archive ArchiveWriter) (*ExportResult, error) {
	if len(orders) == 0 {
		return nil, ErrNothingToExport
	}
	if s.renderer == nil {
		return nil, errors.New("bill renderer is not configured")
	}

	result := &ExportResult{Written: []string{}, Skipped: []uint{}}
	for i := range orders {
		if err := ctx.Err(); err != nil {
			if closeErr := archive.Close(); closeErr != nil {
				return result, closeErr
			}
			return result, fmt.Errorf("bill export interrupted after %d of %d orders: %w", i, len(orders), err)
		}

		order := &orders[i]
		pdf, err := s.renderOne(ctx, order)
		if err != nil {
			s.logger.Warn("Skipping bill",
				zap.Uint("order_id", order.ID),
				zap.Error(err),
			)
			result.Skipped = append(result.Skipped, order.ID)
			continue
		}

		name := BillFilename(order.ID)
		if err := archive.Add(name, pdf); err != nil {
			_ = archive.Close()
			return result, err
		}
		result.Written = append(result.Written, name)
	}

	if err := archive.Close(); err != nil {
		return result, fmt.Errorf("failed to close archive: %w", err)
	}

	s.logger.Info("Bills exported",
		zap.Int("written", len(result.Written)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// RenderBill renders a single order's bill for an admin
func (s *ReportService) RenderBill(ctx context.Context, actor *models.User, id uint) ([]byte, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can download bills")
	}
	if s.renderer == nil {
		return nil, errors.New("bill renderer is not configured")
	}

	order, err := s.orders.LoadOrder(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return s.renderOne(ctx, order)
}

func (s *ReportService) renderOne(ctx context.Context, order *models.Order) ([]byte, error) {
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}
	return s.renderer.RenderBill(ctx, order)
}
