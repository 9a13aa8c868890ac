package services

import (
	"context"
	"errors"
	"math"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderInput carries the fields staff and admins submit when creating or
// editing an order. Numbers are already parsed; see ParseAmount and
// ParseQuantity.
type OrderInput struct {
	CustomerName   string
	Phone          string
	Address        string
	ProductName    string
	ProductDetails string
	Price          decimal.Decimal
	Quantity       int
	Advance        decimal.Decimal
	DeliveryAt     *time.Time
	ReturnAt       *time.Time
	// Status is only honoured by AdminEdit; blank keeps the current status
	Status      string
	Attachments []*multipart.FileHeader
}

// Phone length bounds for customer records
const (
	MinPhoneLength = 6
	MaxPhoneLength = 30
)

// MaxQuantity is the largest quantity a single order line accepts
const MaxQuantity = math.MaxInt32

// Validate checks the required text fields and the phone length
func (in *OrderInput) Validate() error {
	phone := utf8.RuneCountInString(strings.TrimSpace(in.Phone))
	switch {
	case strings.TrimSpace(in.CustomerName) == "":
		return validation("Customer name is required")
	case phone == 0:
		return validation("Customer phone is required")
	case phone < MinPhoneLength || phone > MaxPhoneLength:
		return validation("Customer phone must be %d to %d characters", MinPhoneLength, MaxPhoneLength)
	case strings.TrimSpace(in.ProductName) == "":
		return validation("Product name is required")
	}
	return nil
}

// ParseAmount parses a money field. Blank input is zero.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, validation("%s must be a number", field)
	}
	return d, nil
}

// ParseQuantity parses a quantity field. Blank input is 1; values below 1 are
// normalized later by the amount calculator.
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return 0, validation("Quantity must be a whole number")
	}
	if d.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return 0, validation("Quantity is too large")
	}
	if d.LessThan(decimal.NewFromInt(-MaxQuantity)) {
		return 0, validation("Quantity is too small")
	}
	return int(d.IntPart()), nil
}

// OrderService implements the order lifecycle: creation, edits and status
// transitions, each authorized against the acting staff member
type OrderService struct {
	orders repository.OrderRepository
	images ImageService
	locker OrderLocker
	logger *zap.Logger
	now    func() time.Time
}

// OrderServiceOption configures an OrderService
type OrderServiceOption func(*OrderService)

// WithClock overrides the time source used for creation timestamps
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) {
		s.now = now
	}
}

// WithOrderLogger sets the logger used for lifecycle events
func WithOrderLogger(l *zap.Logger) OrderServiceOption {
	return func(s *OrderService) {
		s.logger = logger.OrNop(l)
	}
}

// NewOrderService creates an order service
func NewOrderService(orders repository.OrderRepository, images ImageService, locker OrderLocker, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		orders: orders,
		images: images,
		locker: locker,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var orderServiceInstance *OrderService

// SetOrderService sets the order service used by the HTTP handlers
func SetOrderService(s *OrderService) {
	orderServiceInstance = s
}

// GetOrderService returns the order service used by the HTTP handlers
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// CreateOrder records a new pending order for a customer, reusing an existing
// customer with the same phone number. Only regular staff create orders.
func (s *OrderService) CreateOrder(ctx context.Context, actor *models.User, in OrderInput) (*models.Order, error) {
	if actor == nil || actor.IsAdmin() {
		return nil, forbidden("Only staff members can create orders")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	keys, err := s.storeAttachments(in.Attachments)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.orders.Transaction(ctx, func(tx repository.OrderRepository) error {
		customer, err := tx.FindCustomerByPhone(ctx, strings.TrimSpace(in.Phone))
		if err != nil {
			return err
		}
		if customer == nil {
			customer = &models.Customer{
				Name:      strings.TrimSpace(in.CustomerName),
				Phone:     strings.TrimSpace(in.Phone),
				Address:   strings.TrimSpace(in.Address),
				CreatedAt: s.now().UTC(),
			}
			if err := tx.SaveCustomer(ctx, customer); err != nil {
				return err
			}
		}

		order = &models.Order{
			StaffID:    actor.ID,
			CustomerID: customer.ID,
			Status:     models.OrderStatusPending,
			Photos:     []string{},
			CreatedAt:  s.now().UTC(),
		}
		applyOrderFields(order, in)
		order.AddPhotos(keys...)
		return tx.SaveOrder(ctx, order)
	})
	if err != nil {
		s.discardAttachments(keys)
		return nil, err
	}

	s.logger.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("staff_id", actor.ID),
		zap.Int("photos", len(keys)),
	)
	return s.reload(ctx, order.ID)
}

// EditOrder lets the authoring staff member rewrite a pending order. The
// linked customer is updated in place and the order stays pending.
func (s *OrderService) EditOrder(ctx context.Context, actor *models.User, id uint, in OrderInput) (*models.Order, error) {
	if actor == nil {
		return nil, forbidden("Authentication required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(order *models.Order) error {
		if !order.IsOwnedBy(actor) {
			return forbidden("You can only edit your own orders")
		}
		if order.Status != models.OrderStatusPending {
			return invalidState("Order %d is %s and can no longer be edited", order.ID, order.Status)
		}
		return nil
	}, in.Attachments, func(tx repository.OrderRepository, order *models.Order) error {
		if err := s.rewriteCustomer(ctx, tx, order, in); err != nil {
			return err
		}
		applyOrderFields(order, in)
		order.Status = models.OrderStatusPending
		return nil
	}, "Order edited", actor)
}

// Approve moves a pending order to approved and refreshes its pending amount
func (s *OrderService) Approve(ctx context.Context, actor *models.User, id uint) (*models.Order, error) {
	return s.transition(ctx, actor, id, models.OrderStatusApproved, true, func(order *models.Order) {
		order.RefreshPending()
	})
}

// Reject moves a pending order to rejected
func (s *OrderService) Reject(ctx context.Context, actor *models.User, id uint) (*models.Order, error) {
	return s.transition(ctx, actor, id, models.OrderStatusRejected, true, nil)
}

// Complete marks an order completed regardless of its current status
func (s *OrderService) Complete(ctx context.Context, actor *models.User, id uint) (*models.Order, error) {
	return s.transition(ctx, actor, id, models.OrderStatusCompleted, false, nil)
}

// Cancel marks an order canceled regardless of its current status. The order
// is kept.
func (s *OrderService) Cancel(ctx context.Context, actor *models.User, id uint) (*models.Order, error) {
	return s.transition(ctx, actor, id, models.OrderStatusCanceled, false, nil)
}

// AdminEdit rewrites any field of an order. A supplied status is applied
// directly without consulting the transition rules.
func (s *OrderService) AdminEdit(ctx context.Context, actor *models.User, id uint, in OrderInput) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can edit orders directly")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var status models.OrderStatus
	if raw := strings.ToLower(strings.TrimSpace(in.Status)); raw != "" {
		parsed, ok := models.ParseOrderStatus(raw)
		if !ok {
			return nil, validation("Unknown status %q", in.Status)
		}
		status = parsed
	}

	return s.mutate(ctx, id, nil, in.Attachments, func(tx repository.OrderRepository, order *models.Order) error {
		if err := s.rewriteCustomer(ctx, tx, order, in); err != nil {
			return err
		}
		applyOrderFields(order, in)
		if status != "" {
			order.Status = status
		}
		return nil
	}, "Order edited by admin", actor)
}

// GetOrder returns an order visible to the actor
func (s *OrderService) GetOrder(ctx context.Context, actor *models.User, id uint) (*models.Order, error) {
	order, err := s.load(ctx, s.orders, id)
	if err != nil {
		return nil, err
	}
	if !order.CanBeViewedBy(actor) {
		return nil, forbidden("You do not have access to order %d", id)
	}
	s.ResolvePhotoURLs(order)
	return order, nil
}

// ResolvePhotoURLs fills the computed PhotoURLs field of each order. Keys the
// storage backend cannot resolve are left out.
func (s *OrderService) ResolvePhotoURLs(orders ...*models.Order) {
	if s.images == nil {
		return
	}
	for _, order := range orders {
		urls := make([]string, 0, len(order.Photos))
		for _, key := range order.Photos {
			url, err := s.images.GetImageURL(key)
			if err != nil {
				s.logger.Warn("Failed to resolve photo URL", zap.Uint("order_id", order.ID), zap.String("key", key), zap.Error(err))
				continue
			}
			urls = append(urls, url)
		}
		order.PhotoURLs = urls
	}
}

func (s *OrderService) transition(ctx context.Context, actor *models.User, id uint, to models.OrderStatus, requirePending bool, apply func(*models.Order)) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can change order status")
	}

	return s.mutate(ctx, id, func(order *models.Order) error {
		if requirePending && order.Status != models.OrderStatusPending {
			return invalidState("Order %d is %s, only pending orders can be %s", order.ID, order.Status, to)
		}
		return nil
	}, nil, func(_ repository.OrderRepository, order *models.Order) error {
		order.Status = to
		if apply != nil {
			apply(order)
		}
		return nil
	}, "Order status changed", actor)
}

// mutate runs one read-modify-write cycle on an order. Attachments are
// stored first, so the lock only covers the transaction: load, check, apply
// and save. check runs again under the lock; attachments stored for a cycle
// that fails are deleted again.
func (s *OrderService) mutate(
	ctx context.Context,
	id uint,
	check func(*models.Order) error,
	attachments []*multipart.FileHeader,
	apply func(tx repository.OrderRepository, order *models.Order) error,
	event string,
	actor *models.User,
) (*models.Order, error) {
	if len(attachments) > 0 {
		current, err := s.load(ctx, s.orders, id)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(current); err != nil {
				return nil, err
			}
		}
	}

	keys, err := s.storeAttachments(attachments)
	if err != nil {
		return nil, err
	}

	saved, from, err := s.lockedSave(ctx, id, check, keys, apply)
	if err != nil {
		s.discardAttachments(keys)
		return nil, err
	}

	s.logger.Info(event,
		zap.Uint("order_id", id),
		zap.Uint("actor_id", actor.ID),
		zap.String("from", from.String()),
		zap.String("to", saved.Status.String()),
		zap.Int("photos_added", len(keys)),
	)
	return s.reload(ctx, id)
}

func (s *OrderService) lockedSave(
	ctx context.Context,
	id uint,
	check func(*models.Order) error,
	keys []string,
	apply func(tx repository.OrderRepository, order *models.Order) error,
) (*models.Order, models.OrderStatus, error) {
	release, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, "", err
	}
	defer release()

	var from models.OrderStatus
	var saved *models.Order
	err = s.orders.Transaction(ctx, func(tx repository.OrderRepository) error {
		order, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if check != nil {
			if err := check(order); err != nil {
				return err
			}
		}
		if err := apply(tx, order); err != nil {
			return err
		}
		order.AddPhotos(keys...)
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
		saved = order
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return saved, from, nil
}

func (s *OrderService) rewriteCustomer(ctx context.Context, tx repository.OrderRepository, order *models.Order, in OrderInput) error {
	customer := order.Customer
	if customer == nil {
		customer = &models.Customer{CreatedAt: s.now().UTC()}
	}
	customer.Name = strings.TrimSpace(in.CustomerName)
	customer.Phone = strings.TrimSpace(in.Phone)
	customer.Address = strings.TrimSpace(in.Address)
	if err := tx.SaveCustomer(ctx, customer); err != nil {
		return err
	}
	order.Customer = customer
	order.CustomerID = customer.ID
	return nil
}

func applyOrderFields(order *models.Order, in OrderInput) {
	order.ProductName = strings.TrimSpace(in.ProductName)
	order.ProductDetails = strings.TrimSpace(in.ProductDetails)
	order.Price = in.Price
	order.Quantity = in.Quantity
	order.AmountAdvance = in.Advance
	order.DeliveryAt = in.DeliveryAt
	order.ReturnAt = in.ReturnAt
	order.ApplyAmounts()
}

func (s *OrderService) load(ctx context.Context, repo repository.OrderRepository, id uint) (*models.Order, error) {
	order, err := repo.LoadOrder(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) reload(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.load(ctx, s.orders, id)
	if err != nil {
		return nil, err
	}
	s.ResolvePhotoURLs(order)
	return order, nil
}

// storeAttachments uploads every file or none: if one upload fails the ones
// already stored are deleted
func (s *OrderService) storeAttachments(files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}

	keys := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := s.images.UploadImage(fh)
		if err != nil {
			s.discardAttachments(keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *OrderService) discardAttachments(keys []string) {
	for _, key := range keys {
		if err := s.images.DeleteImage(key); err != nil {
			s.logger.Warn("Failed to delete orphaned photo", zap.String("key", key), zap.Error(err))
		}
	}
}
