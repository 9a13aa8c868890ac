package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/neraa-rental/orders-api/models"
)

// MockBillRenderer is a mock implementation of BillRenderer for testing
type MockBillRenderer struct {
	failures map[uint]error
	rendered []uint
	// OnRender runs before each render, e.g. to cancel a context mid-batch
	OnRender func(order *models.Order)
	mu       sync.Mutex
}

// NewMockBillRenderer creates a new mock bill renderer
func NewMockBillRenderer() *MockBillRenderer {
	return &MockBillRenderer{failures: make(map[uint]error)}
}

// FailFor makes rendering the given order fail
func (m *MockBillRenderer) FailFor(orderID uint) {
	m.mu.Lock()
	m.failures[orderID] = NewRenderError(ErrCodeRenderFailed, fmt.Sprintf("mock failure for order %d", orderID), nil)
	m.mu.Unlock()
}

// RenderBill returns a small fake PDF naming the order
func (m *MockBillRenderer) RenderBill(ctx context.Context, order *models.Order) ([]byte, error) {
	if m.OnRender != nil {
		m.OnRender(order)
	}

	m.mu.Lock()
	m.rendered = append(m.rendered, order.ID)
	err := m.failures[order.ID]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, NewRenderError(ErrCodeRenderTimeout, "render canceled", ctxErr)
	}
	return []byte(fmt.Sprintf("%%PDF-1.4 mock bill for order %d", order.ID)), nil
}

// Rendered returns the order ids passed to RenderBill, in call order
func (m *MockBillRenderer) Rendered() []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint(nil), m.rendered...)
}
