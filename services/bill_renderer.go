package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/utils"
	"go.uber.org/zap"
)

// Render error codes
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
)

// RenderError represents a failure to render one bill
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// BillRenderer produces the bill document for one order
type BillRenderer interface {
	RenderBill(ctx context.Context, order *models.Order) ([]byte, error)
}

// BillFilename is the archive entry name of an order's bill
func BillFilename(orderID uint) string {
	return fmt.Sprintf("bill_order_%d.pdf", orderID)
}

// BillData is what the bill template receives
type BillData struct {
	CompanyName string
	Order       *models.Order
	Customer    string
	Phone       string
	Address     string
	Staff       string
	Created     string
	Delivery    string
	Return      string
	Price       string
	Total       string
	Advance     string
	Pending     string
	GeneratedAt string
}

var billTemplate = template.Must(template.New("bill").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Bill #{{.Order.ID}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; margin: 24px; }
h1 { font-size: 20px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
td, th { border: 1px solid #999; padding: 6px; text-align: left; }
.right { text-align: right; }
</style>
</head>
<body>
<h1>{{.CompanyName}}</h1>
<p>Bill for order #{{.Order.ID}} &middot; {{.Created}}</p>
<p><strong>Customer:</strong> {{.Customer}}<br><strong>Phone:</strong> {{.Phone}}<br><strong>Address:</strong> {{.Address}}</p>
<p><strong>Handled by:</strong> {{.Staff}}<br><strong>Status:</strong> {{.Order.Status}}</p>
<table>
<tr><th>Product</th><th>Details</th><th class="right">Price</th><th class="right">Qty</th><th class="right">Total</th></tr>
<tr><td>{{.Order.ProductName}}</td><td>{{.Order.ProductDetails}}</td><td class="right">{{.Price}}</td><td class="right">{{.Order.Quantity}}</td><td class="right">{{.Total}}</td></tr>
</table>
<table>
<tr><td>Advance paid</td><td class="right">{{.Advance}}</td></tr>
<tr><td>Pending</td><td class="right">{{.Pending}}</td></tr>
<tr><td>Delivery</td><td class="right">{{.Delivery}}</td></tr>
<tr><td>Return</td><td class="right">{{.Return}}</td></tr>
</table>
<p>Generated {{.GeneratedAt}}</p>
</body>
</html>`))

// RenderBillHTML renders the bill markup for an order
func RenderBillHTML(companyName string, order *models.Order, now time.Time) (string, error) {
	data := BillData{
		CompanyName: companyName,
		Order:       order,
		Staff:       order.Staff.DisplayName(),
		Created:     utils.FormatDateTime(&order.CreatedAt),
		Delivery:    utils.FormatDateTime(order.DeliveryAt),
		Return:      utils.FormatDateTime(order.ReturnAt),
		Price:       order.Price.StringFixed(2),
		Total:       order.EffectiveTotal().StringFixed(2),
		Advance:     order.AmountAdvance.StringFixed(2),
		Pending:     order.AmountPending.StringFixed(2),
		GeneratedAt: now.UTC().Format("2006-01-02 15:04"),
	}
	if order.Customer != nil {
		data.Customer = order.Customer.Name
		data.Phone = order.Customer.Phone
		data.Address = order.Customer.Address
	}

	var buf bytes.Buffer
	if err := billTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render bill template: %w", err)
	}
	return buf.String(), nil
}

// ChromedpConfig configures the chromedp bill renderer
type ChromedpConfig struct {
	CompanyName string
	// RemoteURL points at a running Chrome DevTools endpoint; empty launches a
	// local headless browser
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpBillRenderer renders bills to PDF through headless Chrome
type ChromedpBillRenderer struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpBillRenderer creates a renderer and its browser allocator. The
// browser itself starts lazily on the first render.
func NewChromedpBillRenderer(cfg ChromedpConfig) *ChromedpBillRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := &ChromedpBillRenderer{
		config: cfg,
		logger: logger.OrNop(cfg.Logger),
	}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-background-networking", true),
		)
		if cfg.NoSandbox {
			opts = append(opts, chromedp.Flag("no-sandbox", true))
		}
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return r
}

// RenderBill renders one order's bill as PDF, bounded by the configured timeout
func (r *ChromedpBillRenderer) RenderBill(ctx context.Context, order *models.Order) ([]byte, error) {
	html, err := RenderBillHTML(r.config.CompanyName, order, time.Now())
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "bill template failed", err)
	}

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, r.config.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("bill for order %d timed out after %v", order.ID, r.config.Timeout), err)
		}
		return nil, NewRenderError(ErrCodeRenderFailed, fmt.Sprintf("bill for order %d failed", order.ID), err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	r.logger.Debug("Bill rendered", zap.Uint("order_id", order.ID), zap.Int("bytes", len(pdf)))
	return pdf, nil
}

// Close shuts down the browser allocator
func (r *ChromedpBillRenderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}
