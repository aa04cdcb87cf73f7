package services

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"path"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/audit"
	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/event"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/mail"
	"github.com/storefront-go/storefront/pkg/metrics"
	"github.com/storefront-go/storefront/pkg/receipt"
	"github.com/storefront-go/storefront/pkg/reqid"
	"github.com/storefront-go/storefront/pkg/storage"
	"github.com/storefront-go/storefront/pkg/validate"
)

// Error codes carried by the UpstreamFailure errors of the receipt workflow.
const (
	CodeReceiptUploadFailed = "ReceiptUploadFailed"
	CodeEmailDeliveryFailed = "EmailDeliveryFailed"
)

// ErrReceiptUploadFailed and ErrEmailDeliveryFailed match the workflow
// failures with errors.Is.
var (
	ErrReceiptUploadFailed = &apperr.Error{Kind: apperr.KindUpstreamFailure, Code: CodeReceiptUploadFailed}
	ErrEmailDeliveryFailed = &apperr.Error{Kind: apperr.KindUpstreamFailure, Code: CodeEmailDeliveryFailed}
)

// EventSaleStatus is fired on the bus after every workflow transition and
// failure, with a SaleEvent payload.
const EventSaleStatus = "sale.status"

// SaleEvent is the payload of EventSaleStatus.
type SaleEvent struct {
	SaleID uint              `json:"saleId"`
	UserID uint              `json:"userId"`
	Status models.SaleStatus `json:"status"`
	PdfURL *string           `json:"pdfUrl,omitempty"`
	Error  string            `json:"error,omitempty"`
	At     time.Time         `json:"at"`
}

// CartLine is one submitted cart entry.
type CartLine struct {
	ProductID *uint           `json:"productId,omitempty"`
	Name      string          `json:"name" validate:"required,max=255"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
}

// RegisterSaleInput is the body of POST /sales/register-sale.
type RegisterSaleInput struct {
	UserID uint            `json:"userId" validate:"required"`
	Cart   []CartLine      `json:"cart" validate:"required,min=1,dive"`
	Total  decimal.Decimal `json:"total" validate:"gt=0"`
	Email  string          `json:"email" validate:"required,email"`
}

var receiptMail = template.Must(template.New("receipt").Parse(`<p>Thank you for your purchase at {{.Store}}.</p>
<p>Order #{{.SaleID}} &middot; Total: ${{.Total}}</p>
<table>
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">${{.Price.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Your receipt is attached and also available at <a href="{{.URL}}">{{.URL}}</a>.</p>`))

type receiptMailData struct {
	Store  string
	SaleID uint
	Total  string
	Lines  []models.CartItem
	URL    string
}

// SaleService runs the sale registration workflow:
//
//	persist → render → upload → link → notify
//
// Each step moves the persisted status forward, so a sale that fails part
// way can be resumed from where it stopped.
type SaleService struct {
	cfg      *config.Config
	sales    *repositories.SaleRepository
	products *repositories.ProductRepository
	disk     storage.Disk
	mailer   mail.Sender
	bus      *event.Bus
	audit    *audit.Sink
}

// SaleOption customises a SaleService.
type SaleOption func(*SaleService)

// WithEvents publishes workflow transitions on bus.
func WithEvents(bus *event.Bus) SaleOption {
	return func(s *SaleService) { s.bus = bus }
}

// WithAudit records workflow transitions in sink.
func WithAudit(sink *audit.Sink) SaleOption {
	return func(s *SaleService) { s.audit = sink }
}

func NewSaleService(
	cfg *config.Config,
	sales *repositories.SaleRepository,
	products *repositories.ProductRepository,
	disk storage.Disk,
	mailer mail.Sender,
	opts ...SaleOption,
) *SaleService {
	s := &SaleService{cfg: cfg, sales: sales, products: products, disk: disk, mailer: mailer}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ─── Lookup ───────────────────────────────────────────────────────────────────

func (s *SaleService) Get(ctx context.Context, id uint) (*models.Sale, error) {
	return s.sales.Find(ctx, id)
}

func (s *SaleService) List(ctx context.Context) ([]models.Sale, error) {
	return s.sales.All(ctx)
}

// GetFor is Get scoped to what viewer may see. Another buyer's sale reads
// as missing.
func (s *SaleService) GetFor(ctx context.Context, viewer auth.Principal, id uint) (*models.Sale, error) {
	sale, err := s.sales.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin && sale.UserID != viewer.ID {
		return nil, apperr.NotFound("Sale not found")
	}
	return sale, nil
}

// ListFor returns every sale to administrators and a buyer's own sales
// to everyone else.
func (s *SaleService) ListFor(ctx context.Context, viewer auth.Principal) ([]models.Sale, error) {
	if viewer.IsAdmin {
		return s.sales.All(ctx)
	}
	return s.sales.ByUser(ctx, viewer.ID)
}

// Watch streams the status events of one sale until stop is called. Events
// are dropped when the reader falls behind. Without an event bus the
// channel never delivers.
func (s *SaleService) Watch(saleID uint) (events <-chan SaleEvent, stop func()) {
	ch := make(chan SaleEvent, 8)
	if s.bus == nil {
		return ch, func() {}
	}
	stop = s.bus.Subscribe(EventSaleStatus, func(p any) {
		ev, ok := p.(SaleEvent)
		if !ok || ev.SaleID != saleID {
			return
		}
		select {
		case ch <- ev:
		default:
		}
	})
	return ch, stop
}

// ─── Registration ─────────────────────────────────────────────────────────────

// Register persists the sale and drives it through the receipt workflow.
// Once the row is inserted the sale is registered: a later failure is
// returned alongside the sale, which keeps its row and a null pdfUrl until
// the receipt is linked.
func (s *SaleService) Register(ctx context.Context, in RegisterSaleInput) (*models.Sale, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Missing required fields", errs)
	}

	cart := make([]models.CartItem, len(in.Cart))
	for i, l := range in.Cart {
		cart[i] = models.CartItem{ProductID: l.ProductID, Name: l.Name, Price: l.Price, Quantity: l.Quantity}
	}

	if s.cfg.Sales.PricePolicy == config.PriceRevalidate {
		if err := s.revalidate(ctx, cart, in.Total); err != nil {
			metrics.RecordSaleOutcome("rejected")
			return nil, err
		}
	}

	snapshot, err := models.EncodeSnapshot(cart)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	sale := &models.Sale{UserID: in.UserID, Snapshot: snapshot, Total: in.Total, Email: in.Email}
	start := time.Now()
	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, err
	}
	metrics.ObserveSaleStage("persist", start)
	s.transitioned(ctx, sale)

	return sale, s.advance(ctx, sale)
}

// Resume continues a sale from its persisted status. A notified sale is
// returned untouched.
func (s *SaleService) Resume(ctx context.Context, id uint) (*models.Sale, error) {
	sale, err := s.sales.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale.Status.Terminal() {
		return sale, nil
	}
	logger.WithCtx(ctx).Info("sales: resuming", "sale_id", sale.ID, "status", sale.Status, "attempts", sale.Attempts)
	return sale, s.advance(ctx, sale)
}

// advance runs every step the sale has not reached yet.
func (s *SaleService) advance(ctx context.Context, sale *models.Sale) error {
	items, err := sale.Items()
	if err != nil {
		return s.fail(ctx, sale, "corrupt_snapshot", apperr.Internal(err))
	}

	var pdf []byte
	if !sale.Status.Reached(models.SaleUploaded) {
		start := time.Now()
		if pdf, err = s.render(sale, items); err != nil {
			return s.fail(ctx, sale, "render_failed", apperr.Internal(err))
		}
		metrics.ObserveSaleStage("render", start)
		if err := s.step(ctx, sale, models.SaleRendered, nil); err != nil {
			return err
		}

		start = time.Now()
		key := s.receiptKey(sale.ID)
		if err := s.upload(ctx, key, pdf); err != nil {
			return s.fail(ctx, sale, "upload_failed",
				apperr.Upstream(CodeReceiptUploadFailed, "Failed to upload receipt", err))
		}
		metrics.ObserveSaleStage("upload", start)
		if err := s.step(ctx, sale, models.SaleUploaded, map[string]any{"receipt_key": key}); err != nil {
			return err
		}
	}

	if !sale.Status.Reached(models.SaleLinked) {
		start := time.Now()
		key := sale.ReceiptKey
		if key == "" {
			key = s.receiptKey(sale.ID)
		}
		if err := s.sales.LinkReceipt(ctx, sale, s.disk.URL(key)); err != nil {
			return err
		}
		metrics.ObserveSaleStage("link", start)
		s.transitioned(ctx, sale)
	}

	if !sale.Status.Reached(models.SaleNotified) {
		if pdf == nil {
			if pdf, err = s.render(sale, items); err != nil {
				return s.fail(ctx, sale, "render_failed", apperr.Internal(err))
			}
		}
		start := time.Now()
		if err := s.notify(ctx, sale, items, pdf); err != nil {
			return s.fail(ctx, sale, "notify_failed",
				apperr.Upstream(CodeEmailDeliveryFailed, "Failed to send receipt email", err))
		}
		metrics.ObserveSaleStage("notify", start)
		if err := s.step(ctx, sale, models.SaleNotified, nil); err != nil {
			return err
		}
	}

	metrics.RecordSaleOutcome("notified")
	return nil
}

func (s *SaleService) step(ctx context.Context, sale *models.Sale, next models.SaleStatus, extra map[string]any) error {
	if err := s.sales.Advance(ctx, sale, next, extra); err != nil {
		return err
	}
	s.transitioned(ctx, sale)
	return nil
}

// render is deterministic for a given sale: the receipt is dated with the
// sale's creation time.
func (s *SaleService) render(sale *models.Sale, items []models.CartItem) ([]byte, error) {
	lines := make([]receipt.Line, len(items))
	for i, it := range items {
		lines[i] = receipt.Line{Name: it.Name, Price: it.Price, Quantity: it.Quantity}
	}
	return receipt.Render(receipt.Receipt{
		StoreName: s.cfg.Receipt.StoreName,
		LogoPath:  s.cfg.Receipt.LogoPath,
		SaleID:    sale.ID,
		UserID:    sale.UserID,
		Date:      sale.CreatedAt,
		Lines:     lines,
		Total:     sale.Total,
	})
}

func (s *SaleService) upload(ctx context.Context, key string, pdf []byte) error {
	if d := s.cfg.Storage.UploadTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return s.disk.Put(ctx, key, pdf, "application/pdf")
}

func (s *SaleService) notify(ctx context.Context, sale *models.Sale, items []models.CartItem, pdf []byte) error {
	url := ""
	if sale.PdfURL != nil {
		url = *sale.PdfURL
	}

	msg := mail.To(sale.Email).
		BCC(s.cfg.Mail.NotifyAddress).
		Subject(fmt.Sprintf("Your %s receipt #%d", s.cfg.Receipt.StoreName, sale.ID)).
		Template(receiptMail, receiptMailData{
			Store:  s.cfg.Receipt.StoreName,
			SaleID: sale.ID,
			Total:  sale.Total.StringFixed(2),
			Lines:  items,
			URL:    url,
		}).
		Attach(receipt.FileName(sale.ID), "application/pdf", pdf)

	if d := s.cfg.Mail.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return s.mailer.Send(ctx, msg)
}

func (s *SaleService) receiptKey(id uint) string {
	return path.Join(s.cfg.Receipt.Prefix, fmt.Sprintf("sale-%d.pdf", id))
}

// fail records the failure on the sale and returns cause for the caller.
func (s *SaleService) fail(ctx context.Context, sale *models.Sale, outcome string, cause *apperr.Error) error {
	log := logger.WithCtx(ctx).With("sale_id", sale.ID, "status", sale.Status)
	log.Error("sales: workflow step failed", "outcome", outcome, "error", cause)

	// The request ctx may be done (timeouts); the failure must still land.
	if err := s.sales.RecordFailure(context.WithoutCancel(ctx), sale, cause); err != nil {
		log.Error("sales: record failure", "error", err)
	}
	metrics.RecordSaleOutcome(outcome)

	detail := outcome
	if cause.Err != nil {
		detail = outcome + ": " + cause.Err.Error()
	}
	s.record(ctx, sale, "failed", detail)
	s.bus.Fire(EventSaleStatus, SaleEvent{
		SaleID: sale.ID, UserID: sale.UserID, Status: sale.Status,
		PdfURL: sale.PdfURL, Error: outcome, At: time.Now(),
	})
	return cause
}

func (s *SaleService) transitioned(ctx context.Context, sale *models.Sale) {
	logger.WithCtx(ctx).Debug("sales: status", "sale_id", sale.ID, "status", sale.Status)
	s.record(ctx, sale, string(sale.Status), "")
	s.bus.Fire(EventSaleStatus, SaleEvent{
		SaleID: sale.ID, UserID: sale.UserID, Status: sale.Status,
		PdfURL: sale.PdfURL, At: time.Now(),
	})
}

func (s *SaleService) record(ctx context.Context, sale *models.Sale, action, detail string) {
	entry := audit.Entry{
		Subject:   "sale",
		SubjectID: sale.ID,
		Action:    action,
		Detail:    detail,
		RequestID: reqid.FromCtx(ctx),
		At:        time.Now(),
	}
	if p, ok := auth.PrincipalFrom(ctx); ok {
		entry.ActorID = p.ID
	}
	s.audit.Record(entry)
}

// ─── Price policy ─────────────────────────────────────────────────────────────

// revalidate checks every line against the catalog: the product must exist,
// the price must match and the quantity must be in stock. The submitted
// total must equal the sum of the lines.
func (s *SaleService) revalidate(ctx context.Context, cart []models.CartItem, total decimal.Decimal) error {
	fields := map[string]string{}
	sum := decimal.Zero

	for i, item := range cart {
		field := fmt.Sprintf("cart[%d]", i)
		sum = sum.Add(item.LineTotal())

		var (
			p   *models.Product
			err error
		)
		if item.ProductID != nil {
			p, err = s.products.Find(ctx, *item.ProductID)
		} else {
			p, err = s.products.FindByName(ctx, item.Name)
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				fields[field+".name"] = fmt.Sprintf("The product %q is not in the catalog.", item.Name)
				continue
			}
			return err
		}

		if !item.Price.Equal(p.Price) {
			fields[field+".price"] = fmt.Sprintf("The price of %s is %s.", p.Name, p.Price.StringFixed(2))
		}
		if item.Quantity > p.Stock {
			fields[field+".quantity"] = fmt.Sprintf("Only %d of %s in stock.", p.Stock, p.Name)
		}
	}

	if !sum.Equal(total) {
		fields["total"] = fmt.Sprintf("The total must equal the cart sum of %s.", sum.StringFixed(2))
	}
	if len(fields) > 0 {
		return apperr.Invalid("Cart does not match the catalog", fields)
	}
	return nil
}

// IsWorkflowFailure reports whether err came from a receipt workflow step
// after the sale was persisted.
func IsWorkflowFailure(err error) bool {
	return errors.Is(err, ErrReceiptUploadFailed) || errors.Is(err, ErrEmailDeliveryFailed)
}
