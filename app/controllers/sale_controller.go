package controllers

import (
	"time"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/ctx"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/sse"
)

const heartbeat = 15 * time.Second

type SaleController struct {
	sales *services.SaleService
}

func NewSaleController(sales *services.SaleService) *SaleController {
	return &SaleController{sales: sales}
}

// Register POST /sales/register-sale
//
// A sale whose receipt could not be uploaded or mailed is still
// registered; the failure envelope carries it so the client learns its id.
func (h *SaleController) Register(c *ctx.Context) {
	p, ok := c.Principal()
	if !ok {
		c.Fail(apperr.Unauthorized("Unauthorized"))
		return
	}
	var in services.RegisterSaleInput
	if !c.Decode(&in) {
		return
	}
	if !p.IsAdmin && in.UserID != 0 && in.UserID != p.ID {
		c.Fail(apperr.Forbidden("Sales can only be registered for your own account"))
		return
	}

	sale, err := h.sales.Register(c.Context(), in)
	switch {
	case err == nil:
		c.Created("Sale registered successfully", sale)
	case sale != nil:
		c.FailWith(err, sale)
	default:
		c.Fail(err)
	}
}

func (h *SaleController) Index(c *ctx.Context) {
	p, ok := c.Principal()
	if !ok {
		c.Fail(apperr.Unauthorized("Unauthorized"))
		return
	}
	sales, err := h.sales.ListFor(c.Context(), p)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sales)
}

func (h *SaleController) Show(c *ctx.Context) {
	p, ok := c.Principal()
	if !ok {
		c.Fail(apperr.Unauthorized("Unauthorized"))
		return
	}
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	sale, err := h.sales.GetFor(c.Context(), p, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sale)
}

// Resume POST /sales/{id}/resume retries the receipt workflow now instead
// of waiting for the sweeper.
func (h *SaleController) Resume(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	sale, err := h.sales.Resume(c.Context(), id)
	switch {
	case err == nil:
		c.Success(sale)
	case sale != nil:
		c.FailWith(err, sale)
	default:
		c.Fail(err)
	}
}

// Events GET /sales/{id}/events streams the sale's status changes as
// Server-Sent Events until the receipt is delivered or the client leaves.
func (h *SaleController) Events(c *ctx.Context) {
	p, ok := c.Principal()
	if !ok {
		c.Fail(apperr.Unauthorized("Unauthorized"))
		return
	}
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}

	// Subscribe before reading so no transition falls between the two.
	events, stop := h.sales.Watch(id)
	defer stop()

	sale, err := h.sales.GetFor(c.Context(), p, id)
	if err != nil {
		c.Fail(err)
		return
	}

	stream, err := sse.New(c.W, c.R)
	if err != nil {
		c.Fail(apperr.Internal(err))
		return
	}
	log := logger.WithCtx(c.Context()).With("sale_id", id)

	current := services.SaleEvent{SaleID: sale.ID, UserID: sale.UserID, Status: sale.Status, PdfURL: sale.PdfURL, At: sale.UpdatedAt}
	if err := stream.Send(services.EventSaleStatus, current); err != nil || sale.Status == models.SaleNotified {
		return
	}

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-stream.Done():
			return
		case <-tick.C:
			if err := stream.Comment("keepalive"); err != nil {
				return
			}
		case ev := <-events:
			if err := stream.Send(services.EventSaleStatus, ev); err != nil {
				log.Debug("sales: event stream closed", "error", err)
				return
			}
			if ev.Status == models.SaleNotified {
				return
			}
		}
	}
}
