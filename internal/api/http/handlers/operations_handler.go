package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/procurekit/procurement-service/internal/accounting"
	"github.com/procurekit/procurement-service/internal/api/dto"
	"github.com/procurekit/procurement-service/internal/worker"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// AutoCloseRunner runs one reaper sweep.
type AutoCloseRunner interface {
	RunOnce(ctx context.Context) (worker.SweepResult, error)
}

// ItemLookup finds a catalogue item by SKU.
type ItemLookup interface {
	LookupBySKU(ctx context.Context, sku string) (*accounting.Item, error)
}

// OperationsHandler serves the cron trigger and the accounting item lookup.
type OperationsHandler struct {
	reaper AutoCloseRunner
	items  ItemLookup
}

// NewOperationsHandler constructs handler.
func NewOperationsHandler(reaper AutoCloseRunner, items ItemLookup) *OperationsHandler {
	return &OperationsHandler{reaper: reaper, items: items}
}

// AutoClose GET /cron/auto-close.
func (h *OperationsHandler) AutoClose(c *fiber.Ctx) error {
	result, err := h.reaper.RunOnce(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"closed":  result.Closed,
		"skipped": result.Skipped,
	}})
}

// LookupItem GET /items/lookup?sku=.
func (h *OperationsHandler) LookupItem(c *fiber.Ctx) error {
	sku := strings.TrimSpace(c.Query("sku"))
	if sku == "" {
		return apperrors.NewValidationError("sku is required", map[string]any{"field": "sku"})
	}
	item, err := h.items.LookupBySKU(c.UserContext(), sku)
	switch {
	case errors.Is(err, accounting.ErrNotConfigured):
		return apperrors.NewNotConfigured("item lookup is not configured")
	case err != nil:
		return apperrors.NewUpstreamError("item lookup failed", err)
	case item == nil:
		return apperrors.NewNotFound("item", map[string]any{"sku": sku})
	}
	return c.JSON(fiber.Map{"data": dto.ItemResponse{
		SKU:  item.SKU,
		Name: item.Name,
		Rate: item.Rate,
		Unit: item.Unit,
	}})
}
