package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bloxxvault/ticket-bot/internal/api/dto"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

// TicketLister lists live tickets.
type TicketLister interface {
	Tickets() []domain.Ticket
}

// AuditReader reads archived audit events.
type AuditReader interface {
	ListByChannel(ctx context.Context, channelID string, limit int) ([]events.Event, error)
}

// TicketsHandler exposes the live ticket registry to operators.
type TicketsHandler struct {
	tickets TicketLister
	audit   AuditReader
}

// NewTicketsHandler constructs handler. audit may be nil when no archive is configured.
func NewTicketsHandler(tickets TicketLister, audit AuditReader) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, audit: audit}
}

// List GET /ops/tickets. The optional state filter is case-insensitive.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	state := domain.TicketState(strings.ToUpper(strings.TrimSpace(c.Query("state"))))
	switch state {
	case "", domain.TicketStateOpen, domain.TicketStateClaimed:
	default:
		return apperrors.NewDomainError("VALIDATION_ERROR", "state must be open or claimed", fiber.StatusBadRequest,
			map[string]any{"state": c.Query("state")})
	}
	all := h.tickets.Tickets()
	out := make([]dto.TicketResponse, 0, len(all))
	for _, t := range all {
		if state != "" && t.State != state {
			continue
		}
		out = append(out, dto.TicketFromDomain(t))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

// Audit GET /ops/tickets/:channelID/audit.
func (h *TicketsHandler) Audit(c *fiber.Ctx) error {
	if h.audit == nil {
		return fiber.NewError(fiber.StatusNotFound, "audit archive not configured")
	}
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		return apperrors.NewDomainError("VALIDATION_ERROR", "limit must be a positive integer", fiber.StatusBadRequest, nil)
	}
	list, err := h.audit.ListByChannel(c.UserContext(), c.Params("channelID"), limit)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	out := make([]dto.AuditEventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.AuditEventFromDomain(e))
	}
	return c.JSON(fiber.Map{"data": out})
}
