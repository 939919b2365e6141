package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/procurekit/procurement-service/internal/api/dto"
	"github.com/procurekit/procurement-service/internal/service"
)

// NotificationsHandler serves the caller's inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// Inbox GET /notifications.
func (h *NotificationsHandler) Inbox(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.notifications.Inbox(c.UserContext(), principal.Email)
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, dto.NotificationResponse{
			ID:        n.ID,
			TicketID:  n.TicketID,
			Type:      n.Type,
			Recipient: n.Recipient,
			Payload:   n.Payload,
			SentAt:    n.SentAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
