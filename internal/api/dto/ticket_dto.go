package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurekit/procurement-service/internal/domain"
)

// DateLayout is the wire format of calendar dates such as need_by_date.
const DateLayout = "2006-01-02"

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	TeamName             string           `json:"team_name" validate:"required,oneof=INNOVATION ENGINEERING SALES"`
	Title                string           `json:"title" validate:"required,max=200"`
	Description          string           `json:"description" validate:"max=5000"`
	Priority             string           `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	RequesterName        string           `json:"requester_name" validate:"max=200"`
	Department           string           `json:"department" validate:"max=200"`
	ComponentDescription *string          `json:"component_description" validate:"omitempty,max=2000"`
	BOMID                *string          `json:"bom_id" validate:"omitempty,max=100"`
	ProductID            *string          `json:"product_id" validate:"omitempty,max=100"`
	ItemName             *string          `json:"item_name" validate:"omitempty,max=200"`
	ProjectCustomer      *string          `json:"project_customer" validate:"omitempty,max=200"`
	NeedByDate           *string          `json:"need_by_date" validate:"omitempty,datetime=2006-01-02"`
	ChargeCode           *string          `json:"charge_code" validate:"omitempty,max=100"`
	CostCurrency         *string          `json:"cost_currency" validate:"omitempty,oneof=USD INR EUR"`
	EstimatedCost        *decimal.Decimal `json:"estimated_cost"`
	Rate                 *decimal.Decimal `json:"rate"`
	Unit                 *string          `json:"unit" validate:"omitempty,max=50"`
	EstimatedPODate      *string          `json:"estimated_po_date" validate:"omitempty,datetime=2006-01-02"`
	PlaceOfDelivery      *string          `json:"place_of_delivery" validate:"omitempty,max=200"`
	Quantity             *int             `json:"quantity" validate:"omitempty,gt=0"`
	DealName             *string          `json:"deal_name" validate:"omitempty,max=200"`
}

// TransitionRequest is the body of PATCH /tickets/:id.
type TransitionRequest struct {
	Action  string `json:"action" validate:"required,oneof=submit approved rejected mark_delivered confirm_receipt"`
	Remarks string `json:"remarks" validate:"max=2000"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                   string                `json:"id"`
	RequestID            string                `json:"request_id"`
	RequesterID          string                `json:"requester_id"`
	TeamName             domain.TeamName       `json:"team_name"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Status               domain.TicketStatus   `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	RequesterName        string                `json:"requester_name"`
	Department           string                `json:"department"`
	ComponentDescription *string               `json:"component_description"`
	BOMID                *string               `json:"bom_id"`
	ProductID            *string               `json:"product_id"`
	ItemName             *string               `json:"item_name"`
	ProjectCustomer      *string               `json:"project_customer"`
	NeedByDate           *string               `json:"need_by_date"`
	ChargeCode           *string               `json:"charge_code"`
	CostCurrency         *domain.CostCurrency  `json:"cost_currency"`
	EstimatedCost        *decimal.Decimal      `json:"estimated_cost"`
	Rate                 *decimal.Decimal      `json:"rate"`
	Unit                 *string               `json:"unit"`
	EstimatedPODate      *string               `json:"estimated_po_date"`
	PlaceOfDelivery      *string               `json:"place_of_delivery"`
	Quantity             *int                  `json:"quantity"`
	DealName             *string               `json:"deal_name"`
	RejectionRemarks     *string               `json:"rejection_remarks"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	DeliveredAt          *time.Time            `json:"delivered_at"`
	ConfirmedAt          *time.Time            `json:"confirmed_at"`
	AutoClosedAt         *time.Time            `json:"auto_closed_at"`
}

// ApprovalLogResponse is one audit entry.
type ApprovalLogResponse struct {
	ID        string                `json:"id"`
	UserID    *string               `json:"user_id"`
	UserEmail string                `json:"user_email"`
	Action    domain.ApprovalAction `json:"action"`
	Remarks   *string               `json:"remarks"`
	CreatedAt time.Time             `json:"created_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AuthorName *string   `json:"author_name"`
	AuthorMail string    `json:"author_email"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	TicketID  string                  `json:"ticket_id"`
	Type      domain.NotificationType `json:"type"`
	Recipient string                  `json:"recipient"`
	Payload   map[string]any          `json:"payload"`
	SentAt    time.Time               `json:"sent_at"`
}

// ItemResponse is an accounting catalogue entry.
type ItemResponse struct {
	SKU  string           `json:"sku"`
	Name string           `json:"name"`
	Rate *decimal.Decimal `json:"rate"`
	Unit string           `json:"unit"`
}
