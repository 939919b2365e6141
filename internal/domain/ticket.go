package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates lifecycle states for procurement tickets.
type TicketStatus string

const (
	TicketStatusDraft                TicketStatus = "DRAFT"
	TicketStatusPendingFHApproval    TicketStatus = "PENDING_FH_APPROVAL"
	TicketStatusPendingL1Approval    TicketStatus = "PENDING_L1_APPROVAL"
	TicketStatusPendingCFOApproval   TicketStatus = "PENDING_CFO_APPROVAL"
	TicketStatusPendingCDOApproval   TicketStatus = "PENDING_CDO_APPROVAL"
	TicketStatusAssignedToProduction TicketStatus = "ASSIGNED_TO_PRODUCTION"
	TicketStatusDelivered            TicketStatus = "DELIVERED_TO_REQUESTER"
	TicketStatusConfirmed            TicketStatus = "CONFIRMED_BY_REQUESTER"
	TicketStatusClosed               TicketStatus = "CLOSED"
	TicketStatusRejected             TicketStatus = "REJECTED"
)

// TicketStatuses lists every status in pipeline order.
var TicketStatuses = []TicketStatus{
	TicketStatusDraft,
	TicketStatusPendingFHApproval,
	TicketStatusPendingL1Approval,
	TicketStatusPendingCFOApproval,
	TicketStatusPendingCDOApproval,
	TicketStatusAssignedToProduction,
	TicketStatusDelivered,
	TicketStatusConfirmed,
	TicketStatusClosed,
	TicketStatusRejected,
}

// IsTerminal reports whether no further transition leaves s.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusRejected
}

// TicketPriority enumerates urgency, ordered from lowest to highest.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

var priorityRank = map[TicketPriority]int{
	TicketPriorityLow:    0,
	TicketPriorityMedium: 1,
	TicketPriorityHigh:   2,
	TicketPriorityUrgent: 3,
}

// Rank orders priorities; unknown values rank below LOW.
func (p TicketPriority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return -1
}

// CostCurrency enumerates accepted currencies.
type CostCurrency string

const (
	CurrencyUSD CostCurrency = "USD"
	CurrencyINR CostCurrency = "INR"
	CurrencyEUR CostCurrency = "EUR"
)

// ProcurementDetails carries the purchase fields the workflow treats as opaque.
type ProcurementDetails struct {
	RequesterName        string
	Department           string
	ComponentDescription *string
	BOMID                *string
	ProductID            *string
	ItemName             *string
	ProjectCustomer      *string
	NeedByDate           *time.Time
	ChargeCode           *string
	CostCurrency         *CostCurrency
	EstimatedCost        *decimal.Decimal
	Rate                 *decimal.Decimal
	Unit                 *string
	EstimatedPODate      *time.Time
	PlaceOfDelivery      *string
	Quantity             *int
	DealName             *string
}

// Ticket is the aggregate for procurement requests.
type Ticket struct {
	ID               string
	RequestID        string
	RequesterID      string
	TeamName         TeamName
	Title            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	Details          ProcurementDetails
	RejectionRemarks *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeliveredAt      *time.Time
	ConfirmedAt      *time.Time
	AutoClosedAt     *time.Time
}
