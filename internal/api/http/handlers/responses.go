package handlers

import (
	"time"

	"github.com/procurekit/procurement-service/internal/api/dto"
	"github.com/procurekit/procurement-service/internal/domain"
)

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	d := ticket.Details
	return dto.TicketResponse{
		ID:                   ticket.ID,
		RequestID:            ticket.RequestID,
		RequesterID:          ticket.RequesterID,
		TeamName:             ticket.TeamName,
		Title:                ticket.Title,
		Description:          ticket.Description,
		Status:               ticket.Status,
		Priority:             ticket.Priority,
		RequesterName:        d.RequesterName,
		Department:           d.Department,
		ComponentDescription: d.ComponentDescription,
		BOMID:                d.BOMID,
		ProductID:            d.ProductID,
		ItemName:             d.ItemName,
		ProjectCustomer:      d.ProjectCustomer,
		NeedByDate:           formatDate(d.NeedByDate),
		ChargeCode:           d.ChargeCode,
		CostCurrency:         d.CostCurrency,
		EstimatedCost:        d.EstimatedCost,
		Rate:                 d.Rate,
		Unit:                 d.Unit,
		EstimatedPODate:      formatDate(d.EstimatedPODate),
		PlaceOfDelivery:      d.PlaceOfDelivery,
		Quantity:             d.Quantity,
		DealName:             d.DealName,
		RejectionRemarks:     ticket.RejectionRemarks,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		DeliveredAt:          ticket.DeliveredAt,
		ConfirmedAt:          ticket.ConfirmedAt,
		AutoClosedAt:         ticket.AutoClosedAt,
	}
}

func approvalResponses(entries []domain.ApprovalLog) []dto.ApprovalLogResponse {
	resp := make([]dto.ApprovalLogResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.ApprovalLogResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			UserEmail: entry.UserEmail,
			Action:    entry.Action,
			Remarks:   entry.Remarks,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		UserID:     comment.UserID,
		AuthorName: comment.AuthorName,
		AuthorMail: comment.AuthorMail,
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
}

func profileResponse(user *domain.User) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		ProfileName: user.ProfileName,
		Roles:       user.Roles.Strings(),
		Team:        user.Team,
	}
}

func optionalProfile(user *domain.User) *dto.ProfileResponse {
	if user == nil {
		return nil
	}
	resp := profileResponse(user)
	return &resp
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dto.DateLayout)
	return &s
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(dto.DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
