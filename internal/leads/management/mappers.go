package management

import (
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/leads/transport"
)

func ToLeadResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                l.ID,
		LeadgenID:         l.LeadgenID,
		PageID:            l.PageID,
		FormID:            l.FormID,
		AdID:              l.AdID,
		FormName:          l.FormName,
		FullName:          l.FullName,
		Email:             l.Email,
		Phone:             l.Phone,
		Status:            l.Status,
		Quality:           l.Quality,
		SourceCreatedAt:   l.SourceCreatedAt,
		AssignedTo:        l.AssignedTo,
		FeedbackStatus:    l.FeedbackStatus,
		FeedbackSentAt:    l.FeedbackSentAt,
		FeedbackChannel:   l.FeedbackChannel,
		FeedbackAttempts:  l.FeedbackAttempts,
		FeedbackLastError: l.FeedbackLastError,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func ToListResponse(leads []repository.Lead, total, limit, offset int) transport.ListLeadsResponse {
	items := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		items = append(items, ToLeadResponse(l))
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return transport.ListLeadsResponse{Items: items, Total: total, Limit: limit, Offset: offset}
}
