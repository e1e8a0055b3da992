package intake

import (
	"context"

	"intake/internal/admission"
	"intake/internal/mirror"
	"intake/internal/models"
)

// ServiceInterface defines the interface for intake service operations
type ServiceInterface interface {
	// Submit validates, admits and stores a contact submission, then
	// schedules the best-effort follow-up work for the stored lead.
	Submit(ctx context.Context, req *models.ContactRequest, remoteIP string) (*models.ContactResponse, error)

	// Chat answers the liveness chat endpoint.
	Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)

	// ListLeads returns a page of stored leads, newest first.
	ListLeads(ctx context.Context, req *models.ListLeadsRequest) (*models.LeadListResponse, error)

	// GetLead returns a single stored lead.
	GetLead(ctx context.Context, id int64) (*models.Lead, error)
}

// Admitter runs admission checks. *admission.Controller satisfies it.
type Admitter interface {
	Admit(ctx context.Context, sub admission.Submission) error
}

// Scheduler runs best-effort work off the request path. *sidetask.Runner
// satisfies it.
type Scheduler interface {
	Go(name string, fn func(ctx context.Context) error) error
	Call(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Mirror copies a lead into an external workspace. *mirror.NotionClient
// satisfies it.
type Mirror interface {
	CreateLead(ctx context.Context, lead *models.Lead, score *models.LeadScore) (*mirror.PageResponse, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
