package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"intake/internal/admission"
	"intake/internal/models"
	"intake/internal/notify"
	"intake/internal/scoring"
	"intake/internal/storage"
)

// Collaborator names used for side task logging, metrics and breakers.
const (
	TaskFollowUp = "lead.followup"

	CollaboratorScoring = "scoring"
	CollaboratorMirror  = "notion"
	CollaboratorEmail   = "email"
)

// Service handles contact submissions and lead retrieval.
type Service struct {
	storage   storage.Storage
	admission Admitter
	tasks     Scheduler

	scorer scoring.Scorer
	mirror Mirror
	sender notify.Sender
	from   string
	to     []string
}

// Option configures the optional collaborators of a Service.
type Option func(*Service)

// WithScorer enables lead scoring.
func WithScorer(s scoring.Scorer) Option {
	return func(svc *Service) { svc.scorer = s }
}

// WithMirror enables copying leads to an external workspace.
func WithMirror(m Mirror) Option {
	return func(svc *Service) { svc.mirror = m }
}

// WithNotifier enables the new lead email.
func WithNotifier(sender notify.Sender, from string, to []string) Option {
	return func(svc *Service) {
		svc.sender = sender
		svc.from = from
		svc.to = to
	}
}

// NewService creates a new intake service. admitter may be nil to skip
// admission checks, which only tests do.
func NewService(store storage.Storage, admitter Admitter, tasks Scheduler, opts ...Option) *Service {
	svc := &Service{
		storage:   store,
		admission: admitter,
		tasks:     tasks,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit runs the full intake pipeline. Nothing is stored and no
// collaborator is called unless admission passes. Follow-up failures never
// change the response.
func (s *Service) Submit(ctx context.Context, req *models.ContactRequest, remoteIP string) (*models.ContactResponse, error) {
	if req == nil {
		return nil, NewInvalidRequestError("request body is required", nil)
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	if s.admission != nil {
		err := s.admission.Admit(ctx, admission.Submission{
			RemoteIP: remoteIP,
			Email:    req.Email,
			Token:    req.Token(),
		})
		if err != nil {
			return nil, admissionError(err)
		}
	}

	lead := models.NewLead(req, remoteIP)
	if err := s.storage.SaveLead(ctx, lead); err != nil {
		return nil, NewInternalError("failed to store lead", err)
	}

	slog.Info("Lead stored", "lead_id", lead.ID)

	s.scheduleFollowUp(lead)

	return models.NewContactResponse(lead), nil
}

func admissionError(err error) *ServiceError {
	var rej *admission.Rejection
	if !errors.As(err, &rej) {
		return NewInternalError("admission check failed", err)
	}
	switch rej.Reason {
	case admission.ReasonRateLimited:
		return NewRateLimitedError(rej.RetryAfter)
	case admission.ReasonCaptchaFailed:
		return NewInvalidCaptchaError()
	default:
		return NewInternalError("unknown admission rejection", err)
	}
}

// scheduleFollowUp scores the lead, then mirrors it and emails the owner.
// A copy of the lead is handed to the task so later mutation by the caller
// cannot race with it.
func (s *Service) scheduleFollowUp(stored *models.Lead) {
	if s.tasks == nil || (s.scorer == nil && s.mirror == nil && s.sender == nil) {
		return
	}
	lead := *stored

	err := s.tasks.Go(TaskFollowUp, func(ctx context.Context) error {
		return s.followUp(ctx, &lead)
	})
	if err != nil {
		slog.Warn("Lead follow-up not scheduled", "lead_id", lead.ID, "error", err)
	}
}

func (s *Service) followUp(ctx context.Context, lead *models.Lead) error {
	var errs []error

	var score *models.LeadScore
	if s.scorer != nil {
		err := s.tasks.Call(ctx, CollaboratorScoring, func(ctx context.Context) error {
			var err error
			score, err = s.scorer.Score(ctx, lead)
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("score lead: %w", err))
			score = nil
		} else {
			slog.Info("Lead scored", "lead_id", lead.ID, "score", score.Score)
		}
	}

	if s.mirror != nil {
		err := s.tasks.Call(ctx, CollaboratorMirror, func(ctx context.Context) error {
			page, err := s.mirror.CreateLead(ctx, lead, score)
			if err == nil {
				slog.Info("Lead mirrored", "lead_id", lead.ID, "page_id", page.ID)
			}
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("mirror lead: %w", err))
		}
	}

	if s.sender != nil {
		msg, err := notify.LeadMessage(s.from, s.to, lead, score)
		if err == nil {
			err = s.tasks.Call(ctx, CollaboratorEmail, func(ctx context.Context) error {
				return s.sender.Send(ctx, msg)
			})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Chat echoes the message back.
func (s *Service) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if req == nil {
		return nil, NewInvalidRequestError("request body is required", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}
	return &models.ChatResponse{
		Reply: "pong",
		Echo:  models.ChatEcho{Message: req.Message},
	}, nil
}

// ListLeads returns a page of leads with the total count.
func (s *Service) ListLeads(ctx context.Context, req *models.ListLeadsRequest) (*models.LeadListResponse, error) {
	if req == nil {
		req = &models.ListLeadsRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}
	req.Normalize()

	total, err := s.storage.CountLeads(ctx)
	if err != nil {
		return nil, NewInternalError("failed to count leads", err)
	}

	leads, err := s.storage.ListLeads(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, NewInternalError("failed to list leads", err)
	}

	return models.NewLeadListResponse(leads, total, req.Limit, req.Offset), nil
}

func (s *Service) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	if id <= 0 {
		return nil, NewValidationError("lead id must be positive", nil)
	}

	lead, err := s.storage.GetLead(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("lead %d not found", id))
		}
		return nil, NewInternalError("failed to get lead", err)
	}
	return lead, nil
}
