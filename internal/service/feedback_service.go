package service

import (
	"context"
	"strings"

	"github.com/iliyamo/studyroom-seat-reservation/internal/model"
)

// MaxFeedbackLength bounds the content of one message.
const MaxFeedbackLength = 2000

type FeedbackService struct {
	Deps
}

func NewFeedbackService(d Deps) *FeedbackService { return &FeedbackService{Deps: d} }

func (s *FeedbackService) Submit(ctx context.Context, userID, content, kind string) (*model.Feedback, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid(CodeInvalidRequest, "content is required")
	}
	if len(content) > MaxFeedbackLength {
		return nil, invalid(CodeInvalidRequest, "content must be at most %d characters", MaxFeedbackLength)
	}
	if kind == "" {
		kind = "GENERAL"
	}
	f := &model.Feedback{
		UserID:    userID,
		Content:   content,
		Type:      strings.ToUpper(kind),
		Status:    model.FeedbackPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Stores.Feedback.Create(ctx, f); err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (s *FeedbackService) Get(ctx context.Context, id uint64, caller Caller) (*model.Feedback, error) {
	f, err := s.Stores.Feedback.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("feedback", err)
	}
	if !caller.canAccess(f.UserID) {
		return nil, ErrForbidden
	}
	return f, nil
}

func (s *FeedbackService) Mine(ctx context.Context, userID string) ([]model.Feedback, error) {
	return s.Stores.Feedback.ListByUser(ctx, userID)
}

func (s *FeedbackService) List(ctx context.Context, status model.FeedbackStatus) ([]model.Feedback, error) {
	return s.Stores.Feedback.List(ctx, status)
}

// Respond answers a PENDING message and marks it PROCESSED.
func (s *FeedbackService) Respond(ctx context.Context, id uint64, adminID, response string) (*model.Feedback, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, invalid(CodeInvalidRequest, "response is required")
	}
	f, err := s.Stores.Feedback.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("feedback", err)
	}
	if f.Status == model.FeedbackProcessed {
		return nil, conflict(CodeAlreadyProcessed, "feedback %d was already answered", id)
	}
	if err := s.Stores.Feedback.Process(ctx, id, response, adminID, s.now()); err != nil {
		return nil, notFound("feedback", err)
	}
	return s.Stores.Feedback.GetByID(ctx, id)
}
