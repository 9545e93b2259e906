package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dalgona/diary/internal/model"
)

// DiaryRepository defines the interface for diary storage
type DiaryRepository interface {
	Create(ctx context.Context, diary *model.Diary) error
	GetByID(ctx context.Context, id string) (*model.Diary, error)
	Update(ctx context.Context, id string, req *model.UpdateDiaryRequest) (*model.Diary, error)
	Delete(ctx context.Context, id string) error
	ListByPeriod(ctx context.Context, userID string, period model.Period) ([]*model.Diary, error)
}

// DiaryService handles diary entries. Every operation is scoped to the
// entry's owner; entries of other users behave as if they do not exist.
type DiaryService struct {
	diaryRepo DiaryRepository
}

// DiaryServiceConfig holds configuration for the diary service
type DiaryServiceConfig struct {
	DiaryRepo DiaryRepository
}

// NewDiaryService creates a new diary service
func NewDiaryService(cfg DiaryServiceConfig) *DiaryService {
	return &DiaryService{diaryRepo: cfg.DiaryRepo}
}

// Create writes a new entry for the user
func (s *DiaryService) Create(ctx context.Context, userID string, req *model.CreateDiaryRequest) (*model.Diary, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	date, _ := model.ParseDiaryDate(req.Date)
	diary := &model.Diary{
		UserID:   userID,
		Title:    req.Title,
		Date:     date,
		Emotion:  model.Emotion(req.Emotion),
		Type:     req.Type,
		Contents: req.Contents,
		Draw:     req.Draw,
	}

	if err := s.diaryRepo.Create(ctx, diary); err != nil {
		return nil, fmt.Errorf("failed to create diary: %w", err)
	}

	slog.InfoContext(ctx, "diary created",
		slog.String("user_id", userID),
		slog.String("diary_id", diary.ID))
	return diary, nil
}

// Get loads one entry for editing
func (s *DiaryService) Get(ctx context.Context, userID, id string) (*model.Diary, error) {
	diary, err := s.diaryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get diary: %w", err)
	}
	if diary == nil || !diary.IsOwnedBy(userID) {
		return nil, ErrDiaryNotFound
	}
	return diary, nil
}

// Update applies a partial update to an owned entry
func (s *DiaryService) Update(ctx context.Context, userID, id string, req *model.UpdateDiaryRequest) (*model.Diary, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyDiaryUpdate
	}
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	diary, err := s.diaryRepo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update diary: %w", err)
	}
	if diary == nil {
		return nil, ErrDiaryNotFound
	}
	return diary, nil
}

// Delete removes an owned entry
func (s *DiaryService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.diaryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete diary: %w", err)
	}
	return nil
}

// ListMonth returns the user's entries in the period ordered by date
func (s *DiaryService) ListMonth(ctx context.Context, userID string, period model.Period) ([]*model.Diary, error) {
	diaries, err := s.diaryRepo.ListByPeriod(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list diaries: %w", err)
	}
	if diaries == nil {
		diaries = []*model.Diary{}
	}
	return diaries, nil
}
