package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/observability"
)

// EmotionSource selects the emotion label of every diary row a user wrote
// within a period
type EmotionSource interface {
	SelectEmotions(ctx context.Context, userID string, period model.Period) ([]string, error)
}

// EmotionAggregator builds monthly emotion summaries
type EmotionAggregator struct {
	source  EmotionSource
	metrics *observability.Metrics
}

// EmotionAggregatorConfig holds configuration for the aggregator
type EmotionAggregatorConfig struct {
	Source  EmotionSource
	Metrics *observability.Metrics // optional
}

// NewEmotionAggregator creates a new emotion aggregator
func NewEmotionAggregator(cfg EmotionAggregatorConfig) *EmotionAggregator {
	return &EmotionAggregator{source: cfg.Source, metrics: cfg.Metrics}
}

// Aggregate counts the user's entries per emotion for the period.
// A failed query yields ErrTallyUnavailable, never an all-zero tally.
func (a *EmotionAggregator) Aggregate(ctx context.Context, userID string, period model.Period) (*model.EmotionTally, error) {
	ctx, span := tracer.Start(ctx, "emotion.aggregate")
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("period", period.String()),
	)

	emotions, err := a.source.SelectEmotions(ctx, userID, period)
	if err != nil {
		slog.ErrorContext(ctx, "failed to select diary emotions",
			slog.String("user_id", userID),
			slog.String("period", period.String()),
			slog.String("error", err.Error()))
		a.metrics.RecordAggregation("unavailable")
		err = fmt.Errorf("%w: %v", ErrTallyUnavailable, err)
		endSpan(span, err)
		return nil, err
	}

	tally := model.TallyEmotions(emotions)
	span.SetAttributes(
		attribute.Int("diary.rows", len(emotions)),
		attribute.Int("diary.counted", tally.Total()),
	)
	a.metrics.RecordAggregation("ok")
	endSpan(span, nil)
	return &tally, nil
}
