package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dalgona/diary/internal/model"
)

func TestAggregate_CountsPerEmotion(t *testing.T) {
	t.Parallel()

	source := &mockEmotionSource{emotions: []string{"기쁨", "기쁨", "좋아요", "힘들어요"}}
	agg := NewEmotionAggregator(EmotionAggregatorConfig{Source: source})
	period := model.Period{Year: 2024, Month: 10}

	tally, err := agg.Aggregate(context.Background(), "account:abc", period)
	require.NoError(t, err)

	assert.Equal(t, model.EmotionTally{Happy: 2, Good: 1, Soso: 0, Bad: 0, Tired: 1}, *tally)
	assert.Equal(t, "account:abc", source.gotUser)
	assert.Equal(t, period, source.gotRange)
}

func TestAggregate_NoRows_ZeroTally(t *testing.T) {
	t.Parallel()

	agg := NewEmotionAggregator(EmotionAggregatorConfig{Source: &mockEmotionSource{}})

	tally, err := agg.Aggregate(context.Background(), "account:abc", model.Period{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.Equal(t, model.EmotionTally{}, *tally)
}

func TestAggregate_UnknownLabelsExcluded(t *testing.T) {
	t.Parallel()

	source := &mockEmotionSource{emotions: []string{"기쁨 ", "happy", "", "별로에요"}}
	agg := NewEmotionAggregator(EmotionAggregatorConfig{Source: source})

	tally, err := agg.Aggregate(context.Background(), "account:abc", model.Period{Year: 2024, Month: 10})
	require.NoError(t, err)
	assert.Equal(t, model.EmotionTally{Bad: 1}, *tally)
}

func TestAggregate_QueryFailure_Unavailable(t *testing.T) {
	t.Parallel()

	queryErr := errors.New("query timeout")
	agg := NewEmotionAggregator(EmotionAggregatorConfig{Source: &mockEmotionSource{err: queryErr}})

	tally, err := agg.Aggregate(context.Background(), "account:abc", model.Period{Year: 2024, Month: 10})
	assert.Nil(t, tally, "a failed query must not produce a zero tally")
	assert.ErrorIs(t, err, ErrTallyUnavailable)
}

func TestAggregate_TotalNeverExceedsRows(t *testing.T) {
	labels := []string{"기쁨", "좋아요", "그냥 그래요", "별로에요", "힘들어요", "happy", "기쁨!", ""}

	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.SliceOf(rapid.SampledFrom(labels)).Draw(t, "rows")
		agg := NewEmotionAggregator(EmotionAggregatorConfig{Source: &mockEmotionSource{emotions: rows}})

		tally, err := agg.Aggregate(context.Background(), "account:abc", model.Period{Year: 2024, Month: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tally.Total() > len(rows) {
			t.Fatalf("tally total %d exceeds %d rows", tally.Total(), len(rows))
		}
	})
}
