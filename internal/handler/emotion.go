package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalgona/diary/internal/model"
)

// Aggregator produces monthly emotion summaries
type Aggregator interface {
	Aggregate(ctx context.Context, userID string, period model.Period) (*model.EmotionTally, error)
}

// EmotionHandler serves the my-page emotion summary
type EmotionHandler struct {
	aggregator Aggregator
	now        func() time.Time
}

// NewEmotionHandler creates a new emotion handler
func NewEmotionHandler(aggregator Aggregator) *EmotionHandler {
	return &EmotionHandler{aggregator: aggregator, now: time.Now}
}

// EmotionSummaryResponse is the monthly summary body
type EmotionSummaryResponse struct {
	Period string             `json:"period"`
	Tally  model.EmotionTally `json:"tally"`
	Total  int                `json:"total"`
}

// Monthly handles GET /v1/mypage/emotions?year=&month=
func (h *EmotionHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	period, problem := parsePeriod(r, h.now())
	if problem != nil {
		WriteError(w, problem)
		return
	}

	tally, err := h.aggregator.Aggregate(r.Context(), userID, period)
	if err != nil {
		// Unavailable is a 503, never a summary of zeros
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, EmotionSummaryResponse{
		Period: period.String(),
		Tally:  *tally,
		Total:  tally.Total(),
	}, map[string]string{
		"diaries": "/v1/diaries?year=" + itoa(period.Year) + "&month=" + itoa(int(period.Month)),
	})
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
