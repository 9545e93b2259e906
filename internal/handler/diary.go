package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalgona/diary/internal/model"
)

// DiaryManager is the diary service as seen by the HTTP layer
type DiaryManager interface {
	Create(ctx context.Context, userID string, req *model.CreateDiaryRequest) (*model.Diary, error)
	Get(ctx context.Context, userID, id string) (*model.Diary, error)
	Update(ctx context.Context, userID, id string, req *model.UpdateDiaryRequest) (*model.Diary, error)
	Delete(ctx context.Context, userID, id string) error
	ListMonth(ctx context.Context, userID string, period model.Period) ([]*model.Diary, error)
}

// DiaryHandler handles diary endpoints
type DiaryHandler struct {
	diaries DiaryManager
	now     func() time.Time
}

// NewDiaryHandler creates a new diary handler
func NewDiaryHandler(diaries DiaryManager) *DiaryHandler {
	return &DiaryHandler{diaries: diaries, now: time.Now}
}

// DiaryResponse represents a diary entry in API responses
type DiaryResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Emotion   string  `json:"emotion"`
	Type      string  `json:"type"`
	Contents  string  `json:"contents"`
	Draw      *string `json:"draw,omitempty"`
	CreatedOn string  `json:"created_on"`
	UpdatedOn string  `json:"updated_on"`
}

// Create handles POST /v1/diaries
func (h *DiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateDiaryRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	diary, err := h.diaries.Create(r.Context(), userID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create diary"))
		return
	}

	WriteData(w, http.StatusCreated, toDiaryResponse(diary), diaryLinks(diary))
}

// List handles GET /v1/diaries?year=&month=
func (h *DiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	period, problem := parsePeriod(r, h.now())
	if problem != nil {
		WriteError(w, problem)
		return
	}

	diaries, err := h.diaries.ListMonth(r.Context(), userID, period)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list diaries"))
		return
	}

	data := make([]DiaryResponse, 0, len(diaries))
	for _, d := range diaries {
		data = append(data, toDiaryResponse(d))
	}

	WriteData(w, http.StatusOK, data, map[string]string{
		"self":     "/v1/diaries?year=" + itoa(period.Year) + "&month=" + itoa(int(period.Month)),
		"emotions": "/v1/mypage/emotions?year=" + itoa(period.Year) + "&month=" + itoa(int(period.Month)),
	})
}

// Get handles GET /v1/diaries/{diaryId}
func (h *DiaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := diaryIDFromPath(w, r)
	if !ok {
		return
	}

	diary, err := h.diaries.Get(r.Context(), userID, id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, toDiaryResponse(diary), diaryLinks(diary))
}

// Update handles PATCH /v1/diaries/{diaryId}
func (h *DiaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := diaryIDFromPath(w, r)
	if !ok {
		return
	}

	var req model.UpdateDiaryRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	diary, err := h.diaries.Update(r.Context(), userID, id, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update diary"))
		return
	}

	WriteData(w, http.StatusOK, toDiaryResponse(diary), diaryLinks(diary))
}

// Delete handles DELETE /v1/diaries/{diaryId}
func (h *DiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := diaryIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.diaries.Delete(r.Context(), userID, id); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "delete diary"))
		return
	}

	WriteNoContent(w)
}

// diaryIDFromPath accepts both "abc" and "diary:abc" and returns the record ID
func diaryIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.PathValue("diaryId")
	if raw == "" {
		WriteError(w, model.NewBadRequestError("diary id is required"))
		return "", false
	}

	table, key, found := strings.Cut(raw, ":")
	if !found {
		return "diary:" + raw, true
	}
	if table != "diary" || key == "" {
		WriteError(w, model.NewNotFoundError("diary"))
		return "", false
	}
	return raw, true
}

func diaryLinks(d *model.Diary) map[string]string {
	return map[string]string{
		"self":  "/v1/diaries/" + d.ID,
		"month": "/v1/diaries?year=" + itoa(d.Date.Year()) + "&month=" + itoa(int(d.Date.Month())),
	}
}

func toDiaryResponse(d *model.Diary) DiaryResponse {
	return DiaryResponse{
		ID:        d.ID,
		Title:     d.Title,
		Date:      d.Date.Format(model.DiaryDateLayout),
		Emotion:   string(d.Emotion),
		Type:      d.Type,
		Contents:  d.Contents,
		Draw:      d.Draw,
		CreatedOn: d.CreatedOn.Format(time.RFC3339),
		UpdatedOn: d.UpdatedOn.Format(time.RFC3339),
	}
}
