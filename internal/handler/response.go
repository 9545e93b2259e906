package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dalgona/diary/internal/middleware"
	"github.com/dalgona/diary/internal/model"
)

// DataResponse wraps a successful response with optional HATEOAS links
type DataResponse struct {
	Data  interface{}       `json:"data"`
	Links map[string]string `json:"_links,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteData writes a successful data response
func WriteData(w http.ResponseWriter, status int, data interface{}, links map[string]string) {
	WriteJSON(w, status, DataResponse{Data: data, Links: links})
}

// WriteError writes an error response using RFC 9457 Problem Details
func WriteError(w http.ResponseWriter, err *model.ProblemDetails) {
	err.WriteJSON(w)
}

// DecodeJSON decodes a JSON request body into the given struct
func DecodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// requireUser returns the authenticated account ID, writing a 401 if there is none
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return "", false
	}
	return userID, true
}

// parsePeriod reads ?year=&month=, defaulting both to the current UTC month
func parsePeriod(r *http.Request, now time.Time) (model.Period, *model.ProblemDetails) {
	current := model.PeriodOf(now)
	q := r.URL.Query()

	year, month := current.Year, int(current.Month)
	var errs []model.FieldError

	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "year", Message: "year must be a number"})
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "month", Message: "month must be a number"})
		}
		month = n
	}
	if len(errs) > 0 {
		return model.Period{}, model.NewValidationError(errs)
	}

	period, err := model.NewPeriod(year, month)
	if err != nil {
		return model.Period{}, model.NewValidationError([]model.FieldError{{Field: "period", Message: err.Error()}})
	}
	return period, nil
}
