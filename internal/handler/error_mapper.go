package handler

import (
	"errors"
	"log/slog"

	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	// Services report input problems as ready-made problem details
	var problem *model.ProblemDetails
	if errors.As(err, &problem) {
		return problem
	}

	var idErr *service.IdentityError
	if errors.As(err, &idErr) {
		return mapIdentityError(idErr)
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrInvalidCredentials):
		return model.NewLoginFailedError(err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return model.NewUnauthorizedError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrAccountNotFound):
		return model.NewNotFoundError("account")
	case errors.Is(err, service.ErrDiaryNotFound),
		errors.Is(err, database.ErrNotFound):
		return model.NewNotFoundError("diary")

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrEmptyDiaryUpdate):
		return model.NewValidationError([]model.FieldError{{Field: "body", Message: err.Error()}})

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, database.ErrDuplicate):
		return model.NewConflictError("resource already exists")

	// ===== Unavailable → 503 =====
	case errors.Is(err, service.ErrTallyUnavailable):
		return model.NewServiceUnavailableError(service.ErrTallyUnavailable.Error())
	case errors.Is(err, database.ErrConnection):
		return model.NewServiceUnavailableError("database unavailable")

	// ===== Default → 500 =====
	default:
		slog.Error("unmapped service error", slog.String("error", err.Error()))
		return model.NewInternalError("")
	}
}

func mapIdentityError(err *service.IdentityError) *model.ProblemDetails {
	switch err.Kind {
	case service.IdentityDuplicate:
		p := model.NewAlreadyExistsError(err.Message)
		p.BlockingNotice = true
		return p
	case service.IdentityUnavailable:
		return model.NewServiceUnavailableError(err.Message)
	default:
		return model.NewBadRequestError(err.Message)
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == 500 {
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
