package main

import (
	"net/http"

	"github.com/dalgona/diary/internal/handler"
	"github.com/dalgona/diary/internal/middleware"
	"github.com/dalgona/diary/internal/observability"
)

// routes is everything the mux dispatches to
type routes struct {
	health   *handler.HealthHandler
	auth     *handler.AuthHandler
	diaries  *handler.DiaryHandler
	emotions *handler.EmotionHandler

	tokens middleware.AuthService

	// metricsPath is only mounted when metrics is set
	metrics     *observability.Metrics
	metricsPath string
}

func newRouter(rt routes) *http.ServeMux {
	mux := http.NewServeMux()
	authMw := middleware.Auth(rt.tokens)

	mux.HandleFunc("GET /health", rt.health.Health)
	if rt.metrics != nil && rt.metricsPath != "" {
		mux.Handle("GET "+rt.metricsPath, rt.metrics.Handler())
	}

	// Auth
	mux.HandleFunc("POST /v1/auth/sign-up", rt.auth.SignUp)
	mux.HandleFunc("POST /v1/auth/sign-in", rt.auth.SignIn)
	mux.HandleFunc("POST /v1/auth/refresh", rt.auth.Refresh)
	mux.Handle("POST /v1/auth/sign-out", authMw(http.HandlerFunc(rt.auth.SignOut)))
	mux.Handle("GET /v1/auth/me", authMw(http.HandlerFunc(rt.auth.Me)))
	mux.Handle("DELETE /v1/auth/me", authMw(http.HandlerFunc(rt.auth.Withdraw)))

	// Diaries
	mux.Handle("POST /v1/diaries", authMw(http.HandlerFunc(rt.diaries.Create)))
	mux.Handle("GET /v1/diaries", authMw(http.HandlerFunc(rt.diaries.List)))
	mux.Handle("GET /v1/diaries/{diaryId}", authMw(http.HandlerFunc(rt.diaries.Get)))
	mux.Handle("PATCH /v1/diaries/{diaryId}", authMw(http.HandlerFunc(rt.diaries.Update)))
	mux.Handle("DELETE /v1/diaries/{diaryId}", authMw(http.HandlerFunc(rt.diaries.Delete)))

	// My page
	mux.Handle("GET /v1/mypage/emotions", authMw(http.HandlerFunc(rt.emotions.Monthly)))

	return mux
}
