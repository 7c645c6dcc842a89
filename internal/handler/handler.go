// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/paiban/planning/internal/constraints"
	"github.com/paiban/planning/internal/metrics"
	"github.com/paiban/planning/internal/middleware"
	"github.com/paiban/planning/internal/service"
)

// HealthChecker 依赖的健康检查
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options 处理器可选依赖
type Options struct {
	Version     string
	Database    HealthChecker // 可以为 nil
	APIKeys     []string
	RateLimiter *middleware.RateLimiter
}

// Handler HTTP处理器
type Handler struct {
	validate   *validator.Validate
	translator ut.Translator
	service    *service.PlanningService
	opts       Options

	Mux *chi.Mux
}

// New 创建处理器并注册中文校验提示
func New(svc *service.PlanningService, opts Options) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	h := &Handler{
		validate:   validate,
		translator: trans,
		service:    svc,
		opts:       opts,
		Mux:        chi.NewRouter(),
	}
	h.registerRoutes()
	return h, nil
}

func (h *Handler) registerRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(middleware.Logging)
	h.Mux.Use(middleware.Recovery)
	h.Mux.Use(middleware.SecurityHeaders)

	h.Mux.Get("/health", h.Health)
	h.Mux.Handle("/metrics", metrics.Handler())

	h.Mux.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(h.opts.APIKeys))
		r.Use(middleware.RateLimit(h.opts.RateLimiter))

		r.Route("/planning", func(r chi.Router) {
			r.Post("/solve", h.SolveInput)
			r.Post("/schedules", h.SolveRange)
		})
		r.Get("/constraints", h.Constraints)
		r.Post("/daycombos", h.AnalyzeSegments)
		r.Route("/units/{unitID}", func(r chi.Router) {
			r.Get("/daycombos", h.UnitDayCombos)
			r.Post("/dayplans/validate", h.ValidateDayPlans)
		})
	})
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"service": "paiban-planning",
		"version": h.opts.Version,
	}
	status := http.StatusOK

	if h.opts.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Database.Health(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}

	respondJSON(w, status, resp)
}

// Constraints 返回约束库，可按 scope 与 type 筛选
func (h *Handler) Constraints(w http.ResponseWriter, r *http.Request) {
	library := h.service.Constraints()
	if scope := r.URL.Query().Get("scope"); scope != "" {
		library = constraints.ByScope(library, scope)
	}
	if t := r.URL.Query().Get("type"); t != "" {
		library = constraints.ByType(library, t)
	}
	if library == nil {
		library = []constraints.ConstraintDefinition{}
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: library})
}
