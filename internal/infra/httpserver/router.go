package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appadvice "github.com/KAMLESH7939/backend-inclusight/internal/application/advice"
	appanalyses "github.com/KAMLESH7939/backend-inclusight/internal/application/analyses"
	appusers "github.com/KAMLESH7939/backend-inclusight/internal/application/users"
	"github.com/KAMLESH7939/backend-inclusight/internal/domain/advice"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
	"github.com/KAMLESH7939/backend-inclusight/internal/domain/users"
	"github.com/KAMLESH7939/backend-inclusight/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Options configures the HTTP surface.
type Options struct {
	Analyses *appanalyses.Service
	Users    *appusers.Service
	Advice   *appadvice.Service // optional
	Checks   map[string]middleware.HealthChecker
	Logger   *slog.Logger

	AllowedOrigins      []string
	TrustProxy          bool
	AllowPrivateTargets bool
	RateLimitCapacity   int
	RateLimitPerMinute  float64
}

type Router struct {
	analyses     *appanalyses.Service
	users        *appusers.Service
	advice       *appadvice.Service
	logger       *slog.Logger
	allowPrivate bool
}

func NewRouter(opt Options) http.Handler {
	r := &Router{
		analyses:     opt.Analyses,
		users:        opt.Users,
		advice:       opt.Advice,
		logger:       opt.Logger,
		allowPrivate: opt.AllowPrivateTargets,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	if opt.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(r.logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opt.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(opt.Checks))
	mux.Get("/readyz", middleware.ReadinessHandler(opt.Checks))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	capacity, perMinute := opt.RateLimitCapacity, opt.RateLimitPerMinute
	if capacity <= 0 {
		capacity = 5
	}
	if perMinute <= 0 {
		perMinute = 10
	}
	mux.Route("/api/analyze", func(rt chi.Router) {
		rt.With(middleware.RateLimitMiddleware(capacity, perMinute)).Post("/", r.wrap(r.handleAnalyze))
		rt.Get("/", r.wrap(r.handleLatest))
		rt.Get("/failures", r.wrap(r.handleFailures))
		rt.Get("/download/{id}", r.wrap(r.handleDownload))
		rt.Get("/{id}", r.wrap(r.handleGet))
		if r.advice != nil {
			rt.Post("/{id}/advice", r.wrap(r.handleAdvice))
		}
	})
	mux.Post("/api/user", r.wrap(r.handleSaveUser))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, body := translate(err)
		if status >= 500 {
			r.logger.Error("request failed", "path", req.URL.Path, "kind", body.Kind, "error", err)
		}
		writeJSON(w, status, body)
	}
}

// translate maps an error to its HTTP status and body.
func translate(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	switch {
	case errors.Is(err, users.ErrInvalidUser):
		body.Message = "Name and email are required"
		return http.StatusBadRequest, body
	case errors.Is(err, advice.ErrQuotaExceeded):
		body.Message = "AI quota exceeded"
		return http.StatusTooManyRequests, body
	}

	kind := domain.KindOf(err)
	body.Kind = string(kind)
	switch kind {
	case domain.KindInvalidInput:
		body.Message = "Invalid input"
		return http.StatusBadRequest, body
	case domain.KindNotFound:
		body.Message = "Analysis not found"
		return http.StatusNotFound, body
	case domain.KindResourceAcquisition:
		body.Message = "Analysis failed"
		return http.StatusServiceUnavailable, body
	case domain.KindNavigationTimeout:
		body.Message = "Analysis failed"
		return http.StatusGatewayTimeout, body
	case domain.KindEncoding:
		body.Message = "CSV report generation failed"
		return http.StatusInternalServerError, body
	case domain.KindAuditEngine, domain.KindRuleEngine:
		body.Message = "Analysis failed"
		return http.StatusInternalServerError, body
	}
	body.Message = "Internal server error"
	return http.StatusInternalServerError, body
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.E(domain.KindInvalidInput, "decode body", err)
	}
	return nil
}

// POST /api/analyze
// Body: {"url": "https://..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	target := middleware.SanitizeString(body.URL)
	if target == "" {
		return domain.Errorf(domain.KindInvalidInput, "analyze", "URL is required")
	}
	if err := middleware.ValidateURL(target, r.allowPrivate); err != nil {
		return domain.E(domain.KindInvalidInput, "analyze", err)
	}

	middleware.AnalysisStarted()
	res, err := r.analyses.Analyze(req.Context(), target)
	middleware.AnalysisFinished(err != nil)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		appanalyses.AnalyzeResult
	}{Success: true, AnalyzeResult: res})
}

// GET /api/analyze?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analyses.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/analyze/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	a, err := r.analyses.Get(req.Context(), domain.ID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /api/analyze/download/{id}
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.analyses.ExportCSV(req.Context(), domain.ID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	middleware.IncrementExports()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(rep.Body)
	return err
}

// GET /api/analyze/failures?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analyses.RecentFailures(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/analyze/{id}/advice
func (r *Router) handleAdvice(w http.ResponseWriter, req *http.Request) error {
	out, err := r.advice.Advise(req.Context(), domain.ID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write([]byte(strings.TrimSpace(out)))
	return err
}

// POST /api/user
// Body: {"name": "...", "email": "...", "avatar": "..."}
func (r *Router) handleSaveUser(w http.ResponseWriter, req *http.Request) error {
	var cmd appusers.SaveCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	cmd.Name = middleware.SanitizeString(cmd.Name)
	cmd.Email = middleware.SanitizeString(cmd.Email)
	cmd.Avatar = middleware.SanitizeString(cmd.Avatar)

	u, created, err := r.users.Save(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "created": created, "user": u})
}
