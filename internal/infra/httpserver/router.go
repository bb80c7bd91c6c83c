package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/authentiq/internal/application/analysis"
	"github.com/bryanwahyu/authentiq/internal/domain/ai"
	domain "github.com/bryanwahyu/authentiq/internal/domain/analysis"
	"github.com/bryanwahyu/authentiq/internal/domain/analyst"
	"github.com/bryanwahyu/authentiq/internal/middleware"
)

const (
	msgRateLimited = "Rate limit exceeded. Please try again shortly."
	msgNoCredits   = "AI credits exhausted. Please add credits."
	msgUpstream    = "Analysis failed"
	msgUnknown     = "Unknown error occurred"
)

// allowedHeaders are the request headers the browser client and the
// supabase-js SDK send.
var allowedHeaders = []string{
	"Authorization",
	"X-Client-Info",
	"Apikey",
	"Content-Type",
	"X-Supabase-Client-Platform",
	"X-Supabase-Client-Platform-Version",
	"X-Supabase-Client-Runtime",
	"X-Supabase-Client-Runtime-Version",
}

// Options configures the HTTP surface. Zero values turn optional pieces off.
type Options struct {
	Logger         log.Interface
	AllowedOrigins []string
	MaxBodyBytes   int64
	APIKeys        map[string]string
	RateLimiter    *middleware.RateLimiter
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	svc     *appanalysis.Service
	log     log.Interface
	maxBody int64
}

func NewRouter(svc *appanalysis.Service, opt Options) http.Handler {
	r := &Router{svc: svc, log: opt.Logger, maxBody: opt.MaxBodyBytes}
	if r.log == nil {
		r.log = log.Log
	}
	origins := opt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(middleware.RequestLogger(r.log))
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: allowedHeaders,
		ExposedHeaders: []string{"X-Analysis-Id", "Retry-After"},
		MaxAge:         300,
	}))
	mux.Use(answerOptions)
	if len(opt.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(opt.APIKeys))
	}
	if opt.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opt.RateLimiter))
	}

	mux.Get("/health", middleware.HealthHandler(opt.HealthCheckers))
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	for _, media := range []ai.Media{ai.MediaText, ai.MediaImage, ai.MediaAudio} {
		h := r.wrap(r.handleAnalyze(media))
		mux.Post("/v1/analyze/"+string(media), h)
		mux.Post("/functions/v1/analyze-"+string(media), h)
	}

	mux.Get("/v1/analyses", r.wrap(r.handleList))
	mux.Get("/v1/analyses/{id}", r.wrap(r.handleGet))
	mux.Get("/v1/failures", r.wrap(r.handleFailures))

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return mux
}

// answerOptions ends every OPTIONS request the CORS handler let through
// (no Access-Control-Request-Method) with an empty 200, without routing it.
func answerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg := errorResponse(err)
			if status >= http.StatusInternalServerError {
				r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			}
			middleware.WriteError(w, status, msg)
		}
	}
}

// errorResponse maps an error to the status and message sent to the client.
func errorResponse(err error) (int, string) {
	var (
		tooLarge *http.MaxBytesError
		upstream *ai.UpstreamError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, ai.ErrCreditsExhausted):
		return http.StatusPaymentRequired, msgNoCredits
	case errors.As(err, &upstream):
		status := upstream.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, msgUpstream
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, domain.ErrTimeout.Error()
	case errors.Is(err, analyst.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, appanalysis.ErrHistoryDisabled):
		return http.StatusNotImplemented, err.Error()
	}
	if msg := err.Error(); msg != "" {
		return http.StatusInternalServerError, msg
	}
	return http.StatusInternalServerError, msgUnknown
}

type analyzeRequest struct {
	Text      string `json:"text"`
	ImageData string `json:"imageData"`
	AudioData string `json:"audioData"`
	FileName  string `json:"fileName"`
}

// POST /v1/analyze/{text|image|audio}
// POST /functions/v1/analyze-{text|image|audio}
func (r *Router) handleAnalyze(media ai.Media) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var body analyzeRequest
		if err := r.decode(w, req, &body); err != nil {
			return err
		}

		done := middleware.StartAnalysis(string(media))
		var (
			rep appanalysis.Report
			err error
		)
		switch media {
		case ai.MediaText:
			rep, err = r.svc.AnalyzeText(req.Context(), body.Text)
		case ai.MediaImage:
			rep, err = r.svc.AnalyzeImage(req.Context(), body.ImageData)
		case ai.MediaAudio:
			rep, err = r.svc.AnalyzeAudio(req.Context(), body.AudioData, middleware.SanitizeFileName(body.FileName))
		}
		done(err)
		if err != nil {
			return err
		}

		if rep.ID != "" {
			w.Header().Set("X-Analysis-Id", string(rep.ID))
		}
		middleware.WriteJSON(w, http.StatusOK, rep.Result)
		return nil
	}
}

// GET /v1/analyses?media=&page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	media := q.Get("media")
	if err := middleware.ValidateMedia(media); err != nil {
		return &domain.InputError{Msg: err.Error()}
	}
	page := middleware.ValidatePage(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	list, err := r.svc.List(req.Context(), media, page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return &domain.InputError{Msg: err.Error()}
	}
	a, err := r.svc.Get(req.Context(), analyst.AnalysisID(id))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, a)
	return nil
}

// GET /v1/failures?media=&limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	media := q.Get("media")
	if err := middleware.ValidateMedia(media); err != nil {
		return &domain.InputError{Msg: err.Error()}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, err := r.svc.RecentFailures(req.Context(), media, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": items})
	return nil
}

// decode reads a JSON body capped at maxBody bytes.
func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) error {
	if r.maxBody > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxBody)
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &domain.InputError{Msg: "invalid JSON body"}
	}
	return nil
}
