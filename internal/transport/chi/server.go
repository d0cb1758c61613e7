// Package chi is the HTTP transport: hand-written handlers on a chi
// router, one thin layer between JSON and the use cases.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/firestore"
	logpkg "github.com/kspirits/hub/internal/logger"
	arrivalsuc "github.com/kspirits/hub/internal/usecase/arrivals"
	cataloguc "github.com/kspirits/hub/internal/usecase/catalog"
	enrichuc "github.com/kspirits/hub/internal/usecase/enrich"
	feeduc "github.com/kspirits/hub/internal/usecase/feed"
	trendinguc "github.com/kspirits/hub/internal/usecase/trending"
	"github.com/kspirits/hub/internal/version"
)

const maxDeleteBatch = 50

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Pinger checks a dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the catalog over HTTP.
type Server struct {
	catalog       *cataloguc.Service
	trending      *trendinguc.Service
	feed          *feeduc.Service
	arrivals      *arrivalsuc.Service
	enrich        *enrichuc.Service
	cache         Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. cache may be nil when the
// enrichment cache is disabled.
func NewServer(
	catalog *cataloguc.Service,
	trending *trendinguc.Service,
	feed *feeduc.Service,
	arrivals *arrivalsuc.Service,
	enrich *enrichuc.Service,
	cache Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		catalog:  catalog,
		trending: trending,
		feed:     feed,
		arrivals: arrivals,
		enrich:   enrich,
		cache:    cache,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSpiritNotFound, http.StatusNotFound, codeSpiritNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidAction, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidReview, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEnrichmentUnavailable, http.StatusBadGateway, codeEnrichmentUnavailable),
	}
	return s
}

// Mount registers all routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/healthz", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/spirits", s.listSpirits)
		r.Post("/spirits", s.createSpirit)
		r.Delete("/spirits", s.deleteSpirits)
		r.Get("/spirits/{id}", s.getSpirit)
		r.Patch("/spirits/{id}", s.patchSpirit)
		r.Post("/spirits/{id}/enrich", s.enrichSpirit)

		r.Get("/trending", s.listTrending)
		r.Post("/trending/log", s.logTrendingEvent)

		r.Get("/new-arrivals", s.listArrivals)

		r.Get("/reviews/recent", s.listRecentReviews)
		r.Post("/reviews", s.createReview)
		r.Delete("/reviews/{id}", s.deleteReview)
	})
}

// listSpirits handles GET /v1/spirits.
func (s *Server) listSpirits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.SpiritFilter{
		Status:       domain.Status(q.Get("status")),
		Category:     q.Get("category"),
		Subcategory:  q.Get("subcategory"),
		Country:      q.Get("country"),
		Distillery:   q.Get("distillery"),
		SearchTerm:   q.Get("q"),
		MissingImage: q.Get("missingImage") == "true",
	}
	page := domain.Pagination{
		Page:     queryInt(q.Get("page")),
		PageSize: queryInt(q.Get("pageSize")),
	}

	result, err := s.catalog.Browse(r.Context(), filter, page)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]spiritResponse, len(result.Items))
	for i, sp := range result.Items {
		items[i] = spiritToDTO(sp)
	}
	writeJSON(w, http.StatusOK, spiritPageResponse{
		Items:             items,
		Page:              result.Page,
		PageSize:          result.PageSize,
		Total:             result.Total,
		TotalIsLowerBound: result.TotalIsLowerBound,
	})
}

// getSpirit handles GET /v1/spirits/{id}.
func (s *Server) getSpirit(w http.ResponseWriter, r *http.Request) {
	sp, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spiritToDTO(sp))
}

// createSpirit handles POST /v1/spirits.
func (s *Server) createSpirit(w http.ResponseWriter, r *http.Request) {
	var req createSpiritRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Spirit name is required")
		return
	}

	created, err := s.catalog.Create(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/spirits/"+created.ID)
	writeJSON(w, http.StatusCreated, spiritToDTO(created))
}

// patchSpirit handles PATCH /v1/spirits/{id}. The body is a free-form
// field map; absent keys stay untouched at the store.
func (s *Server) patchSpirit(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "No fields to update")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.catalog.Update(r.Context(), id, fields); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sp, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spiritToDTO(sp))
}

// deleteSpirits handles DELETE /v1/spirits.
func (s *Server) deleteSpirits(w http.ResponseWriter, r *http.Request) {
	var req deleteSpiritsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 || len(req.IDs) > maxDeleteBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"ids count must be between 1 and "+strconv.Itoa(maxDeleteBatch))
		return
	}

	failed := s.catalog.Delete(r.Context(), req.IDs)

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, deleteSpiritsResponse{
		Requested: len(req.IDs),
		Failed:    failed,
	})
}

// enrichSpirit handles POST /v1/spirits/{id}/enrich.
func (s *Server) enrichSpirit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fields, err := s.enrich.Enrich(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrichToDTO(id, fields))
}

// listTrending handles GET /v1/trending.
func (s *Server) listTrending(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r.URL.Query().Get("limit"))
	if n <= 0 {
		n = 5
	}

	spirits, items, err := s.trending.TopSpirits(r.Context(), n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	byID := make(map[string]domain.Spirit, len(spirits))
	for _, sp := range spirits {
		byID[sp.ID] = sp
	}

	out := make([]trendingItemResponse, 0, len(items))
	for _, item := range items {
		resp := trendingItemResponse{
			SpiritID:  item.SpiritID,
			Score:     item.Score,
			Views:     item.Stats.Views,
			Wishlists: item.Stats.Wishlists,
			Cabinets:  item.Stats.Cabinets,
			Reviews:   item.Stats.Reviews,
		}
		if sp, ok := byID[item.SpiritID]; ok {
			dto := spiritToDTO(sp)
			resp.Spirit = &dto
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// logTrendingEvent handles POST /v1/trending/log.
func (s *Server) logTrendingEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.trending.Log(r.Context(), req.SpiritID, domain.Action(req.Action)); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// listArrivals handles GET /v1/new-arrivals.
func (s *Server) listArrivals(w http.ResponseWriter, r *http.Request) {
	cards, err := s.arrivals.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]arrivalCardResponse, len(cards))
	for i, c := range cards {
		out[i] = arrivalCardToDTO(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// listRecentReviews handles GET /v1/reviews/recent.
func (s *Server) listRecentReviews(w http.ResponseWriter, r *http.Request) {
	entries, err := s.feed.Recent(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]recentEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = recentEntryToDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// createReview handles POST /v1/reviews.
func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := s.feed.CreateReview(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewToDTO(created))
}

// deleteReview handles DELETE /v1/reviews/{id}. The body carries the
// spirit and author so the feed can drop the matching slot without a
// read of the deleted document.
func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	var req deleteReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rev := domain.Review{
		ID:       chi.URLParam(r, "id"),
		SpiritID: req.SpiritID,
		UserID:   req.UserID,
	}
	if err := s.feed.DeleteReview(r.Context(), rev); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthCheck handles GET /healthz.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"
	httpStatus := http.StatusOK

	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			checks["cache"] = "down"
			status = "degraded"
		} else {
			checks["cache"] = "ok"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  status,
		"version": version.Version,
		"checks":  checks,
	})
}

func queryInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSpiritNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidFilter,
		domain.ErrInvalidAction,
		domain.ErrInvalidReview,
		domain.ErrEnrichmentUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// indexErrorHandler surfaces a missing composite index as an actionable
// 500 carrying the admin console link.
func indexErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var ie *firestore.IndexError
	if !errors.As(err, &ie) {
		return false
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"code":     codeInternalError,
		"message":  "query requires a composite index",
		"adminUrl": ie.AdminURL,
	})
	return true
}

// handleDomainError maps a use-case error to a response. Sentinel
// matches are routine (missing spirits, bad filters) and log at Debug
// on the request-scoped logger; missing-index and unmapped errors log
// once at Error.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if indexErrorHandler(w, err, "") {
		s.logger.Error("query requires a composite index", zap.Error(err))
		return
	}

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			logpkg.FromContext(r.Context()).Debug("request failed with domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
