package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"intake/internal/intake"
	"intake/internal/models"
	"intake/internal/ratelimit"
	"intake/internal/storage"
	"intake/internal/version"
)

// Handlers contains HTTP handlers for the intake API
type Handlers struct {
	service      intake.ServiceInterface
	storage      storage.Storage
	environment  string
	version      version.Info
	maxBodyBytes int64
	components   map[string]string
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handlers)

func WithEnvironment(env string) HandlerOption {
	return func(h *Handlers) { h.environment = env }
}

func WithVersion(v version.Info) HandlerOption {
	return func(h *Handlers) { h.version = v }
}

// WithMaxBodyBytes caps request bodies; larger bodies get 413.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) { h.maxBodyBytes = n }
}

// WithComponent reports a collaborator as enabled or disabled in /health.
func WithComponent(name string, enabled bool) HandlerOption {
	return func(h *Handlers) {
		status := models.StatusDisabled
		if enabled {
			status = models.StatusHealthy
		}
		h.components[name] = status
	}
}

// NewHandlers creates a new handlers instance. store is used for the health
// check only and may be nil.
func NewHandlers(service intake.ServiceInterface, store storage.Storage, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		service:      service,
		storage:      store,
		environment:  "development",
		maxBodyBytes: 64 << 10,
		components:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubmitContact handles contact form submissions
// POST /api/contact
func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if !h.decodeContact(w, r, &req) {
		return
	}

	response, err := h.service.Submit(r.Context(), &req, clientIP(r))
	if err != nil {
		h.writeServiceErrorResponse(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// decodeContact accepts JSON and plain HTML form posts.
func (h *Handlers) decodeContact(w http.ResponseWriter, r *http.Request, req *models.ContactRequest) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(h.maxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			h.writeDecodeError(w, r, err)
			return false
		}
		req.Name = r.PostFormValue("name")
		req.Email = r.PostFormValue("email")
		req.Message = r.PostFormValue("message")
		req.CaptchaToken = r.PostFormValue("captcha_token")
		req.TurnstileResponse = r.PostFormValue("cf-turnstile-response")
		req.RecaptchaResponse = r.PostFormValue("g-recaptcha-response")
		return true
	}

	return h.decodeJSON(w, r, req)
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeDecodeError(w, r, err)
		return false
	}
	return true
}

func (h *Handlers) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeErrorResponse(w, r, http.StatusRequestEntityTooLarge, models.ErrorCodeBadRequest, "Request body too large")
		return
	}
	h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
}

// Chat handles the echo endpoint
// POST /api/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req models.ChatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	response, err := h.service.Chat(r.Context(), &req)
	if err != nil {
		h.writeServiceErrorResponse(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// ListLeads handles lead listing requests
// GET /api/leads?limit=&offset=
// Requires the admin token
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	req := &models.ListLeadsRequest{}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "offset must be an integer")
			return
		}
		req.Offset = offset
	}

	response, err := h.service.ListLeads(r.Context(), req)
	if err != nil {
		h.writeServiceErrorResponse(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// GetLead handles single lead requests
// GET /api/leads/{id}
// Requires the admin token
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "lead id must be an integer")
		return
	}

	lead, err := h.service.GetLead(r.Context(), id)
	if err != nil {
		h.writeServiceErrorResponse(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, lead)
}

// HealthCheck handles health check requests
// GET /health, GET /api/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusOK)
	response.Env = h.environment
	response.Version = h.version.Version
	if uptime := h.version.Uptime(); uptime > 0 {
		response.Uptime = uptime.String()
	}

	status := http.StatusOK
	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			slog.Error("Health check storage ping failed", "error", err)
			response.Status = models.StatusUnhealthy
			response.AddComponent("storage", models.StatusUnhealthy, "Storage is unreachable")
			status = http.StatusServiceUnavailable
		} else {
			response.AddComponent("storage", models.StatusHealthy, "")
		}
	}
	for name, componentStatus := range h.components {
		response.AddComponent(name, componentStatus, "")
	}

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written, so only log.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	writeError(w, r, statusCode, errorCode, message)
}

// writeServiceErrorResponse maps service errors to responses. Wrapped causes
// are logged but never sent to the client.
func (h *Handlers) writeServiceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *intake.ServiceError
	if !errors.As(err, &svcErr) {
		slog.Error("Unhandled service error", "error", err, "request_id", RequestID(r.Context()))
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
		return
	}

	if svcErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"code", svcErr.Code,
			"error", err,
			"request_id", RequestID(r.Context()),
		)
	}

	if svcErr.StatusCode == http.StatusTooManyRequests {
		ratelimit.WriteRejection(w, svcErr.RetryAfter, RequestID(r.Context()))
		return
	}

	errorResp := models.NewErrorResponse(svcErr.Message, svcErr.Code)
	errorResp.RequestID = RequestID(r.Context())
	errorResp.Timestamp = time.Now().UTC()
	h.writeJSONResponse(w, svcErr.StatusCode, errorResp)
}
