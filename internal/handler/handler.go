// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/auth"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/export"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/payment"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/repository"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/service"
)

// Handler holds all HTTP handlers for the registration API.
type Handler struct {
	catalog  service.Catalog
	regs     *service.RegistrationService
	admin    *service.AdminService
	profiles *service.ProfileService
}

// New constructs a Handler.
func New(
	cat service.Catalog,
	regs *service.RegistrationService,
	admin *service.AdminService,
	profiles *service.ProfileService,
) *Handler {
	return &Handler{catalog: cat, regs: regs, admin: admin, profiles: profiles}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeCodedError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := service.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   "Please complete the highlighted fields.",
			Code:    "validation",
			Details: ve.Fields,
		})
		return
	}
	var failed *payment.FailedError
	switch {
	case errors.As(err, &failed):
		writeCodedError(w, http.StatusPaymentRequired, "payment_failed", failed.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, service.ErrCheckoutNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCheckoutInProgress):
		writeCodedError(w, http.StatusConflict, "in_flight", err.Error())
	case errors.Is(err, payment.ErrDismissed):
		writeCodedError(w, http.StatusConflict, "payment_cancelled", "Payment cancelled")
	case errors.Is(err, payment.ErrUnavailable):
		slog.WarnContext(r.Context(), "payment gateway unavailable", "error", err)
		writeCodedError(w, http.StatusBadGateway, "gateway_unavailable", "Payment gateway failed to load. Please try again.")
	case errors.Is(err, payment.ErrBadSignature), errors.Is(err, service.ErrInvalidCallback):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "registration not found")
	case errors.Is(err, service.ErrODNotEnabled):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeCodedError(w, http.StatusUnauthorized, "sign_in_required", "Please sign in to register")
	}
	return id, ok
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

// ListCatalog handles GET /api/catalog[?category=]
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	entries, err := h.catalog.List(r.Context(), category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if entries == nil {
		entries = []model.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetCatalogEntry handles GET /api/catalog/{category}/{id}
func (h *Handler) GetCatalogEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.catalog.Get(r.Context(), model.Category(chi.URLParam(r, "category")), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Quote handles GET /api/catalog/{category}/{id}/quote?teamCount=n
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("teamCount"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "teamCount must be an integer")
			return
		}
		n = v
	}
	q, err := h.regs.Quote(r.Context(), model.Category(chi.URLParam(r, "category")), chi.URLParam(r, "id"), n)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// ─── Registration ─────────────────────────────────────────────────────────────

func writeSubmission(w http.ResponseWriter, res *model.SubmissionResult) {
	status := http.StatusCreated
	if res.Status == model.StatusPaymentRequired {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// Register handles POST /api/registrations
// Free and simulated payments are recorded immediately; paid entries get
// checkout options for the gateway widget.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req model.RegistrationForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.regs.Begin(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSubmission(w, res)
}

// CompleteCheckout handles POST /api/registrations/checkout/{orderId}
func (h *Handler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var cb model.CheckoutCallback
	if err := decodeJSON(w, r, &cb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := h.regs.Confirm(r.Context(), id, chi.URLParam(r, "orderId"), cb)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSubmission(w, res)
}

// ─── Session and profile ──────────────────────────────────────────────────────

// SignIn handles POST /api/session
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.SignIn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Me handles GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Profile(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MyRegistrations handles GET /api/me/registrations
func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	regs, err := h.profiles.Registrations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ODLetter handles GET /api/me/registrations/{id}/od-letter
func (h *Handler) ODLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pdf, name, err := h.profiles.ODLetter(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, "application/pdf", name, pdf)
}

func writeAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// AdminLogin handles POST /api/admin/login
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req model.AdminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !h.admin.Authenticate(req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// AdminListRegistrations handles GET /api/admin/registrations[?q=]
func (h *Handler) AdminListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.admin.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// AdminStats handles GET /api/admin/stats
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.admin.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// AdminExport handles GET /api/admin/registrations/export
func (h *Handler) AdminExport(w http.ResponseWriter, r *http.Request) {
	out, err := h.admin.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, export.ContentType, export.Filename, out)
}

// AdminCreateRegistration handles POST /api/admin/registrations
func (h *Handler) AdminCreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	reg, err := h.admin.SubmitManual(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// AdminEnableOD handles POST /api/admin/registrations/{id}/od[?notify=true]
func (h *Handler) AdminEnableOD(w http.ResponseWriter, r *http.Request) {
	notify, _ := strconv.ParseBool(r.URL.Query().Get("notify"))
	reg, err := h.admin.EnableOD(r.Context(), chi.URLParam(r, "id"), notify)
	if errors.Is(err, service.ErrNotifyFailed) {
		slog.WarnContext(r.Context(), "od letter email failed", "registration_id", reg.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
			Error: "On-Duty letter enabled, but the email could not be sent",
			Code:  "notify_failed",
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
