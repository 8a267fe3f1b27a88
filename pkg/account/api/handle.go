// Package api exposes the account service over HTTP. Requests are decoded
// from JSON, authenticated requests carry the session credential as a
// bearer token, and service errors are rendered with their mapped status
// and stable code.
package api

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/verture/identity-core/pkg/account"
	"github.com/verture/identity-core/pkg/audit"
	"github.com/verture/identity-core/pkg/errors"
	"github.com/verture/identity-core/pkg/identity"
	"github.com/verture/identity-core/pkg/verification"
)

// Handler serves the account HTTP API.
type Handler struct {
	service   *account.Service
	tokenAuth *jwtauth.JWTAuth
}

// NewHandler creates an account API handler
func NewHandler(service *account.Service, tokenAuth *jwtauth.JWTAuth) *Handler {
	return &Handler{
		service:   service,
		tokenAuth: tokenAuth,
	}
}

// Routes mounts the public, authenticated and admin route groups.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/password/reset-request", h.RequestPasswordReset)
	r.Post("/password/reset", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(jwtauth.Authenticator(h.tokenAuth))

		r.Post("/logout", h.Logout)
		r.Get("/me", h.GetProfile)
		r.Put("/me/name", h.UpdateName)
		r.Post("/me/password", h.ChangePassword)
		r.Post("/me/email", h.RequestEmailChange)
		r.Post("/me/phone", h.RequestPhoneChange)
		r.Post("/verify-phone", h.VerifyPhone)
		r.Post("/resend-verification", h.ResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)

			r.Get("/admin/stats", h.GetStats)
			r.Get("/admin/audit-log", h.ListAuditLog)
			r.Post("/admin/identities/{id}/unlock", h.UnlockAccount)
		})
	})

	return r
}

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	created, err := h.service.Register(r.Context(), req, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toIdentityResponse(created))
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Identity:  toIdentityResponse(result.Identity),
	})
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	h.service.Logout(r.Context(), subject, originFrom(r))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Logged out"})
}

// VerifyEmail handles POST /verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}
	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeValidation), Error: "Token is required"})
		return
	}

	verified, err := h.service.VerifyEmail(r.Context(), req.Token, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toIdentityResponse(verified))
}

// VerifyPhone handles POST /verify-phone
func (h *Handler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	var req VerifyPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}
	if req.Code == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeValidation), Error: "Code is required"})
		return
	}

	verified, err := h.service.VerifyPhone(r.Context(), subject, req.Code, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toIdentityResponse(verified))
}

// RequestPasswordReset handles POST /password/reset-request. The response
// is the same whether or not the address is registered.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email, originFrom(r)); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "If the address is registered, a reset email has been sent"})
}

// ResetPassword handles POST /password/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req account.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	updated, err := h.service.ResetPassword(r.Context(), req, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toIdentityResponse(updated))
}

// ChangePassword handles POST /me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	var req account.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), subject, req, originFrom(r)); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password changed"})
}

// GetProfile handles GET /me
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	ident, err := h.service.GetIdentity(r.Context(), subject)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toIdentityResponse(ident))
}

// UpdateName handles PUT /me/name
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	var req UpdateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	updated, err := h.service.UpdateName(r.Context(), subject, req.Name, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toIdentityResponse(updated))
}

// RequestEmailChange handles POST /me/email
func (h *Handler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	h.requestContactChange(w, r, verification.ChannelEmail)
}

// RequestPhoneChange handles POST /me/phone
func (h *Handler) RequestPhoneChange(w http.ResponseWriter, r *http.Request) {
	h.requestContactChange(w, r, verification.ChannelPhone)
}

func (h *Handler) requestContactChange(w http.ResponseWriter, r *http.Request, channel verification.Channel) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	var req ContactChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	if err := h.service.RequestContactChange(r.Context(), subject, channel, req.NewValue, originFrom(r)); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, MessageResponse{Message: "Verification sent to the new destination"})
}

// ResendVerification handles POST /resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r, err)
		return
	}

	if err := h.service.ResendVerification(r.Context(), subject, verification.Channel(req.Channel), originFrom(r)); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Verification sent"})
}

// GetStats handles GET /admin/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, stats)
}

// ListAuditLog handles GET /admin/audit-log
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		Action: audit.Action(r.URL.Query().Get("action")),
	}
	if actor := r.URL.Query().Get("actor_id"); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeValidation), Error: "Invalid actor_id"})
			return
		}
		filter.ActorID = &actorID
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	entries, total, err := h.service.ListAuditLog(r.Context(), filter)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, AuditLogResponse{Entries: entries, Total: total})
}

// UnlockAccount handles POST /admin/identities/{id}/unlock
func (h *Handler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	adminID, err := h.subjectID(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeValidation), Error: "Invalid identity id"})
		return
	}

	unlocked, err := h.service.UnlockAccount(r.Context(), adminID, targetID, originFrom(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toIdentityResponse(unlocked))
}

// requireAdmin rejects requests whose session does not carry the admin role.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			renderUnauthorized(w, r)
			return
		}
		role, _ := claims["role"].(string)
		if role != string(identity.RoleAdmin) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeForbidden), Error: "Admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// subjectID extracts the identity id from the verified session claims.
func (h *Handler) subjectID(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	subject, _ := claims["sub"].(string)
	return uuid.Parse(subject)
}

func toIdentityResponse(pub identity.Public) IdentityResponse {
	var response IdentityResponse
	copier.Copy(&response, &pub)
	response.ID = pub.ID.String()
	response.Role = string(pub.Role)
	return response
}

func originFrom(r *http.Request) audit.Origin {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = forwarded
	}
	return audit.Origin{IP: ip, UserAgent: r.UserAgent()}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "err", err)
	}

	message := "Request failed"
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: string(code), Error: message})
}

func renderBadBody(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("Failed to decode request body", "error", err)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeValidation), Error: "Invalid request body"})
}

func renderUnauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorResponse{Code: string(errors.ErrCodeInvalidCredentials), Error: "Unauthorized"})
}
