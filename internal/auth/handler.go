package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	resolver       *access.Resolver
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, resolver *access.Resolver) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		resolver:       resolver,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session", h.currentSession)
	r.Post("/signin", h.handleSignIn)
	r.Post("/signup", h.handleSignUp)
	r.Post("/signout", h.handleSignOut)
	r.Post("/reset-password", h.handleResetRequest)
	r.Post("/reset-password/confirm", h.handleResetConfirm)
}

// currentSession reports the authenticated state and hands the SPA its CSRF
// token for subsequent mutating calls.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	resp := map[string]any{
		"authenticated": false,
		"csrfToken":     csrfToken,
	}
	if sess != nil && sess.User() != "" {
		resp["authenticated"] = true
		resp["userId"] = sess.User()
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Пользователь не найден"})
		case errors.Is(err, shared.ErrInvalidCredentials):
			shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Неверный пароль"})
		default:
			h.logger.Error("sign in failed", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, err)
		}
		return
	}

	if sess == nil {
		h.logger.Error("session missing during sign in")
		shared.WriteError(w, http.StatusInternalServerError, errors.New("session missing"))
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":      user.ID,
		"displayName": user.DisplayName,
		"status":      user.Status,
	})
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	id, err := h.service.SignUp(r.Context(), Registration{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		LastName:    req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrEmailTaken):
			shared.WriteJSON(w, http.StatusConflict, shared.APIError{Error: shared.UserSafeMessage(err)})
		case errors.Is(err, shared.ErrWeakPassword):
			shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: shared.UserSafeMessage(err)})
		default:
			h.logger.Error("sign up failed", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, err)
		}
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"userId": id,
		"status": access.StatusPending,
	})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if raw := sess.User(); raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil {
				// Drop the cached resolution so an in-flight profile
				// fetch cannot repopulate it after sign-out.
				h.resolver.Invalidate(userID)
			}
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Пользователь с таким email не найден"})
			return
		}
		h.logger.Error("password reset request failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrResetTokenInvalid):
			shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Ссылка недействительна или устарела"})
		case errors.Is(err, shared.ErrWeakPassword):
			shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: shared.UserSafeMessage(err)})
		default:
			h.logger.Error("password reset confirm failed", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, err)
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
