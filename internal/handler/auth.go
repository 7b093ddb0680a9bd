package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/middleware"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/store"
	"github.com/dukerupert/slotshare/internal/validate"
)

type AuthHandler struct {
	db           *sql.DB
	userStore    *store.UserStore
	profileStore *store.ProfileStore
	sessionStore *store.SessionStore
	roles        *auth.RoleResolver
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(db *sql.DB, roles *auth.RoleResolver, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		db:           db,
		userStore:    store.NewUserStore(db),
		profileStore: store.NewProfileStore(db),
		sessionStore: store.NewSessionStore(db),
		roles:        roles,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *model.User    `json:"user"`
	Profile   *model.Profile `json:"profile"`
}

type meResponse struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
	Role    string         `json:"role"`
}

// Signup creates the identity and its profile together, then signs in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Role == "" {
		req.Role = model.RoleBuyer
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered", Kind: "conflict"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, profile, err := h.createAccount(req.Email, hash, req.FullName, req.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("account created", "user_id", user.ID, "role", profile.Role)
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user, Profile: profile})
}

func (h *AuthHandler) createAccount(email, hash, fullName, role string) (*model.User, *model.Profile, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := store.NewUserStore(tx).Create(email, hash)
	if err != nil {
		return nil, nil, err
	}
	profile, err := store.NewProfileStore(tx).Create(user.ID, fullName, role)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return user, profile, nil
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidCredentials.Error(), Kind: "unauthorized"})
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Kind: "unauthorized"})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	profile, err := h.profileStore.GetByID(user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user, Profile: profile})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.sessionStore.Delete(ac.SessionID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in identity with its profile and resolved role.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	profile, err := h.profileStore.GetByID(ac.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Profile: profile, Role: ac.Role})
}

type profileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=30,alphanum"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
	WhatsApp *string `json:"whatsapp" validate:"omitempty,e164"`
}

// UpdateProfile edits the caller's contact details. Roles change only
// through admin tooling.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	profile, err := h.profileStore.GetByID(ac.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if profile == nil {
		role, err := h.roles.Resolve(ac.UserID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if profile, err = h.profileStore.Create(ac.UserID, "", role); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	username, fullName, whatsapp := profile.Username, profile.FullName, profile.WhatsApp
	if req.Username != nil {
		username = req.Username
	}
	if req.FullName != nil {
		fullName = req.FullName
	}
	if req.WhatsApp != nil {
		whatsapp = req.WhatsApp
	}
	updated, err := h.profileStore.UpdateDetails(ac.UserID, username, fullName, whatsapp)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
