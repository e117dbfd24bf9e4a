package handler

import (
	"net/http"

	"github.com/intervox/intervox/internal/directory"
	appI18n "github.com/intervox/intervox/internal/i18n"
	"github.com/intervox/intervox/internal/model"
)

const sessionCookieName = "session"

func (h *Handler) sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	}
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.respondUnauthorized(w, r)
			return
		}

		authSess := h.sessions.Get(cookie.Value)
		if authSess == nil {
			h.respondUnauthorized(w, r)
			return
		}

		user := h.users.Get(authSess.UserID)
		if user == nil {
			h.respondUnauthorized(w, r)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				respondJSON(w, http.StatusUnauthorized, apiError{
					Error:  "unauthorized",
					Notice: appI18n.T(r.Context(), "Unauthorized"),
				})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondJSON(w, http.StatusForbidden, apiError{
				Error:  "forbidden",
				Notice: appI18n.T(r.Context(), "Forbidden"),
			})
		})
	}
}

func (h *Handler) respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusUnauthorized, apiError{
		Error:  "unauthorized",
		Notice: appI18n.T(r.Context(), "Unauthorized"),
	})
}

type signupRequest struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
	Password string     `json:"password"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.users.Register(directory.NewUser{
		ID:       req.ID,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	user.PasswordHash = ""
	respondJSON(w, http.StatusCreated, apiResponse{
		Data:   user,
		Notice: appI18n.T(r.Context(), "SignupSuccess"),
	})
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	// Unknown ids and wrong passwords produce the same response.
	user, err := h.users.Authenticate(req.ID, req.Password)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, apiError{
			Error:  "invalid credentials",
			Notice: appI18n.T(r.Context(), "LoginError"),
		})
		return
	}

	token, err := h.sessions.Create(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, 0))
	user.PasswordHash = ""
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   user,
		Notice: appI18n.T(r.Context(), "LoginSuccess"),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			respondError(w, r, err)
			return
		}
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	respondJSON(w, http.StatusOK, apiResponse{
		Notice: appI18n.T(r.Context(), "LogoutSuccess"),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := *model.UserFromContext(r.Context())
	user.PasswordHash = ""
	respondJSON(w, http.StatusOK, apiResponse{Data: user})
}
