package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/middleware"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
}

type meResponse struct {
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type secretRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

type createUserRequest struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type provisionResponse struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	URI      string `json:"uri"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if h.admin != nil {
		if err := h.admin.Ping(r.Context()); err != nil {
			middleware.WriteError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := h.engine.Login(r.Context(), req.Username, req.Code)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresAt:   res.ExpiresAt,
		Role:        res.Role,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		middleware.WriteError(w, lockana.ErrUnauthorized)
		return
	}
	if err := h.engine.Logout(r.Context(), token); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)
	user, err := h.engine.CurrentUser(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	perms, err := h.engine.EffectivePermissions(r.Context(), user)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Username:    user.Username,
		Roles:       user.RoleNames(),
		Permissions: perms,
	})
}

func (h *handler) listSecrets(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	entries, err := h.vault.List(r.Context(), user.Username)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) addSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req secretRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.vault.Add(r.Context(), user.Username, req.Name, req.Data); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *handler) getSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	entry, err := h.vault.Get(r.Context(), user.Username, chi.URLParam(r, "name"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *handler) updateSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req secretRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.vault.Update(r.Context(), user.Username, name, req.Data); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (h *handler) deleteSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	if err := h.vault.Delete(r.Context(), user.Username, chi.URLParam(r, "name")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	secret, err := h.engine.CreateSecret()
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	rec, err := h.admin.CreateUser(r.Context(), req.Username, secret)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	for _, role := range req.Roles {
		if err := h.admin.AssignRole(r.Context(), rec.Username, role); err != nil {
			middleware.WriteError(w, err)
			return
		}
	}
	uri, err := h.engine.ProvisionURI(rec.Username, secret)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.logger.Info("user provisioned", slog.String("username", rec.Username))
	writeJSON(w, http.StatusCreated, provisionResponse{Username: rec.Username, Secret: secret, URI: uri})
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), chi.URLParam(r, "username")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	prov, err := h.engine.RotateSecret(r.Context(), username)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provisionResponse{Username: username, Secret: prov.Secret, URI: prov.URI})
}

func (h *handler) listLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteError(w, errs.New(errs.KindValidation, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	logs, err := h.admin.ListLogs(r.Context(), limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *handler) deleteLogs(w http.ResponseWriter, r *http.Request) {
	n, err := h.admin.DeleteLogs(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.KindValidation, err, "malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

