package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"deviceauth/internal/auth"
	"deviceauth/internal/autherr"
	"deviceauth/internal/server/middleware"
	"deviceauth/internal/server/respond"
	sessiondomain "deviceauth/internal/session/domain"
)

// Handlers exposes the auth engine over HTTP. Request validation beyond
// JSON shape lives in the engine; handlers only translate.
type Handlers struct {
	engine *auth.Engine
}

// NewHandlers returns HTTP handlers backed by engine.
func NewHandlers(engine *auth.Engine) *Handlers {
	return &Handlers{engine: engine}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// sessionView is the client-facing session projection. Tokens are never
// echoed back.
type sessionView struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"deviceId"`
	UserAgent      string     `json:"userAgent,omitempty"`
	IPAddress      string     `json:"ipAddress,omitempty"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Register handles POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSON(w, http.StatusBadRequest, respond.ErrorBody{Code: autherr.CodeInternal, Message: "invalid JSON body"})
		return
	}
	res, err := h.engine.Register(r.Context(), h.credentials(r, req))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

// Login handles POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSON(w, http.StatusBadRequest, respond.ErrorBody{Code: autherr.CodeInternal, Message: "invalid JSON body"})
		return
	}
	res, err := h.engine.Login(r.Context(), h.credentials(r, req))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Refresh handles POST /auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respond.Error(w, autherr.ErrInvalidRefreshToken)
		return
	}
	pair, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout. Always succeeds from the caller's
// perspective; ending an already-ended session is a no-op.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := middleware.GetAccessToken(r.Context()); ok {
		h.engine.Logout(r.Context(), tok)
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutOthers handles POST /auth/logout-others: ends the caller's sessions
// on every device except the one making this request.
func (h *Handlers) LogoutOthers(w http.ResponseWriter, r *http.Request) {
	tok, ok := middleware.GetAccessToken(r.Context())
	if !ok {
		respond.Error(w, autherr.ErrUnauthorized)
		return
	}
	if err := h.engine.LogoutOthers(r.Context(), tok); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /auth/logout-all.
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respond.Error(w, autherr.ErrUnauthorized)
		return
	}
	if err := h.engine.LogoutAll(r.Context(), p.UserID); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Profile handles GET /auth/profile.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respond.Error(w, autherr.ErrUnauthorized)
		return
	}
	respond.JSON(w, http.StatusOK, h.engine.Profile(p))
}

// Sessions handles GET /auth/sessions: the caller's active sessions, most
// recently active first.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respond.Error(w, autherr.ErrUnauthorized)
		return
	}
	list, err := h.engine.ActiveSessions(r.Context(), p.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	views := make([]sessionView, len(list))
	for i, s := range list {
		views[i] = toSessionView(s)
	}
	respond.JSON(w, http.StatusOK, views)
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// credentials merges the JSON body with request metadata. The device id may
// come from the body or the Device-Id header; the body wins.
func (h *Handlers) credentials(r *http.Request, req credentialsRequest) auth.Credentials {
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = r.Header.Get("Device-Id")
	}
	return auth.Credentials{
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		DeviceID:  deviceID,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}

func toSessionView(s *sessiondomain.Session) sessionView {
	return sessionView{
		ID:             s.ID,
		DeviceID:       s.DeviceID,
		UserAgent:      s.UserAgent,
		IPAddress:      s.IPAddress,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
