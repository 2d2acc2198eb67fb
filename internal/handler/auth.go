package handler

import (
    "context"  // provides context with cancellation for DB calls
    "errors"
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token expiry timestamps

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"

    "github.com/iliyamo/tour-backoffice/internal/config"     // app configuration
    "github.com/iliyamo/tour-backoffice/internal/middleware" // authenticated staff id
    "github.com/iliyamo/tour-backoffice/internal/model"
    "github.com/iliyamo/tour-backoffice/internal/repository" // sentinel errors
    "github.com/iliyamo/tour-backoffice/internal/utils"      // hashing and token issuing
)

// StaffReader loads staff accounts.
type StaffReader interface {
    GetByEmail(ctx context.Context, email string) (model.Staff, error)
    GetByID(ctx context.Context, id uint64) (model.Staff, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
    StoreRefresh(ctx context.Context, staffID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForStaff(ctx context.Context, staffID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Staff  StaffReader
    Tokens TokenStore
    Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, s StaffReader, t TokenStore, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Cfg: cfg, Staff: s, Tokens: t, Log: log}
}

// ----- DTOs -----

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type staffPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Name  string `json:"name"`
    Role  string `json:"role"`
}
type authResp struct {
    Staff   staffPart `json:"staff"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// Login verifies credentials and returns a new token pair.  Only active
// operator and admin accounts may sign in.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if ok, err := bind(c, &req); !ok {
        return err
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    s, err := h.Staff.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrStaffNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        h.Log.Error("load staff failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !utils.VerifyPassword(s.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !s.CanOperate() {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account may not sign in"})
    }
    return h.issue(ctx, c, s, http.StatusOK)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := requestCtx(c)
    defer cancel()

    staffID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        h.Log.Warn("revoke refresh failed", zap.Uint64("staff_id", staffID), zap.Error(err))
    }

    s, err := h.Staff.GetByID(ctx, staffID)
    if err != nil {
        if errors.Is(err, repository.ErrStaffNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load staff failed"})
    }
    if !s.CanOperate() {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account may not sign in"})
    }
    return h.issue(ctx, c, s, http.StatusOK)
}

// Logout revokes the refresh token in the body, or every token of the
// authenticated staff member when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
    staffID, ok := middleware.StaffID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req refreshReq
    _ = c.Bind(&req)
    raw := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := requestCtx(c)
    defer cancel()

    if raw == "" {
        if err := h.Tokens.RevokeAllForStaff(ctx, staffID); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }

    hash := utils.HashRefreshRaw(raw)
    owner, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil || owner != staffID {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated staff account.
func (h *AuthHandler) Me(c echo.Context) error {
    staffID, ok := middleware.StaffID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    s, err := h.Staff.GetByID(ctx, staffID)
    if err != nil {
        if errors.Is(err, repository.ErrStaffNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "staff not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load staff failed"})
    }
    return c.JSON(http.StatusOK, staffPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role})
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, s model.Staff, status int) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, s.ID, s.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, s.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        h.Log.Error("store refresh failed", zap.Uint64("staff_id", s.ID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }
    return c.JSON(status, authResp{
        Staff:   staffPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}
