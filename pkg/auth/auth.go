package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"

	apperrors "trekkr/pkg/errors"
	httputil "trekkr/pkg/http"
	"trekkr/pkg/logger"
)

type Role string

const (
	RoleUser     Role = "USER"
	RoleAdmin    Role = "ADMIN"
	RoleSubAdmin Role = "SUB_ADMIN"
	RoleGuide    Role = "GUIDE"
)

// Staff may manage events, promo codes and booking lifecycle.
var Staff = []Role{RoleAdmin, RoleSubAdmin}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsStaff() bool {
	return slices.Contains(Staff, i.Role)
}

type Claims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator verifies HS256 bearer tokens issued by the account service.
type Authenticator struct {
	secret []byte
	log    *logger.Logger
}

func NewAuthenticator(secret string, log *logger.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), log: log}
}

// Issue signs a token for userID. Used by tooling and tests; the public API
// never mints tokens.
func (a *Authenticator) Issue(userID string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (a *Authenticator) Parse(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{UserID: userID, Role: role}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// RequireAuth wraps a route so it only runs for an authenticated caller.
func (a *Authenticator) RequireAuth(next httprouter.Handle) httprouter.Handle {
	return a.require(next, nil)
}

// RequireRole is RequireAuth plus a check that the caller holds one of roles.
func (a *Authenticator) RequireRole(next httprouter.Handle, roles ...Role) httprouter.Handle {
	return a.require(next, roles)
}

func (a *Authenticator) require(next httprouter.Handle, roles []Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, err := bearerToken(r)
		if err != nil {
			a.reject(w, r, apperrors.Unauthorized("Authentication required"), err)
			return
		}
		identity, err := a.Parse(token)
		if err != nil {
			a.reject(w, r, apperrors.Unauthorized("Invalid or expired token"), err)
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, identity.Role) {
			a.reject(w, r, apperrors.Forbidden("Insufficient permissions"), nil)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)), ps)
	}
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError, cause error) {
	a.log.Security("request rejected by auth",
		"path", r.URL.Path,
		"method", r.Method,
		"status", appErr.HTTPStatus,
		"reason", cause,
	)
	if err := httputil.WriteError(w, appErr); err != nil {
		a.log.Error("failed to write error response", "handler", "Auth", "operation", "Require", "error", err)
	}
}

type contextKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok
}
