package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	CookieName  = "jwt"
	identityKey = "identity"
)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

type Handler struct {
	tokens  TokenVerifier
	users   UserGetter
	timeout time.Duration
}

func NewHandler(tokens TokenVerifier, users UserGetter, timeout time.Duration) *Handler {
	return &Handler{tokens: tokens, users: users, timeout: timeout}
}

// RequireIdentity resolves the caller's identity or aborts the request.
// The token is read from the jwt cookie, then the Authorization header,
// then the token query parameter.
func (h *Handler) RequireIdentity() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := tokenFromRequest(ctx)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticatedStr})
			return
		}

		userId, err := h.tokens.Verify(token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": tokenErrorString(err)})
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
		defer cancel()

		user, err := h.users.GetUserById(reqCtx, userId)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUserNotFound):
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticatedStr})
			case errors.Is(err, context.DeadlineExceeded):
				ctx.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": ErrServerTimeoutStr})
			case errors.Is(err, context.Canceled):
				ctx.AbortWithStatus(499)
			default:
				log.Error().Err(err).Str("user", userId).Msg("identity lookup failed")
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": ErrUnknownStr})
			}
			return
		}

		ctx.Set(identityKey, user)
		ctx.Next()
	}
}

// Identity returns the user stored by RequireIdentity.
func Identity(ctx *gin.Context) (domain.User, bool) {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)
	return user, ok
}

func tokenFromRequest(ctx *gin.Context) string {
	if c, err := ctx.Cookie(CookieName); err == nil && c != "" {
		return c
	}
	if h := ctx.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ctx.Query("token")
}

func tokenErrorString(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		return ErrExpiredTokenStr
	case errors.Is(err, domain.ErrInvalidTokenSignature),
		errors.Is(err, domain.ErrInvalidSigningAlg),
		errors.Is(err, domain.ErrCorruptedToken):
		return ErrInvalidTokenStr
	default:
		return ErrUnauthenticatedStr
	}
}
