package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const verifyTimeout = 5 * time.Second

type AuthConfig struct {
	IssuerURL string
	ClientID  string
	// AdminRole, when set, must appear in the token's roles or groups claim.
	AdminRole string
}

type UserClaims struct {
	Sub    string   `json:"sub"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Groups []string `json:"groups"`
}

// HasRole reports whether the claims grant role through either claim.
func (c UserClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role) || slices.Contains(c.Groups, role)
}

type tokenVerifier func(ctx context.Context, rawToken string) (UserClaims, error)

// Authentication verifies bearer tokens against the OIDC issuer. It guards the admin
// sync, event and dead letter routes; the storefront search routes stay public.
func Authentication(ctx context.Context, logger ectologger.Logger, cfg AuthConfig) (echo.MiddlewareFunc, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	verify := func(ctx context.Context, rawToken string) (UserClaims, error) {
		var claims UserClaims
		idToken, err := verifier.Verify(ctx, rawToken)
		if err != nil {
			return claims, err
		}
		err = idToken.Claims(&claims)
		return claims, err
	}

	return authenticate(logger, cfg.AdminRole, verify), nil
}

func authenticate(logger ectologger.Logger, adminRole string, verify tokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
			defer span.End()

			token, ok := bearerToken(c.Request())
			if !ok {
				logger.WithContext(ctx).Warn("request is missing bearer token")
				return httperror.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
			defer cancel()

			claims, err := verify(verifyCtx, token)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("token is invalid")
				return httperror.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if adminRole != "" && !claims.HasRole(adminRole) {
				logger.WithContext(ctx).WithField("sub", claims.Sub).Warn("token lacks the admin role")
				return httperror.NewHTTPErrorf(http.StatusForbidden, "role %q required", adminRole)
			}

			ctx = appctx.SetUserID(ctx, claims.Sub)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
