package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbwebsolutions/datasender/api/responses"
	"github.com/kbwebsolutions/datasender/pkg/config"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
	"github.com/kbwebsolutions/datasender/pkg/logger"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// WebhookAuth verifies the shared-secret JWT the event source attaches to
// every webhook call. Only the signature, method, and issuer are checked;
// the source carries no per-user identity.
func WebhookAuth(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			if err := verifyToken(cfg, token); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func verifyToken(cfg config.AuthConfig, tokenString string) error {
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	_, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.WebhookSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	return err
}
