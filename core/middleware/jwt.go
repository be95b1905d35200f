package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/router"
)

// JWTConfig configures the JWT middleware.
type JWTConfig struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// Algorithm defaults to HS256.
	Algorithm string
	// SkipPaths are exact request paths the middleware lets through
	// unauthenticated.
	SkipPaths []string
}

// JWT validates a bearer token from the Authorization header before the
// handler runs. Invalid or missing tokens are answered 401 without invoking
// inner middleware or the handler.
func JWT(cfg JWTConfig) router.Middleware {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "HS256"
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return func(req *http.Request, ctx *router.Context, next router.Next) (*http.Response, error) {
		if skip[req.Path()] {
			return next()
		}
		auth, ok := req.Headers.Get(http.FieldAuthorization)
		if !ok || !strings.HasPrefix(auth, "Bearer ") {
			return unauthorized("missing bearer token"), nil
		}
		token := auth[len("Bearer "):]
		_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != cfg.Algorithm {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return cfg.Secret, nil
		}, jwt.WithValidMethods([]string{cfg.Algorithm}))
		if err != nil {
			return unauthorized("invalid token"), nil
		}
		return next()
	}
}

func unauthorized(detail string) *http.Response {
	resp := http.Error(http.ProblemDetails{
		Type:   "about:blank",
		Title:  "Unauthorized",
		Status: 401,
		Detail: detail,
	})
	resp.SetHeader("WWW-Authenticate", "Bearer")
	return resp
}
