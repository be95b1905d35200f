// Package middleware ships the built-in middleware usable on any route:
// panic recovery, request logging, CORS, request ids, token-bucket rate
// limiting, response compression and JWT authentication. All of them follow
// the router's onion model; code before next() runs on the way in, code
// after next() on the way out.
package middleware

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/router"
)

// Recovery converts a handler panic into a 500 problem response so one bad
// request cannot take the reactor down.
func Recovery() router.Middleware {
	return func(req *http.Request, ctx *router.Context, next router.Next) (resp *http.Response, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered in %s %s: %v", req.Method, req.Path(), r)
				resp = http.Error(http.InternalServerError("internal error"))
				err = nil
			}
		}()
		return next()
	}
}

// Logger logs one line per request with method, path, status and duration.
func Logger() router.Middleware {
	return func(req *http.Request, ctx *router.Context, next router.Next) (*http.Response, error) {
		start := time.Now()
		resp, err := next()
		status := 0
		if resp != nil {
			status = resp.Status
		}
		log.Printf("[%s] %s -> %d (%s)", req.Method, req.Path(), status, time.Since(start))
		return resp, err
	}
}

// RequestID stamps every response with an X-Request-ID.
func RequestID() router.Middleware {
	return func(req *http.Request, ctx *router.Context, next router.Next) (*http.Response, error) {
		resp, err := next()
		if resp != nil {
			resp.SetHeader("X-Request-ID", uuid.NewString())
		}
		return resp, err
	}
}

// CORS adds permissive CORS headers and short-circuits OPTIONS preflights.
func CORS() router.Middleware {
	return func(req *http.Request, ctx *router.Context, next router.Next) (*http.Response, error) {
		if req.Method == http.MethodOptions {
			resp := http.NoContent(204)
			setCORSHeaders(resp)
			return resp, nil
		}
		resp, err := next()
		if resp != nil {
			setCORSHeaders(resp)
		}
		return resp, err
	}
}

func setCORSHeaders(resp *http.Response) {
	resp.SetHeader("Access-Control-Allow-Origin", "*")
	resp.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	resp.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// RateLimiter allows requestsPerSecond requests, refilling once per second.
// Over-limit requests are answered 429 without reaching the handler. The
// bucket is shared across reactors, so the mutex is the documented cost.
func RateLimiter(requestsPerSecond int) router.Middleware {
	var (
		mu         sync.Mutex
		tokens     = requestsPerSecond
		lastRefill = time.Now()
	)
	return func(req *http.Request, ctx *router.Context, next router.Next) (*http.Response, error) {
		mu.Lock()
		now := time.Now()
		if now.Sub(lastRefill) > time.Second {
			tokens = requestsPerSecond
			lastRefill = now
		}
		ok := tokens > 0
		if ok {
			tokens--
		}
		mu.Unlock()
		if !ok {
			resp := http.Text(429, "Too Many Requests")
			return resp, nil
		}
		return next()
	}
}
