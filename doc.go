/*
Package katana is an HTTP/1.1 serving framework whose request-handling code
is generated from an OpenAPI 3.x document and compiled into the server.

Describe the API surface declaratively; katana-gen emits strongly-typed
DTOs, arena-backed JSON parsers, validators, a route table, an abstract
handler interface and a hash-switch fast router. At runtime the server
drives those artifacts with a reactor-per-core event loop, per-request
arena memory and a non-blocking HTTP/1.1 parser.

# Workflow

Generate the serving artifacts from a spec:

	katana-gen -spec api.json -out internal/generated

Implement the generated APIHandler interface and run the server:

	package main

	import (
	    "github.com/katana-web/katana/app"
	    "github.com/katana-web/katana/config"

	    "example.com/myapi/internal/generated"
	)

	func main() {
	    cfg := config.New()
	    fast := generated.MakeFastRouter(&myHandler{})
	    app.New(cfg, fast.Dispatch).Run()
	}

Modules

  - app: application lifecycle
  - config: flags + KATANA_* environment configuration
  - core/reactor: edge-triggered epoll reactors, one per core (optionally pinned),
    SO_REUSEPORT listener fan-out, graceful drain
  - core/server: per-connection read/parse/dispatch/write state machine with
    EMFILE-resilient accept loops
  - core/http: HTTP/1.1 model, incremental parser, RFC 7807 problem details
  - core/router: literal-over-param route matching, onion middleware
  - core/dispatch: runtime support for generated dispatch stubs
  - core/jsoncursor: the scalar JSON cursor generated parsers drive
  - core/arena, core/ringbuf: per-request memory and byte staging
  - core/middleware: recovery, logging, CORS, rate limiting, compression, JWT
  - core/metrics: serving counters with a Prometheus collector
  - openapi, gen, cmd/katana-gen: the offline generator

# Concurrency model

Reactors share nothing. A connection lives and dies on the reactor that
accepted it; handlers run synchronously on that reactor's thread, so a
blocking handler stalls its reactor. The shared handler instance must be
safe for concurrent use across reactors.
*/
package katana
