// Package httpserver carries the HTTP plumbing around the submission core:
// server lifecycle, CORS for cross-origin widget posts, request metrics, and
// inbound rate limiting.
package httpserver

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Server interface {
	Run()
	Shutdown()
}

var _ Server = &StandardServer{}

type StandardServer struct {
	server *http.Server
}

func (s *StandardServer) Run() {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}

func (s *StandardServer) Shutdown() {
	if err := s.server.Shutdown(context.Background()); err != nil {
		panic(err)
	}
}

// NewServer assembles the mux from the given controllers and wraps it with
// CORS and metrics middleware. Embedded forms post from arbitrary host
// pages, so allowed origins are deployment configuration rather than a
// hardcoded list; an empty list allows any origin.
func NewServer(addr string, allowedOrigins []string, controllers ...Controller) *StandardServer {
	router := http.NewServeMux()

	for _, controller := range controllers {
		controller.AddRoutes(router)
	}

	router.Handle("GET /metrics", promhttp.Handler())
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		MaxAge: 300,
	})

	return &StandardServer{
		&http.Server{
			Addr:    addr,
			Handler: c.Handler(MetricsMiddleware()(router)),
		},
	}
}
