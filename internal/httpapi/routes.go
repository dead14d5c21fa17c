package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/metrics"
	"github.com/DoyleJ11/simon-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type RouteOptions struct {
	AllowedOrigins []string
}

func SetupRoutes(a *API, opts RouteOptions) http.Handler {
	metrics.Register()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(a.log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", PlayerHeader},
		MaxAge:         86400,
	}).Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Put("/game-state", a.ResetGameState)
		r.Get("/game-state", a.GetGameState)
		r.Post("/game-state/sequence", a.SubmitSequence)
		r.Get("/high-scores", a.HighScores)
	})

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(a.hub, PlayerID, ValidPlayer, wsOrigins(opts.AllowedOrigins), a.log))
	return r
}

// accessLog logs each request and records it under its chi route pattern.
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			metrics.RecordHTTPRequest(r.Method, route, status, elapsed)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// wsOrigins converts CORS origins into the host patterns websocket.Accept expects.
func wsOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
