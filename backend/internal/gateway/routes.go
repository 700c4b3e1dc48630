package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"marksboard/backend/internal/auth"
	"marksboard/backend/internal/gateway/handlers"
	"marksboard/backend/internal/gateway/util"
)

const defaultRequestTimeout = 60 * time.Second

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(svc *Services) *chi.Mux {
	r := chi.NewRouter()

	timeout := defaultRequestTimeout
	if svc.RequestTimeout > 0 {
		timeout = svc.RequestTimeout
	}

	// 1. Global Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(corsOptions(svc)))

	// 2. Initialize Handlers
	marksHandler := &handlers.MarksHandler{Marks: svc.Marks}
	analysisHandler := &handlers.AnalysisHandler{Engine: svc.Engine, Catalog: svc.Catalog}
	authHandler := &handlers.AuthHandler{Auth: svc.Auth, CookieSecure: svc.CookieSecure}
	systemHandler := &handlers.SystemHandler{Catalog: svc.Catalog, Store: svc.Store, Version: svc.Version}

	r.Get("/health", systemHandler.Health)

	// 3. Define Routes (grouped by prefix)
	r.Route("/api", func(r chi.Router) {

		// --- Public Routes ---
		r.Post("/auth/cas", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout) // Logout handles its own token extraction

		r.Get("/catalog", systemHandler.GetCatalog)
		r.Get("/analysis", analysisHandler.GetAnalysis)

		// --- Protected Routes (Require Valid Session) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Auth))

			r.Get("/auth/session", authHandler.Session)

			r.Get("/marks", marksHandler.GetMarks)
			r.Post("/marks", marksHandler.SubmitMarks)

			r.Get("/analysis/summary", analysisHandler.GetSummary)
		})
	})

	return r
}

func corsOptions(svc *Services) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: svc.CORS.AllowCredentials,
		MaxAge:           300,
	}
	if len(svc.CORS.AllowedOrigins) > 0 {
		opts.AllowedOrigins = svc.CORS.AllowedOrigins
	}
	if len(svc.CORS.AllowedMethods) > 0 {
		opts.AllowedMethods = svc.CORS.AllowedMethods
	}
	if len(svc.CORS.AllowedHeaders) > 0 {
		opts.AllowedHeaders = svc.CORS.AllowedHeaders
	}
	if svc.CORS.MaxAge > 0 {
		opts.MaxAge = svc.CORS.MaxAge
	}
	return opts
}

// AuthMiddleware validates the session token and injects its claims into the request context.
func AuthMiddleware(authSvc handlers.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract Token
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			// 2. Validate
			claims, err := authSvc.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			// 3. Inject session into context
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := log.Info()
			if status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote_ip", r.RemoteAddr).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
