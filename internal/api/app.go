package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/devquest008/campus-connect/internal/config"
	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/identity"
	"github.com/devquest008/campus-connect/internal/realtime"
	"github.com/devquest008/campus-connect/internal/views"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"
)

// Identities hands out the identity state of signed in accounts.
type Identities interface {
	Get(ctx context.Context, account database.Account) (identity.State, error)
	Refresh(ctx context.Context, account database.Account) (identity.State, error)
	SignOut(userId string)
}

type App struct {
	log            *log.Logger
	db             database.Repository
	hub            *realtime.Hub
	ids            Identities
	views          *views.Controllers
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
	secureCookies  bool
}

func NewApp(logger *log.Logger, db database.Repository, hub *realtime.Hub, ids Identities, v *views.Controllers, metrics http.Handler, cfg *config.Config) *App {
	s := &App{
		log:            logger,
		db:             db,
		hub:            hub,
		ids:            ids,
		views:          v,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		secureCookies:  cfg.SecureCookies,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthCheck)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	r.With(s.authMiddleware).Get("/ws", s.serveWs)

	r.Route("/api", func(r chi.Router) {
		r.Get("/campuses", s.campuses)
		r.Post("/auth/otp", s.requestCode)
		r.Post("/auth/verify", s.verifyCode)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/session", s.session)
			r.Get("/auth/logout", s.logout)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", s.getProfile)
				r.Post("/", s.setupProfile)
				r.Put("/", s.updateProfile)
				r.Post("/tags", s.toggleTag)
				r.Put("/visibility", s.setVisibility)
				r.Get("/badges", s.badges)
			})

			r.Get("/dashboard", s.dashboard)
			r.Get("/heatmap", s.heatmap)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.listSessions)
				r.Post("/", s.createSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/members", s.sessionMembers)
					r.Post("/members", s.joinSession)
					r.Delete("/members", s.leaveSession)
					r.Post("/checkin", s.checkIn)
					r.Get("/messages", s.sessionMessages)
					r.Post("/messages", s.postSessionMessage)
				})
			})

			r.Route("/broadcasts", func(r chi.Router) {
				r.Get("/", s.listBroadcasts)
				r.Post("/", s.createBroadcast)
				r.Delete("/{id}", s.deleteBroadcast)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/contacts", s.contacts)
				r.Get("/messages", s.thread)
				r.Post("/messages", s.sendMessage)
				r.Post("/read", s.markRead)
			})

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", s.listConnections)
				r.Post("/", s.requestConnection)
				r.Post("/{id}/accept", s.acceptConnection)
			})
		})
	})

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(r)

	h = s.recoverPanics(h)
	if logger != nil {
		h = handlers.CombinedLoggingHandler(logger.Writer(), h)
	}

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *App) Handler() http.Handler {
	return s.srv.Handler
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
