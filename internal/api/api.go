package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/oauth2"

	"github.com/susu3304/bizbot/internal/config"
	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/observability"
)

const discordAPIBase = "https://discord.com/api"

type API struct {
	router      *mux.Router
	server      *http.Server
	store       db.Store
	config      *config.Config
	metrics     *observability.Metrics
	logger      *slog.Logger
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	discordAPI  string
	now         func() time.Time
}

func New(cfg *config.Config, store db.Store, metrics *observability.Metrics, logger *slog.Logger) *API {
	api := &API{
		router:     mux.NewRouter(),
		store:      store,
		config:     cfg,
		metrics:    metrics,
		logger:     logger,
		jwtSecret:  []byte(cfg.JWTSecret),
		discordAPI: discordAPIBase,
		now:        time.Now,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Public endpoints
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	a.router.Handle("/metrics", a.metrics.Handler()).Methods("GET")

	if !a.config.OAuthEnabled() {
		a.logger.Info("web login disabled: DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET not set")
		return
	}

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Protected endpoints
	protected := a.router.PathPrefix("/api/me").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/tasks", a.handleMyTasks).Methods("GET")
	protected.HandleFunc("/deals", a.handleMyDeals).Methods("GET")
	protected.HandleFunc("/report", a.handleMyReport).Methods("GET")
}

// Handler returns the router wrapped in CORS.
func (a *API) Handler() http.Handler {
	// Allow all origins; the API is read-only and uses bearer tokens, not cookies.
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until Shutdown is called.
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.Info("API server listening", "addr", a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
