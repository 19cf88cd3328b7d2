package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/anonchat/internal/auth"
	"github.com/pliu/anonchat/internal/bot"
	"github.com/pliu/anonchat/internal/cache"
	"github.com/pliu/anonchat/internal/chat"
	"github.com/pliu/anonchat/internal/config"
	"github.com/pliu/anonchat/internal/handlers"
	"github.com/pliu/anonchat/internal/middleware"
	"github.com/pliu/anonchat/internal/stats"
	"github.com/pliu/anonchat/internal/store"
	"github.com/pliu/anonchat/internal/store/memstore"
	"github.com/pliu/anonchat/internal/store/sqlstore"
	"github.com/pliu/anonchat/internal/ws"
)

var (
	addr    = flag.String("addr", "", "http service address (overrides ADDR)")
	envFile = flag.String("env", ".env", "environment file to load")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	// Initialize Store
	st, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var statsCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("stats cache disabled: %v", err)
		} else {
			defer rc.Close()
			statsCache = rc
		}
	}

	// Initialize WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()

	svc := chat.NewService(st, hub)
	dispatcher := bot.NewDispatcher(svc, hub)
	reporter := stats.NewReporter(st, stats.Options{
		Window:      cfg.RecentWindow,
		RecentLimit: cfg.RecentMessagesLimit,
		Cache:       statsCache,
		CacheTTL:    cfg.StatsCacheTTL,
	})

	// Initialize Handlers
	sessions := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL)
	authHandler := &handlers.AuthHandler{Sessions: sessions, PasswordHash: cfg.DashboardPasswordHash}
	dashboardHandler := &handlers.DashboardHandler{Stats: reporter}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	// Dashboard API
	api := r.PathPrefix("/api").Subrouter()
	if cfg.DashboardProtected() {
		if cfg.UsingDevSecret() {
			log.Println("Warning: SESSION_SECRET is not set, using the development key")
		}
		api.Use(middleware.AuthMiddleware(sessions))
	} else {
		log.Println("Warning: DASHBOARD_PASSWORD_HASH is not set, dashboard API is open")
	}
	api.HandleFunc("/stats", dashboardHandler.GetStats).Methods("GET")
	api.HandleFunc("/recent-activity", dashboardHandler.GetRecentActivity).Methods("GET")
	api.HandleFunc("/conversations", dashboardHandler.GetConversations).Methods("GET")
	api.HandleFunc("/conversations/{id:[0-9]+}/messages", dashboardHandler.GetConversationMessages).Methods("GET")

	// Messaging front-end
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, dispatcher, w, r)
	})

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(cfg.StaticDir, "index.html"))
	})

	// Serve static files with cache-busting headers for development
	r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".css") || strings.HasSuffix(r.URL.Path, ".js") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		http.FileServer(http.Dir(cfg.StaticDir)).ServeHTTP(w, r)
	}))

	srv := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Println("Starting server on", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DBDriver == "memory" {
		log.Println("Using in-memory store; conversations are lost on restart")
		return memstore.New(), nil
	}
	return sqlstore.New(cfg.DBDriver, cfg.DBDSN)
}
