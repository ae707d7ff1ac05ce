package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"filehost/auth"
	"filehost/config"
	"filehost/database"
	_ "filehost/docs" // swagger document
	"filehost/handlers"
	"filehost/logger"
	"filehost/middleware"
	"filehost/scheduler"
	"filehost/storage"
)

// @title Filehost API
// @version 1.0
// @description Upload and share files behind short opaque links

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:6925
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: Bearer {token}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logConfig := logger.Config{
		Level:    logger.ParseLevel(cfg.LogLevel),
		LogDir:   cfg.LogDir,
		MaxAge:   7,
		UseColor: true,
	}
	if err := logger.Initialize(ctx, logConfig); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
		os.Exit(1)
	}

	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Info("🚀 Filehost Starting")
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	files, err := database.OpenCollection(cfg.MetaDB, "files", false)
	if err != nil {
		logger.Fatal("Failed to open file metadata collection: %v", err)
		os.Exit(1)
	}
	defer files.Close()

	users, err := database.OpenCollection(cfg.UsersDB, "users", true)
	if err != nil {
		logger.Fatal("Failed to open user collection: %v", err)
		os.Exit(1)
	}
	defer users.Close()

	store, err := storage.New(storage.Options{
		Dir:           cfg.StorageDir,
		MaxUploadSize: cfg.MaxUploadSize,
		MaxCache:      cfg.MaxCache,
	}, files)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
		os.Exit(1)
	}

	authEngine := auth.New(users)
	sessions := auth.NewSessions(cfg.JWTSecret)

	boot, err := authEngine.Bootstrap(ctx)
	if err != nil {
		logger.Fatal("Failed to bootstrap admin user: %v", err)
		os.Exit(1)
	}
	if boot.Created {
		logger.Warn("generated admin user '%s' with ID %s", boot.User.Name, boot.User.ID)
		logger.Warn("this ID is the admin credential and is only shown once, write it down")
	}

	handlers.Configure(store, authEngine, sessions, cfg)

	scheduler.StartScheduler(ctx, store)

	mux := http.NewServeMux()

	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("/health",
		middleware.Chain(
			handlers.Health,
			middleware.Logging,
			middleware.JSONHeader,
		))

	mux.HandleFunc("/config.js",
		middleware.Chain(
			handlers.ConfigJS,
			middleware.Logging,
		))

	mux.HandleFunc("/api/login",
		middleware.Chain(
			handlers.Login,
			middleware.Logging,
			middleware.CORS,
			middleware.JSONHeader,
		))

	mux.HandleFunc("/api/upload",
		middleware.Chain(
			handlers.Upload,
			middleware.Logging,
			middleware.CORS,
		))

	// CORS sits outside Session so a preflight, which carries no
	// Authorization header, is answered before authentication runs.
	mux.HandleFunc("/api/users",
		middleware.Chain(
			usersHandler,
			middleware.Logging,
			middleware.CORS,
			middleware.Session(sessions),
			middleware.JSONHeader,
		))

	mux.HandleFunc("/", middleware.Chain(
		rootHandler(cfg.StaticDir),
		middleware.Logging,
	))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Warn("Received shutdown signal")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error: %v", err)
		}
	}()

	logger.Info("Server listening on http://%s", cfg.Addr())
	logger.Info("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
	logger.Info("Log directory: %s", cfg.LogDir)
	logger.Info("Storage directory: %s", cfg.StorageDir)
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed to start: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// usersHandler routes the users collection endpoint by method.
func usersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		handlers.ListUsers(w, r)
	case http.MethodPost:
		handlers.CreateUser(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// rootHandler serves share links and the static frontend from the same
// namespace. A path that looks like a file id is a download; anything else
// is tried against the static directory.
func rootHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if r.URL.Path == "/" {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		if id := handlers.FileID(r.URL.Path); id != "" {
			handlers.ServeFile(w, r, id)
			return
		}

		// Static assets only; flat directory, no traversal.
		name := filepath.Base(filepath.Clean(r.URL.Path))
		if name == "." || name == "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(staticDir, name))
	}
}
