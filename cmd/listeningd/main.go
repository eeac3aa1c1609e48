package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/ielts-listening/internal/api/http"
	auth "github.com/mind-engage/ielts-listening/internal/auth/middleware"
	"github.com/mind-engage/ielts-listening/internal/config"
	"github.com/mind-engage/ielts-listening/internal/db"
	"github.com/mind-engage/ielts-listening/internal/exam"
	"github.com/mind-engage/ielts-listening/internal/scoring"
	"github.com/mind-engage/ielts-listening/internal/storage"
	syncx "github.com/mind-engage/ielts-listening/internal/sync"
)

func main() {
	importPath := flag.String("import", "", "load a test from a JSON file and exit")
	flag.Parse()

	cfg := config.Load()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	scale, ok := scoring.Lookup(cfg.ScoreScale)
	if !ok {
		log.Fatalf("unknown score scale %q", cfg.ScoreScale)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	events := syncx.NewEventRepo(dbh, cfg.EventSiteID)
	svc := exam.NewService(exam.NewSQLStore(dbh, cfg.DBDriver),
		exam.WithScale(scale),
		exam.WithPublisher(events),
		exam.WithMediaStore(bs),
		exam.WithRescaleToFullTest(cfg.RescaleToFullTest),
	)

	if *importPath != "" {
		if err := importTest(svc, *importPath); err != nil {
			log.Fatalf("import %s: %v", *importPath, err)
		}
		return
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Service: svc,
		Auth:    auth.NewAuthService(cfg.AuthSecret),
		Accounts: auth.Accounts{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevLogin:      cfg.DevLogin,
		},
		Blobs:  bs,
		URLs:   storage.NewResolver(cfg.PublicURL),
		Events: events,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	go func() {
		<-stop.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Printf("stopped")
}

func importTest(svc *exam.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	t := exam.Test{IsActive: true}
	if err := json.NewDecoder(f).Decode(&t); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	out, err := svc.PutTest(ctx, t)
	if err != nil {
		return err
	}
	log.Printf("imported test %s (%q, %d questions)", out.ID, out.Title, len(out.Questions()))
	return nil
}
