package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/ielts-listening/internal/auth/middleware"
	"github.com/mind-engage/ielts-listening/internal/exam"
	"github.com/mind-engage/ielts-listening/internal/rbac"
	"github.com/mind-engage/ielts-listening/internal/storage"
)

type Deps struct {
	Service  *exam.Service
	Auth     *auth.AuthService
	Accounts auth.Accounts
	Blobs    storage.BlobStore
	URLs     storage.Resolver
	Events   EventSource // optional
}

// Mount registers the API on r. Everything except login and health checks
// needs a bearer token; permissions come from the rbac default policy.
func Mount(r chi.Router, d Deps) {
	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Accounts))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.Route("/assets", func(ar chi.Router) {
			MountAssets(ar, d.Blobs)
		})

		pr.Route("/listening", func(lr chi.Router) {
			lr.With(rbac.Require("test:view")).Get("/tests", ListTestsHandler(d.Service))
			lr.With(rbac.Require("test:view")).Get("/tests/{testID}", GetTestHandler(d.Service, d.URLs))
			lr.With(rbac.Require("attempt:create")).Post("/tests/{testID}/start", StartAttemptHandler(d.Service))

			lr.With(rbac.Require("attempt:save")).Post("/attempts/{attemptID}/progress", SaveProgressHandler(d.Service))
			lr.With(rbac.Require("attempt:save")).Post("/attempts/{attemptID}/audio-played/{part}", MarkAudioPlayedHandler(d.Service))
			lr.With(rbac.Require("attempt:submit")).Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Service))
			lr.With(rbac.Require("attempt:view-own")).Get("/attempts", ListMyAttemptsHandler(d.Service))
			lr.With(rbac.Require("attempt:view-own")).Get("/attempts/{attemptID}", GetAttemptHandler(d.Service))
		})

		pr.Route("/admin", func(ar chi.Router) {
			staff := rbac.RequireAny("test:create", "results:view")
			ar.With(staff).Get("/listening-tests", AdminListTestsHandler(d.Service))
			ar.With(staff).Get("/listening-tests/{testID}", AdminGetTestHandler(d.Service, d.URLs))
			ar.With(rbac.Require("test:create")).Post("/listening-tests", PutTestHandler(d.Service))
			ar.With(rbac.Require("test:create")).Put("/listening-tests/{testID}", PutTestHandler(d.Service))
			ar.With(rbac.Require("test:delete")).Delete("/listening-tests/{testID}", DeleteTestHandler(d.Service))
			ar.With(rbac.Require("results:view")).Get("/listening-tests/{testID}/results", TestResultsHandler(d.Service))
			ar.Route("/assets", func(up chi.Router) {
				up.Use(rbac.Require("test:create"))
				MountAssetUploads(up, d.Blobs, d.URLs)
			})
			if d.Events != nil {
				ar.With(rbac.Require("events:view")).Get("/events", ListEventsHandler(d.Events))
			}
		})
	})
}
