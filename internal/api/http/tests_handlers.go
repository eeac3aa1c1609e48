package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/ielts-listening/internal/exam"
	"github.com/mind-engage/ielts-listening/internal/rbac"
	"github.com/mind-engage/ielts-listening/internal/storage"
)

// GET /listening/tests?limit=&offset=
func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListTests(r.Context(), rbac.SubjectFromContext(r.Context()), exam.ListOpts{
			Limit:  parseIntDefault(q.Get("limit"), 0),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.TestSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /listening/tests/{testID}
// Answer keys are stripped; media paths are resolved to fetchable URLs.
func GetTestHandler(svc *exam.Service, urls storage.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, withMediaURLs(t, urls))
	}
}

func withMediaURLs(t exam.Test, urls storage.Resolver) exam.Test {
	parts := make([]exam.Part, len(t.Parts))
	for i, p := range t.Parts {
		p.AudioURL = urls.URL(p.AudioPath)
		p.ImageURL = urls.URL(p.ImagePath)
		parts[i] = p
	}
	t.Parts = parts
	return t
}

// GET /admin/listening-tests?search=&limit=50&offset=0
// Inactive tests are included, with part, question and attempt counts.
func AdminListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListAllTests(r.Context(), exam.ListOpts{
			Search: q.Get("search"),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.TestSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /admin/listening-tests/{testID}
// The full test, answer keys included.
func AdminGetTestHandler(svc *exam.Service, urls storage.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.FullTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, withMediaURLs(t, urls))
	}
}

// POST /admin/listening-tests        creates a test
// PUT  /admin/listening-tests/{testID} replaces one
// A test authored without is_active is published.
func PutTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := exam.Test{IsActive: true}
		if err := decode(r, &t); err != nil {
			writeError(w, err)
			return
		}
		code := http.StatusCreated
		if id := chi.URLParam(r, "testID"); id != "" {
			t.ID = id
			code = http.StatusOK
		}
		out, err := svc.PutTest(r.Context(), t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, code, out)
	}
}

// DELETE /admin/listening-tests/{testID}
func DeleteTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTest(r.Context(), chi.URLParam(r, "testID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /admin/listening-tests/{testID}/results?limit=50&offset=0
func TestResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.TestResults(r.Context(), chi.URLParam(r, "testID"),
			parseIntDefault(q.Get("limit"), 50), parseIntDefault(q.Get("offset"), 0))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.Attempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
