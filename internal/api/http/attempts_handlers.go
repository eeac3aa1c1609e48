package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/ielts-listening/internal/exam"
	"github.com/mind-engage/ielts-listening/internal/rbac"
)

// Answers arrive as question number -> text. A JSON null is the empty answer.
type answersPayload map[string]*string

func (p answersPayload) toMap() map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		if v != nil {
			out[k] = *v
		} else {
			out[k] = ""
		}
	}
	return out
}

type progressRequest struct {
	Answers       answersPayload `json:"answers" validate:"omitempty,max=200,dive,keys,numeric,endkeys"`
	TimeRemaining *int           `json:"time_remaining"`
	CurrentPart   *int           `json:"current_part"`
}

type submitRequest struct {
	Answers       answersPayload `json:"answers" validate:"omitempty,max=200,dive,keys,numeric,endkeys"`
	TimeRemaining *int           `json:"time_remaining"`
}

// POST /listening/tests/{testID}/start
// Resumes the caller's attempt in progress if there is one.
func StartAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Start(r.Context(), chi.URLParam(r, "testID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /listening/attempts/{attemptID}/progress
func SaveProgressHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req progressRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		a, err := svc.SaveProgress(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()), exam.ProgressUpdate{
			Answers:       req.Answers.toMap(),
			TimeRemaining: req.TimeRemaining,
			CurrentPart:   req.CurrentPart,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /listening/attempts/{attemptID}/audio-played/{part}
func MarkAudioPlayedHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, err := strconv.Atoi(chi.URLParam(r, "part"))
		if err != nil {
			writeError(w, &exam.ValidationError{Field: "part_number", Msg: "must be a number"})
			return
		}
		a, err := svc.MarkAudioPlayed(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()), part)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"part_audio_played": a.PartAudioPlayed})
	}
}

// POST /listening/attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := svc.Submit(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()), exam.SubmitRequest{
			Answers:       req.Answers.toMap(),
			TimeRemaining: req.TimeRemaining,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /listening/attempts?limit=15&offset=0
func ListMyAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListAttempts(r.Context(), rbac.SubjectFromContext(r.Context()),
			parseIntDefault(q.Get("limit"), 15), parseIntDefault(q.Get("offset"), 0))
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

// GET /listening/attempts/{attemptID}
func GetAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.AttemptDetail(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
