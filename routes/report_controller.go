package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/opinio-app/opinio/app"
	"github.com/opinio-app/opinio/httpx"
	"github.com/opinio-app/opinio/log"
)

// dateWindow parses the optional from/to query parameters (YYYY-MM-DD).
// The "to" bound is inclusive of the whole day.
func dateWindow(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.from")
			return nil, nil, false
		}
		from = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.to")
			return nil, nil, false
		}
		t = t.Add(24*time.Hour - time.Second)
		to = &t
	}
	return from, to, true
}

func GetSurveySummary(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		from, to, ok := dateWindow(w, r)
		if !ok {
			return
		}

		if _, err := app.Store.GetSurvey(r.Context(), surveyId); err != nil {
			httpx.LogDomainError(w, "db.get_survey", err)
			return
		}

		summaries, err := app.Reporter.Summarize(r.Context(), surveyId, from, to)
		if err != nil {
			httpx.LogDomainError(w, "db.get_summary", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"questions": summaries,
		})
	}
}

func GetSurveyDetail(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		from, to, ok := dateWindow(w, r)
		if !ok {
			return
		}

		if _, err := app.Store.GetSurvey(r.Context(), surveyId); err != nil {
			httpx.LogDomainError(w, "db.get_survey", err)
			return
		}

		rows, err := app.Reporter.Detail(r.Context(), surveyId, from, to)
		if err != nil {
			httpx.LogDomainError(w, "db.get_detail", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"rows": rows,
		})
	}
}
