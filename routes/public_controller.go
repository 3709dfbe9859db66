package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/opinio-app/opinio/app"
	"github.com/opinio-app/opinio/httpx"
	"github.com/opinio-app/opinio/ingest"
	"github.com/opinio-app/opinio/log"
	"github.com/opinio-app/opinio/model"
)

func PublicGetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}

		survey, err := app.Store.SurveyStructure(r.Context(), surveyId)
		if err != nil {
			httpx.LogDomainError(w, "db.get_survey", err)
			return
		}
		if !survey.ActiveAt(time.Now()) {
			httpx.LogDomainError(w, "get_survey.window",
				model.UnavailableSurveyError{SurveyID: surveyId, Reason: "outside its active window"})
			return
		}

		render.JSON(w, r, survey)
	}
}

type submitPayload struct {
	Email      *string         `json:"email,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	Answers    []ingest.Answer `json:"answers"`
}

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}

		payload := submitPayload{}
		err := render.DecodeJSON(r.Body, &payload)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		header := ingest.Header{
			Email:      payload.Email,
			FinishedAt: payload.FinishedAt,
			IP:         strings.Split(r.RemoteAddr, ":")[0],
			UserAgent:  r.UserAgent(),
		}
		if payload.StartedAt != nil {
			header.StartedAt = *payload.StartedAt
		}
		// attributed submission when a valid token happens to be present
		if actorID, err := httpx.ActorID(r); err == nil {
			header.ActorID = &actorID
		}

		resp, err := app.Ingestor.Ingest(r.Context(), surveyId, header, payload.Answers)
		if err != nil {
			httpx.LogDomainError(w, "db.insert_response", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":    resp.ID,
			"token": resp.Token,
		})
	}
}
