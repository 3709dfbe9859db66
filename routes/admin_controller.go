package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/opinio-app/opinio/app"
	"github.com/opinio-app/opinio/httpx"
	"github.com/opinio-app/opinio/log"
	"github.com/opinio-app/opinio/model"
)

// urlID parses the {id} URL parameter; on failure it has already written the
// 400 response and returns ok = false.
func urlID(w http.ResponseWriter, r *http.Request) (id int, ok bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return 0, false
	}
	return id, true
}

// actor resolves the authenticated user's id for audit stamping; on failure
// it has already written the 401 response.
func actor(w http.ResponseWriter, r *http.Request) (id int, ok bool) {
	id, err := httpx.ActorID(r)
	if err != nil {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "request.actor")
		return 0, false
	}
	return id, true
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.CreateSurvey(r.Context(), &survey, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.insert_survey", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": survey.ID,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Store.ListSurveys(r.Context())
		if err != nil {
			httpx.LogDomainError(w, "db.get_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
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

		render.JSON(w, r, survey)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		survey.ID = surveyId

		err = app.Store.UpdateSurvey(r.Context(), &survey, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.update_survey", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		err := app.Store.DeleteSurvey(r.Context(), surveyId, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.delete_survey", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
