package routes

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/opinio-app/opinio/app"
	"github.com/opinio-app/opinio/httpx"
	"github.com/opinio-app/opinio/log"
	"github.com/opinio-app/opinio/model"
)

// movePayload is the body of the PATCH .../position endpoints.
type movePayload struct {
	Position int `json:"position"`
}

func CreateSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		section := model.Section{}
		err := render.DecodeJSON(r.Body, &section)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		section.SurveyID = surveyId

		err = app.Store.CreateSection(r.Context(), &section, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.insert_section", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, section)
	}
}

func UpdateSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sectionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		section := model.Section{}
		err := render.DecodeJSON(r.Body, &section)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		section.ID = sectionId

		err = app.Store.UpdateSection(r.Context(), &section, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.update_section", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func MoveSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sectionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		move := movePayload{}
		err := render.DecodeJSON(r.Body, &move)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.MoveSection(r.Context(), sectionId, move.Position, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.move_section", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sectionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		err := app.Store.DeleteSection(r.Context(), sectionId, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.delete_section", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sectionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		question := model.Question{}
		err := render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		question.SectionID = sectionId

		err = app.Store.CreateQuestion(r.Context(), &question, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.insert_question", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, question)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		question := model.Question{}
		err := render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		question.ID = questionId

		err = app.Store.UpdateQuestion(r.Context(), &question, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.update_question", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func MoveQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		move := movePayload{}
		err := render.DecodeJSON(r.Body, &move)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.MoveQuestion(r.Context(), questionId, move.Position, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.move_question", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		err := app.Store.DeleteQuestion(r.Context(), questionId, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.delete_question", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		option := model.Option{}
		err := render.DecodeJSON(r.Body, &option)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		option.QuestionID = questionId

		err = app.Store.CreateOption(r.Context(), &option, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.insert_option", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, option)
	}
}

func UpdateOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		optionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		option := model.Option{}
		err := render.DecodeJSON(r.Body, &option)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		option.ID = optionId

		err = app.Store.UpdateOption(r.Context(), &option, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.update_option", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func MoveOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		optionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		move := movePayload{}
		err := render.DecodeJSON(r.Body, &move)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Store.MoveOption(r.Context(), optionId, move.Position, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.move_option", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		optionId, ok := urlID(w, r)
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		err := app.Store.DeleteOption(r.Context(), optionId, actorID)
		if err != nil {
			httpx.LogDomainError(w, "db.delete_option", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
