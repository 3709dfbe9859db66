package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/opinio-app/opinio/app"
	"github.com/opinio-app/opinio/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// public: fetch an active survey to fill, submit a response
	api.Get(`/surveys/{id:^\d+$}`, PublicGetSurveyById(app))
	api.Post(`/surveys/{id:^\d+$}/responses`, SubmitResponse(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.Config.TokenSecret))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
		r.Put(`/surveys/{id:^\d+$}`, UpdateSurvey(app))
		r.Delete(`/surveys/{id:^\d+$}`, DeleteSurvey(app))

		// structure
		r.Post(`/surveys/{id:^\d+$}/sections`, CreateSection(app))
		r.Put(`/sections/{id:^\d+$}`, UpdateSection(app))
		r.Patch(`/sections/{id:^\d+$}/position`, MoveSection(app))
		r.Delete(`/sections/{id:^\d+$}`, DeleteSection(app))

		r.Post(`/sections/{id:^\d+$}/questions`, CreateQuestion(app))
		r.Put(`/questions/{id:^\d+$}`, UpdateQuestion(app))
		r.Patch(`/questions/{id:^\d+$}/position`, MoveQuestion(app))
		r.Delete(`/questions/{id:^\d+$}`, DeleteQuestion(app))

		r.Post(`/questions/{id:^\d+$}/options`, CreateOption(app))
		r.Put(`/options/{id:^\d+$}`, UpdateOption(app))
		r.Patch(`/options/{id:^\d+$}/position`, MoveOption(app))
		r.Delete(`/options/{id:^\d+$}`, DeleteOption(app))

		// reporting
		r.Get(`/surveys/{id:^\d+$}/summary`, GetSurveySummary(app))
		r.Get(`/surveys/{id:^\d+$}/detail`, GetSurveyDetail(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
