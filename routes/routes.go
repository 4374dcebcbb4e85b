package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/quick-fields/app"
	"github.com/mbolis/quick-fields/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/fields/{id}/rendered", PublicGetRenderedField(app))
	api.Post("/fields/{id}/evaluate", PublicEvaluateField(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD fields
		r.Route("/fields", fieldRoutes(app, false))
		r.Route("/fieldtemplates", fieldRoutes(app, true))

		r.Get("/fieldattrs", GetFieldAttrs())
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func fieldRoutes(app app.App, templates bool) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", CreateField(app, templates))
		r.Get("/", ListFields(app, templates))
		r.Get("/{id}", GetField(app, templates))
		r.Put("/{id}", UpdateField(app, templates))
		r.Delete("/{id}", DeleteField(app, templates))
	}
}
