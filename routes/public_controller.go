package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"

	"github.com/mbolis/quick-fields/app"
	"github.com/mbolis/quick-fields/fieldtree"
	"github.com/mbolis/quick-fields/httpx"
	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
)

// PublicGetRenderedField serves the renderable tree of a questionnaire
// field, from the cache when possible.
func PublicGetRenderedField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		data, ok, err := app.Rendered.Get(r.Context(), id)
		if err != nil {
			log.With("cache.get", log.Fields{"field": id}).Warn(err)
		}
		if !ok {
			field, err := app.Fields.Get(r.Context(), id)
			if err != nil {
				fieldError(w, r, "get_rendered_field", id, err)
				return
			}
			if field.Instance == model.InstanceTemplate {
				httpx.LogNotFound(w, r, "get_rendered_field", id)
				return
			}

			data, err = json.Marshal(fieldtree.ParseFields(field))
			if err != nil {
				httpx.LogInternalError(w, r, "get_rendered_field.encode", err)
				return
			}
			if err = app.Rendered.Set(r.Context(), id, data); err != nil {
				log.With("cache.set", log.Fields{"field": id}).Warn(err)
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(data)
	}
}

type evaluateRequest struct {
	Answers fieldtree.Answers `json:"answers"`
}

// PublicEvaluateField reports which fields of a questionnaire are enabled
// by the given answers, the resulting score and whether submission is
// blocked.
func PublicEvaluateField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		req := evaluateRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		field, err := app.Fields.Get(r.Context(), id)
		if err != nil {
			fieldError(w, r, "evaluate_field", id, err)
			return
		}
		if field.Instance == model.InstanceTemplate {
			httpx.LogNotFound(w, r, "evaluate_field", id)
			return
		}

		render.JSON(w, r, fieldtree.ParseFields(field).Evaluate(req.Answers))
	}
}
