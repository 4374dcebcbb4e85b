package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-fields/app"
	"github.com/mbolis/quick-fields/database"
	"github.com/mbolis/quick-fields/fieldtree"
	"github.com/mbolis/quick-fields/httpx"
	"github.com/mbolis/quick-fields/log"
	"github.com/mbolis/quick-fields/model"
)

func CreateField(app app.App, templates bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field := model.Field{}
		err := render.DecodeJSON(r.Body, &field)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if problem := checkFamily(&field, templates); problem != "" {
			httpx.LogInvalid(w, r, "create_field.instance", []string{problem})
			return
		}

		created, err := app.Fields.Create(r.Context(), &field)
		if err != nil {
			fieldError(w, r, "create_field", "", err)
			return
		}
		invalidateRendered(app, r)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func ListFields(app app.App, templates bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := app.Fields.List(r.Context(), r.URL.Query().Get("parent"), templates)
		if err != nil {
			httpx.LogInternalError(w, r, "db.list_fields", err)
			return
		}

		render.JSON(w, r, fields)
	}
}

func GetField(app app.App, templates bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		field, err := app.Fields.Get(r.Context(), id)
		if err != nil {
			fieldError(w, r, "get_field", id, err)
			return
		}
		if checkFamily(field, templates) != "" {
			httpx.LogNotFound(w, r, "get_field", id)
			return
		}

		render.JSON(w, r, field)
	}
}

func UpdateField(app app.App, templates bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		field := model.Field{}
		err := render.DecodeJSON(r.Body, &field)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if problem := checkFamily(&field, templates); problem != "" {
			httpx.LogInvalid(w, r, "update_field.instance", []string{problem})
			return
		}

		updated, err := app.Fields.Update(r.Context(), id, &field)
		if err != nil {
			fieldError(w, r, "update_field", id, err)
			return
		}
		invalidateRendered(app, r)

		render.JSON(w, r, updated)
	}
}

func DeleteField(app app.App, templates bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		field, err := app.Fields.Get(r.Context(), id)
		if err != nil {
			fieldError(w, r, "delete_field", id, err)
			return
		}
		if checkFamily(field, templates) != "" {
			httpx.LogNotFound(w, r, "delete_field", id)
			return
		}

		err = app.Fields.Delete(r.Context(), id)
		if err != nil {
			fieldError(w, r, "delete_field", id, err)
			return
		}
		invalidateRendered(app, r)

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetFieldAttrs lists the default attributes of every field type.
func GetFieldAttrs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, fieldtree.AttrsTable())
	}
}

// checkFamily tells what is wrong with f being served by the templates
// routes, or by the fields routes when templates is false.
func checkFamily(f *model.Field, templates bool) string {
	isTemplate := f.Instance == model.InstanceTemplate
	switch {
	case templates && !isTemplate:
		return "instance: must be \"template\""
	case !templates && isTemplate:
		return "instance: templates are managed under /fieldtemplates"
	}
	return ""
}

func fieldError(w http.ResponseWriter, r *http.Request, code string, id string, err error) {
	var invalid *database.InvalidError
	switch {
	case errors.As(err, &invalid):
		httpx.LogInvalid(w, r, code, invalid.Problems)
	case errors.Is(err, database.ErrNotFound):
		httpx.LogNotFound(w, r, code, id)
	case errors.Is(err, database.ErrConflict):
		httpx.LogStatusMsg(w, r, http.StatusConflict, log.DebugLevel, code, "%s", err)
	default:
		httpx.LogInternalError(w, r, "db."+code, err)
	}
}

// invalidateRendered drops the cached public trees after an edit. A failure
// only delays the edit on the public side until the entries expire.
func invalidateRendered(app app.App, r *http.Request) {
	if err := app.Rendered.Invalidate(r.Context()); err != nil {
		log.With("cache.invalidate", nil).Warn(err)
	}
}
