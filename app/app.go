package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/mbolis/quick-fields/cache"
	"github.com/mbolis/quick-fields/config"
	"github.com/mbolis/quick-fields/database"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Fields   *database.Fields
	Rendered cache.Rendered
}
