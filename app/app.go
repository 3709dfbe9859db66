package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/opinio-app/opinio/config"
	"github.com/opinio-app/opinio/ingest"
	"github.com/opinio-app/opinio/stats"
	"github.com/opinio-app/opinio/store"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Store    *store.Store
	Ingestor *ingest.Ingestor
	Reporter *stats.Reporter
}

func New(db *sql.DB, bearerServer *oauth.BearerServer, cfg config.Config) App {
	return App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		Store:        store.New(db),
		Ingestor:     ingest.New(db),
		Reporter:     stats.New(db),
	}
}
