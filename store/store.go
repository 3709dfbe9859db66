// Package store is the structure store: the Survey → Section → Question →
// Option graph, the shared position reorder engine, and the conditional
// dependency validator. Every mutation runs in a single transaction and takes
// the acting user id explicitly for audit stamping.
package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// bumpSurveyVersion advances the survey's optimistic version token. Every
// structural mutation under a survey does this inside its transaction, so a
// caller holding a stale version gets a conflict instead of interleaving
// with a concurrent reorder.
func bumpSurveyVersion(ctx context.Context, tx *sql.Tx, surveyID int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE survey SET version = version + 1 WHERE id = ?`,
		surveyID,
	)
	return errors.Wrap(err, "bump survey version")
}
