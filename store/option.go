package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

func (st *Store) CreateOption(ctx context.Context, o *model.Option, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID int
	var kind model.Kind
	err = tx.QueryRowContext(ctx, `
		SELECT s.survey_id, q.kind
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE q.id = ? AND q.deleted = 0 AND s.deleted = 0`,
		o.QuestionID,
	).Scan(&surveyID, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "question", ID: o.QuestionID}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load question")
	}
	if !kind.RequiresOptions() {
		return model.ReferentialError{Reason: fmt.Sprintf("question kind %q does not take options", kind)}
	}

	o.Position, err = optionScope.nextPosition(ctx, tx, o.QuestionID)
	if err != nil {
		return pkgerrors.Wrap(err, "next option position")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO option (question_id, text, value, position, created_by)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		o.QuestionID,
		o.Text,
		o.Value,
		o.Position,
		actor,
	).Scan(&o.ID)
	if err != nil {
		return pkgerrors.Wrap(err, "insert option")
	}

	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) UpdateOption(ctx context.Context, o *model.Option, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID int
	err = tx.QueryRowContext(ctx, `
		SELECT s.survey_id
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE o.id = ? AND o.deleted = 0`,
		o.ID,
	).Scan(&surveyID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "option", ID: o.ID}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load option")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE option
		SET text = ?, value = ?, updated_by = ?
		WHERE id = ?`,
		o.Text,
		o.Value,
		actor,
		o.ID,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "update option")
	}

	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) MoveOption(ctx context.Context, id, target, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var questionID, surveyID, current int
	err = tx.QueryRowContext(ctx, `
		SELECT o.question_id, s.survey_id, o.position
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE o.id = ? AND o.deleted = 0`,
		id,
	).Scan(&questionID, &surveyID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "option", ID: id}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load option")
	}

	if target == current {
		return nil
	}
	count, err := optionScope.siblingCount(ctx, tx, questionID)
	if err != nil {
		return pkgerrors.Wrap(err, "count options")
	}
	if target < 1 || target > count {
		return model.OrderingBoundsError{Target: target, Count: count}
	}

	if err := optionScope.move(ctx, tx, questionID, id, current, target); err != nil {
		return pkgerrors.Wrap(err, "move option")
	}
	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteOption logically deletes an option, reclaims its position slot, and
// clears the whole condition of any question that pointed at it.
func (st *Store) DeleteOption(ctx context.Context, id, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var questionID, surveyID, position int
	err = tx.QueryRowContext(ctx, `
		SELECT o.question_id, s.survey_id, o.position
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE o.id = ? AND o.deleted = 0`,
		id,
	).Scan(&questionID, &surveyID, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "option", ID: id}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load option")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE question
		SET parent_question_id = NULL, parent_value = NULL, parent_option_id = NULL
		WHERE parent_option_id = ?`,
		id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "detach conditions")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE option SET deleted = 1, deleted_by = ? WHERE id = ?`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete option")
	}

	if err := optionScope.closeGap(ctx, tx, questionID, position); err != nil {
		return pkgerrors.Wrap(err, "close option gap")
	}
	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) ListOptions(ctx context.Context, questionID int) ([]model.Option, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, question_id, text, value, position
		FROM option
		WHERE question_id = ? AND deleted = 0
		ORDER BY position`,
		questionID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list options")
	}
	defer rows.Close()

	options := []model.Option{}
	for rows.Next() {
		o := model.Option{}
		err = rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Value, &o.Position)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan option")
		}
		options = append(options, o)
	}
	return options, rows.Err()
}
