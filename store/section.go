package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

func (st *Store) CreateSection(ctx context.Context, sec *model.Section, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := surveyExists(ctx, tx, sec.SurveyID); err != nil {
		return err
	}

	sec.Position, err = sectionScope.nextPosition(ctx, tx, sec.SurveyID)
	if err != nil {
		return pkgerrors.Wrap(err, "next section position")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO section (survey_id, name, description, position, created_by)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		sec.SurveyID,
		sec.Name,
		sec.Description,
		sec.Position,
		actor,
	).Scan(&sec.ID)
	if err != nil {
		return pkgerrors.Wrap(err, "insert section")
	}

	if err := bumpSurveyVersion(ctx, tx, sec.SurveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) UpdateSection(ctx context.Context, sec *model.Section, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID int
	err = tx.QueryRowContext(ctx, `
		SELECT survey_id FROM section WHERE id = ? AND deleted = 0`,
		sec.ID,
	).Scan(&surveyID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "section", ID: sec.ID}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load section")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE section
		SET name = ?, description = ?, updated_by = ?
		WHERE id = ?`,
		sec.Name,
		sec.Description,
		actor,
		sec.ID,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "update section")
	}

	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

// MoveSection repositions a section within its survey. Dependencies between
// questions of different sections follow survey-global ordering, so a section
// move can make one forward; those are detached like on a question move.
func (st *Store) MoveSection(ctx context.Context, id, target, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID, current int
	err = tx.QueryRowContext(ctx, `
		SELECT survey_id, position FROM section WHERE id = ? AND deleted = 0`,
		id,
	).Scan(&surveyID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "section", ID: id}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load section")
	}

	if target == current {
		return nil
	}
	count, err := sectionScope.siblingCount(ctx, tx, surveyID)
	if err != nil {
		return pkgerrors.Wrap(err, "count sections")
	}
	if target < 1 || target > count {
		return model.OrderingBoundsError{Target: target, Count: count}
	}

	if err := sectionScope.move(ctx, tx, surveyID, id, current, target); err != nil {
		return pkgerrors.Wrap(err, "move section")
	}
	if err := detachForwardDependencies(ctx, tx, surveyID); err != nil {
		return err
	}
	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSection logically deletes a section with everything under it, clears
// conditions pointing into it from other sections, and reclaims its position
// slot.
func (st *Store) DeleteSection(ctx context.Context, id, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID, position int
	err = tx.QueryRowContext(ctx, `
		SELECT survey_id, position FROM section WHERE id = ? AND deleted = 0`,
		id,
	).Scan(&surveyID, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "section", ID: id}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load section")
	}

	// cascade: conditions of surviving questions referencing this section's questions
	_, err = tx.ExecContext(ctx, `
		UPDATE question
		SET parent_question_id = NULL, parent_value = NULL, parent_option_id = NULL
		WHERE parent_question_id IN (SELECT id FROM question WHERE section_id = ?)`,
		id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "detach dependencies")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE option SET deleted = 1, deleted_by = ?
		WHERE deleted = 0
			AND question_id IN (SELECT id FROM question WHERE section_id = ?)`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete options")
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE question SET deleted = 1, deleted_by = ?
		WHERE section_id = ? AND deleted = 0`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete questions")
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE section SET deleted = 1, deleted_by = ? WHERE id = ?`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete section")
	}

	if err := sectionScope.closeGap(ctx, tx, surveyID, position); err != nil {
		return pkgerrors.Wrap(err, "close section gap")
	}
	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) ListSections(ctx context.Context, surveyID int) ([]model.Section, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, survey_id, name, description, position
		FROM section
		WHERE survey_id = ? AND deleted = 0
		ORDER BY position`,
		surveyID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list sections")
	}
	defer rows.Close()

	sections := []model.Section{}
	for rows.Next() {
		sec := model.Section{}
		err = rows.Scan(&sec.ID, &sec.SurveyID, &sec.Name, &sec.Description, &sec.Position)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan section")
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

func surveyExists(ctx context.Context, tx *sql.Tx, id int) error {
	var one int
	err := tx.QueryRowContext(ctx, `
		SELECT 1 FROM survey WHERE id = ? AND deleted = 0`,
		id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "survey", ID: id}
	}
	return pkgerrors.Wrap(err, "check survey")
}
