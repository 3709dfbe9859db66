package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

// rank is a question's survey-global ordinal: section position first, then
// question position within the section. Dependency direction is judged on it.
type rank struct {
	section  int
	question int
}

func (r rank) before(o rank) bool {
	return r.section < o.section || (r.section == o.section && r.question < o.question)
}

func (st *Store) CreateQuestion(ctx context.Context, q *model.Question, actor int) error {
	if !q.Kind.Valid() {
		return model.ReferentialError{Reason: fmt.Sprintf("unknown question kind %q", q.Kind)}
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID, sectionPos int
	err = tx.QueryRowContext(ctx, `
		SELECT survey_id, position FROM section WHERE id = ? AND deleted = 0`,
		q.SectionID,
	).Scan(&surveyID, &sectionPos)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "section", ID: q.SectionID}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load section")
	}

	q.Position, err = questionScope.nextPosition(ctx, tx, q.SectionID)
	if err != nil {
		return pkgerrors.Wrap(err, "next question position")
	}

	if err := validateDependency(ctx, tx, q, rank{sectionPos, q.Position}, surveyID); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO question (
			section_id, text, kind, position, required, help_text,
			number_min, number_max, date_min, date_max, time_min, time_max,
			parent_question_id, parent_value, parent_option_id, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		q.SectionID, q.Text, q.Kind, q.Position, q.Required, q.HelpText,
		q.NumberMin, q.NumberMax, q.DateMin, q.DateMax, q.TimeMin, q.TimeMax,
		q.ParentQuestionID, q.ParentValue, q.ParentOptionID, actor,
	).Scan(&q.ID)
	if err != nil {
		return pkgerrors.Wrap(err, "insert question")
	}

	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateQuestion rewrites a question's fields in place. Section and position
// are not updatable here; repositioning goes through MoveQuestion.
func (st *Store) UpdateQuestion(ctx context.Context, q *model.Question, actor int) error {
	if !q.Kind.Valid() {
		return model.ReferentialError{Reason: fmt.Sprintf("unknown question kind %q", q.Kind)}
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var surveyID, sectionPos int
	err = tx.QueryRowContext(ctx, `
		SELECT s.survey_id, s.position, q.section_id, q.position
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE q.id = ? AND q.deleted = 0 AND s.deleted = 0`,
		q.ID,
	).Scan(&surveyID, &sectionPos, &q.SectionID, &q.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "question", ID: q.ID}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load question")
	}

	if err := validateDependency(ctx, tx, q, rank{sectionPos, q.Position}, surveyID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE question
		SET
			text = ?, kind = ?, required = ?, help_text = ?,
			number_min = ?, number_max = ?, date_min = ?, date_max = ?,
			time_min = ?, time_max = ?,
			parent_question_id = ?, parent_value = ?, parent_option_id = ?,
			updated_by = ?
		WHERE id = ?`,
		q.Text, q.Kind, q.Required, q.HelpText,
		q.NumberMin, q.NumberMax, q.DateMin, q.DateMax,
		q.TimeMin, q.TimeMax,
		q.ParentQuestionID, q.ParentValue, q.ParentOptionID,
		actor, q.ID,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "update question")
	}

	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

// MoveQuestion repositions a question within its section. Any dependency the
// move would turn forward is detached silently rather than the move being
// rejected; see detachForwardDependencies.
func (st *Store) MoveQuestion(ctx context.Context, id, target, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var sectionID, surveyID, current int
	err = tx.QueryRowContext(ctx, `
		SELECT q.section_id, s.survey_id, q.position
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE q.id = ? AND q.deleted = 0 AND s.deleted = 0`,
		id,
	).Scan(&sectionID, &surveyID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "question", ID: id}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load question")
	}

	if target == current {
		return nil
	}
	count, err := questionScope.siblingCount(ctx, tx, sectionID)
	if err != nil {
		return pkgerrors.Wrap(err, "count questions")
	}
	if target < 1 || target > count {
		return model.OrderingBoundsError{Target: target, Count: count}
	}

	if err := questionScope.move(ctx, tx, sectionID, id, current, target); err != nil {
		return pkgerrors.Wrap(err, "move question")
	}
	if err := detachForwardDependencies(ctx, tx, surveyID); err != nil {
		return err
	}
	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) DeleteQuestion(ctx context.Context, id, actor int) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var sectionID, surveyID, position int
	err = tx.QueryRowContext(ctx, `
		SELECT q.section_id, s.survey_id, q.position
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE q.id = ? AND q.deleted = 0`,
		id,
	).Scan(&sectionID, &surveyID, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundError{Entity: "question", ID: id}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load question")
	}

	// cascade: questions conditioned on this one lose their condition
	_, err = tx.ExecContext(ctx, `
		UPDATE question
		SET parent_question_id = NULL, parent_value = NULL, parent_option_id = NULL
		WHERE parent_question_id = ?`,
		id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "detach dependencies")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE option SET deleted = 1, deleted_by = ?
		WHERE question_id = ? AND deleted = 0`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete options")
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE question SET deleted = 1, deleted_by = ? WHERE id = ?`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete question")
	}

	if err := questionScope.closeGap(ctx, tx, sectionID, position); err != nil {
		return pkgerrors.Wrap(err, "close question gap")
	}
	if err := bumpSurveyVersion(ctx, tx, surveyID); err != nil {
		return err
	}
	return tx.Commit()
}

func (st *Store) GetQuestion(ctx context.Context, id int) (q model.Question, err error) {
	err = st.db.QueryRowContext(ctx, `
		SELECT
			id, section_id, text, kind, position, required, help_text,
			number_min, number_max, date_min, date_max, time_min, time_max,
			parent_question_id, parent_value, parent_option_id
		FROM question
		WHERE id = ? AND deleted = 0`,
		id,
	).Scan(
		&q.ID, &q.SectionID, &q.Text, &q.Kind, &q.Position, &q.Required, &q.HelpText,
		&q.NumberMin, &q.NumberMax, &q.DateMin, &q.DateMax, &q.TimeMin, &q.TimeMax,
		&q.ParentQuestionID, &q.ParentValue, &q.ParentOptionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.NotFoundError{Entity: "question", ID: id}
	}
	return
}

// validateDependency enforces the conditional-display rules on a question
// about to be written: the parent must live in the same survey strictly
// before the child, and the condition must be an option for option-backed
// parent kinds or a free-form value otherwise. The question's condition
// fields are normalized in place when no parent is set.
func validateDependency(ctx context.Context, tx *sql.Tx, q *model.Question, childRank rank, surveyID int) error {
	if q.ParentQuestionID == nil {
		q.ParentValue = nil
		q.ParentOptionID = nil
		return nil
	}
	parentID := *q.ParentQuestionID
	if parentID == q.ID {
		return model.ReferentialError{Reason: "question cannot depend on itself"}
	}

	var parentSurvey int
	var parentRank rank
	var parentKind model.Kind
	err := tx.QueryRowContext(ctx, `
		SELECT s.survey_id, s.position, q.position, q.kind
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE q.id = ? AND q.deleted = 0 AND s.deleted = 0`,
		parentID,
	).Scan(&parentSurvey, &parentRank.section, &parentRank.question, &parentKind)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReferentialError{Reason: fmt.Sprintf("parent question %d not found", parentID)}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load parent question")
	}

	if parentSurvey != surveyID {
		return model.ReferentialError{Reason: fmt.Sprintf("parent question %d belongs to a different survey", parentID)}
	}
	if !parentRank.before(childRank) {
		return model.ReferentialError{Reason: fmt.Sprintf("parent question %d does not come before the dependent question", parentID)}
	}

	if parentKind.RequiresOptions() {
		if q.ParentOptionID == nil || q.ParentValue != nil {
			return model.ReferentialError{Reason: "condition on an option-backed question must name an option"}
		}
		var one int
		err = tx.QueryRowContext(ctx, `
			SELECT 1 FROM option WHERE id = ? AND question_id = ? AND deleted = 0`,
			*q.ParentOptionID, parentID,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ReferentialError{Reason: fmt.Sprintf("option %d does not belong to parent question %d", *q.ParentOptionID, parentID)}
		}
		if err != nil {
			return pkgerrors.Wrap(err, "check parent option")
		}
	} else {
		if q.ParentValue == nil || q.ParentOptionID != nil {
			return model.ReferentialError{Reason: "condition on a free-form question must carry a value"}
		}
	}
	return nil
}

// detachForwardDependencies clears every dependency in the survey whose
// parent no longer ranks strictly before its child. Repositioning silently
// strips such conditions instead of rejecting the move; this mirrors the
// historical behavior of reordering, questionable as it is.
func detachForwardDependencies(ctx context.Context, tx *sql.Tx, surveyID int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE question
		SET parent_question_id = NULL, parent_value = NULL, parent_option_id = NULL
		WHERE id IN (
			SELECT c.id
			FROM question c
			INNER JOIN section cs ON (cs.id = c.section_id)
			INNER JOIN question p ON (p.id = c.parent_question_id)
			INNER JOIN section ps ON (ps.id = p.section_id)
			WHERE cs.survey_id = ?
				AND c.deleted = 0
				AND (ps.position > cs.position
					OR (ps.position = cs.position AND p.position >= c.position))
		)`,
		surveyID,
	)
	return pkgerrors.Wrap(err, "detach forward dependencies")
}
