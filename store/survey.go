package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

func (st *Store) CreateSurvey(ctx context.Context, s *model.Survey, actor int) error {
	err := st.db.QueryRowContext(ctx, `
		INSERT INTO survey (client_id, name, description, questionnaire, starts_on, ends_on, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		s.ClientID,
		s.Name,
		s.Description,
		s.Questionnaire,
		s.StartsOn,
		s.EndsOn,
		actor,
	).Scan(&s.ID)
	return pkgerrors.Wrap(err, "insert survey")
}

func (st *Store) GetSurvey(ctx context.Context, id int) (s model.Survey, err error) {
	err = st.db.QueryRowContext(ctx, `
		SELECT id, client_id, version, name, description, questionnaire, starts_on, ends_on
		FROM survey
		WHERE id = ? AND deleted = 0`,
		id,
	).Scan(&s.ID, &s.ClientID, &s.Version, &s.Name, &s.Description, &s.Questionnaire, &s.StartsOn, &s.EndsOn)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.NotFoundError{Entity: "survey", ID: id}
	}
	return
}

func (st *Store) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, client_id, version, name, description, questionnaire, starts_on, ends_on
		FROM survey
		WHERE deleted = 0
		ORDER BY id`)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s := model.Survey{}
		err = rows.Scan(&s.ID, &s.ClientID, &s.Version, &s.Name, &s.Description, &s.Questionnaire, &s.StartsOn, &s.EndsOn)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan survey")
		}
		surveys = append(surveys, s)
	}
	return surveys, rows.Err()
}

// UpdateSurvey writes header fields under the optimistic lock carried in
// s.Version. A stale version yields a ConflictError.
func (st *Store) UpdateSurvey(ctx context.Context, s *model.Survey, actor int) error {
	res, err := st.db.ExecContext(ctx, `
		UPDATE survey
		SET
			name = ?,
			description = ?,
			questionnaire = ?,
			starts_on = ?,
			ends_on = ?,
			updated_by = ?,
			version = version + 1
		WHERE	id = ?
			AND version = ?
			AND deleted = 0`,
		s.Name,
		s.Description,
		s.Questionnaire,
		s.StartsOn,
		s.EndsOn,
		actor,
		s.ID,
		s.Version,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "update survey")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "update survey verify")
	}
	if n < 1 {
		if _, err := st.GetSurvey(ctx, s.ID); err != nil {
			return err
		}
		return model.ConflictError{Entity: "survey", ID: s.ID}
	}
	s.Version++
	return nil
}

func (st *Store) DeleteSurvey(ctx context.Context, id, actor int) error {
	res, err := st.db.ExecContext(ctx, `
		UPDATE survey
		SET deleted = 1, deleted_by = ?
		WHERE id = ? AND deleted = 0`,
		actor, id,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "delete survey")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "delete survey verify")
	}
	if n < 1 {
		return model.NotFoundError{Entity: "survey", ID: id}
	}
	return nil
}

// SurveyStructure loads the whole live entity graph under one survey, ordered
// by position at every level. This is the schema a respondent fills and the
// catalog the aggregation engine reads back.
func (st *Store) SurveyStructure(ctx context.Context, id int) (model.Survey, error) {
	s, err := st.GetSurvey(ctx, id)
	if err != nil {
		return s, err
	}

	sectionRows, err := st.db.QueryContext(ctx, `
		SELECT id, survey_id, name, description, position
		FROM section
		WHERE survey_id = ? AND deleted = 0
		ORDER BY position`,
		id,
	)
	if err != nil {
		return s, pkgerrors.Wrap(err, "load sections")
	}
	defer sectionRows.Close()

	sectionIdx := map[int]int{}
	for sectionRows.Next() {
		sec := model.Section{}
		err = sectionRows.Scan(&sec.ID, &sec.SurveyID, &sec.Name, &sec.Description, &sec.Position)
		if err != nil {
			return s, pkgerrors.Wrap(err, "scan section")
		}
		sectionIdx[sec.ID] = len(s.Sections)
		s.Sections = append(s.Sections, sec)
	}
	if err = sectionRows.Err(); err != nil {
		return s, err
	}

	questionRows, err := st.db.QueryContext(ctx, `
		SELECT
			q.id, q.section_id, q.text, q.kind, q.position, q.required, q.help_text,
			q.number_min, q.number_max, q.date_min, q.date_max, q.time_min, q.time_max,
			q.parent_question_id, q.parent_value, q.parent_option_id
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE s.survey_id = ? AND q.deleted = 0 AND s.deleted = 0
		ORDER BY s.position, q.position`,
		id,
	)
	if err != nil {
		return s, pkgerrors.Wrap(err, "load questions")
	}
	defer questionRows.Close()

	questionAt := map[int][2]int{}
	for questionRows.Next() {
		q := model.Question{}
		err = questionRows.Scan(
			&q.ID, &q.SectionID, &q.Text, &q.Kind, &q.Position, &q.Required, &q.HelpText,
			&q.NumberMin, &q.NumberMax, &q.DateMin, &q.DateMax, &q.TimeMin, &q.TimeMax,
			&q.ParentQuestionID, &q.ParentValue, &q.ParentOptionID,
		)
		if err != nil {
			return s, pkgerrors.Wrap(err, "scan question")
		}
		si := sectionIdx[q.SectionID]
		questionAt[q.ID] = [2]int{si, len(s.Sections[si].Questions)}
		s.Sections[si].Questions = append(s.Sections[si].Questions, q)
	}
	if err = questionRows.Err(); err != nil {
		return s, err
	}

	optionRows, err := st.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.text, o.value, o.position
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE s.survey_id = ? AND o.deleted = 0 AND q.deleted = 0 AND s.deleted = 0
		ORDER BY o.position`,
		id,
	)
	if err != nil {
		return s, pkgerrors.Wrap(err, "load options")
	}
	defer optionRows.Close()

	for optionRows.Next() {
		o := model.Option{}
		err = optionRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Value, &o.Position)
		if err != nil {
			return s, pkgerrors.Wrap(err, "scan option")
		}
		at, ok := questionAt[o.QuestionID]
		if !ok {
			continue
		}
		q := &s.Sections[at[0]].Questions[at[1]]
		q.Options = append(q.Options, o)
	}
	return s, optionRows.Err()
}
