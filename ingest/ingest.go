// Package ingest accepts a batch of submitted answers for one completed
// survey instance, normalizes each against its question's declared kind, and
// persists header, details and option selections as one atomic unit.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

type Ingestor struct {
	db *sql.DB
}

func New(db *sql.DB) *Ingestor {
	return &Ingestor{db: db}
}

// Header carries the submission-level fields of one response.
type Header struct {
	Email      *string
	ActorID    *int
	StartedAt  time.Time
	FinishedAt *time.Time
	IP         string
	UserAgent  string
}

// Answer is one submitted answer as decoded from the request: a scalar value
// for most kinds, a set of option ids for multi-select questions.
type Answer struct {
	QuestionID int   `json:"questionId"`
	Value      any   `json:"value,omitempty"`
	OptionIDs  []int `json:"optionIds,omitempty"`
}

// question rows the dispatcher needs, keyed by id for the target survey
type questionInfo struct {
	text      string
	kind      model.Kind
	numberMin *float64
	numberMax *float64
}

// detail is the normalized storage shape of one answer: at most one scalar
// slot populated, or none for multi-select.
type detail struct {
	text      *string
	number    *float64
	date      *time.Time
	timeOfDay *string
	boolean   *bool
	option    *int
}

func (d detail) empty() bool {
	return d.text == nil && d.number == nil && d.date == nil &&
		d.timeOfDay == nil && d.boolean == nil && d.option == nil
}

// Ingest validates survey availability, normalizes every answer, and commits
// the whole submission in one transaction. A numeric range violation aborts
// everything; answers for questions outside the survey are skipped silently;
// unparsable scalars degrade to empty and produce no row.
func (ing *Ingestor) Ingest(ctx context.Context, surveyID int, header Header, answers []Answer) (model.ResponseHeader, error) {
	resp := model.ResponseHeader{SurveyID: surveyID}

	tx, err := ing.db.BeginTx(ctx, nil)
	if err != nil {
		return resp, pkgerrors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := checkAvailable(ctx, tx, surveyID); err != nil {
		return resp, err
	}

	questions, err := loadQuestions(ctx, tx, surveyID)
	if err != nil {
		return resp, err
	}
	optionOwner, err := loadOptionOwners(ctx, tx, surveyID)
	if err != nil {
		return resp, err
	}

	resp.Token = uuid.NewString()
	resp.Email = header.Email
	resp.ActorID = header.ActorID
	resp.StartedAt = header.StartedAt
	if resp.StartedAt.IsZero() {
		resp.StartedAt = time.Now()
	}
	resp.FinishedAt = header.FinishedAt
	resp.IP = header.IP
	resp.UserAgent = header.UserAgent

	err = tx.QueryRowContext(ctx, `
		INSERT INTO response (token, survey_id, email, actor_id, started_at, finished_at, ip, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		resp.Token,
		resp.SurveyID,
		resp.Email,
		resp.ActorID,
		resp.StartedAt,
		resp.FinishedAt,
		resp.IP,
		resp.UserAgent,
	).Scan(&resp.ID)
	if err != nil {
		return resp, pkgerrors.Wrap(err, "insert response")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO response_answer (response_id, question_id, text_value, number_value, date_value, time_value, bool_value, option_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return resp, pkgerrors.Wrap(err, "prepare answer insert")
	}
	defer stmt.Close()

	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			// not a question of this survey
			continue
		}

		if q.kind.MultiSelect() {
			kept := filterOwned(a.OptionIDs, a.QuestionID, optionOwner)
			if len(kept) == 0 {
				continue
			}
			var answerID int
			err = stmt.QueryRowContext(ctx, resp.ID, a.QuestionID, nil, nil, nil, nil, nil, nil).Scan(&answerID)
			if err != nil {
				return resp, pkgerrors.Wrap(err, "insert answer")
			}
			for _, optionID := range kept {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO response_answer_option (answer_id, option_id) VALUES (?, ?)`,
					answerID, optionID,
				)
				if err != nil {
					return resp, pkgerrors.Wrap(err, "insert answer option")
				}
			}
			continue
		}

		d, err := normalize(q, a.Value, optionOwner, a.QuestionID)
		if err != nil {
			return resp, err
		}
		if d.empty() {
			continue
		}
		var answerID int
		err = stmt.QueryRowContext(ctx,
			resp.ID, a.QuestionID,
			d.text, d.number, d.date, d.timeOfDay, d.boolean, d.option,
		).Scan(&answerID)
		if err != nil {
			return resp, pkgerrors.Wrap(err, "insert answer")
		}
	}

	if err = tx.Commit(); err != nil {
		return resp, pkgerrors.Wrap(err, "commit submission")
	}
	return resp, nil
}

func checkAvailable(ctx context.Context, tx *sql.Tx, surveyID int) error {
	s := model.Survey{}
	var deleted, clientActive bool
	err := tx.QueryRowContext(ctx, `
		SELECT s.questionnaire, s.starts_on, s.ends_on, s.deleted, c.active
		FROM survey s
		INNER JOIN client c ON (c.id = s.client_id)
		WHERE s.id = ?`,
		surveyID,
	).Scan(&s.Questionnaire, &s.StartsOn, &s.EndsOn, &deleted, &clientActive)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UnavailableSurveyError{SurveyID: surveyID, Reason: "not found"}
	}
	if err != nil {
		return pkgerrors.Wrap(err, "load survey")
	}

	switch {
	case deleted:
		return model.UnavailableSurveyError{SurveyID: surveyID, Reason: "deleted"}
	case !clientActive:
		return model.UnavailableSurveyError{SurveyID: surveyID, Reason: "owning client is inactive"}
	case !s.ActiveAt(time.Now()):
		return model.UnavailableSurveyError{SurveyID: surveyID, Reason: "outside its active window"}
	}
	return nil
}

func loadQuestions(ctx context.Context, tx *sql.Tx, surveyID int) (map[int]questionInfo, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT q.id, q.text, q.kind, q.number_min, q.number_max
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE s.survey_id = ? AND q.deleted = 0 AND s.deleted = 0`,
		surveyID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load questions")
	}
	defer rows.Close()

	questions := map[int]questionInfo{}
	for rows.Next() {
		var id int
		q := questionInfo{}
		err = rows.Scan(&id, &q.text, &q.kind, &q.numberMin, &q.numberMax)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan question")
		}
		questions[id] = q
	}
	return questions, rows.Err()
}

func loadOptionOwners(ctx context.Context, tx *sql.Tx, surveyID int) (map[int]int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT o.id, o.question_id
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE s.survey_id = ? AND o.deleted = 0 AND q.deleted = 0 AND s.deleted = 0`,
		surveyID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load options")
	}
	defer rows.Close()

	owner := map[int]int{}
	for rows.Next() {
		var optionID, questionID int
		if err = rows.Scan(&optionID, &questionID); err != nil {
			return nil, pkgerrors.Wrap(err, "scan option")
		}
		owner[optionID] = questionID
	}
	return owner, rows.Err()
}

// filterOwned keeps the submitted option ids actually belonging to the
// question, deduplicated, in submission order.
func filterOwned(ids []int, questionID int, owner map[int]int) []int {
	kept := []int{}
	seen := map[int]bool{}
	for _, id := range ids {
		if owner[id] == questionID && !seen[id] {
			seen[id] = true
			kept = append(kept, id)
		}
	}
	return kept
}

// normalize dispatches one scalar answer to the storage slot of its
// question's kind. Unparsable values come back empty; only a numeric value
// outside the question's configured bounds is an error.
func normalize(q questionInfo, value any, optionOwner map[int]int, questionID int) (detail, error) {
	d := detail{}
	switch q.kind {
	case model.KindNumeric, model.KindRating:
		n, ok := parseNumber(value)
		if !ok {
			return d, nil
		}
		if q.numberMin != nil && n < *q.numberMin {
			return d, model.DomainRangeError{Question: q.text, Value: n, Limit: *q.numberMin, Bound: "minimum"}
		}
		if q.numberMax != nil && n > *q.numberMax {
			return d, model.DomainRangeError{Question: q.text, Value: n, Limit: *q.numberMax, Bound: "maximum"}
		}
		d.number = &n

	case model.KindShortText, model.KindLongText:
		t, ok := toText(value)
		if !ok || t == "" {
			return d, nil
		}
		t = truncate(t, maxTextLength)
		d.text = &t

	case model.KindSingleChoice, model.KindDropdown:
		id, ok := parseID(value)
		if !ok || optionOwner[id] != questionID {
			return d, nil
		}
		d.option = &id

	case model.KindDate:
		t, ok := parseDate(value)
		if !ok {
			return d, nil
		}
		d.date = &t

	case model.KindTime:
		t, ok := parseTimeOfDay(value)
		if !ok {
			return d, nil
		}
		d.timeOfDay = &t

	case model.KindBoolean:
		b, ok := parseBool(value)
		if !ok {
			return d, nil
		}
		d.boolean = &b

	case model.KindMultiChoice:
		// handled by the caller through the association table
	}
	return d, nil
}
