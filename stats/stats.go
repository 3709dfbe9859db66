// Package stats is the read-only aggregation engine: per-question summaries
// and a flattened detail export over the responses of one survey, optionally
// restricted to a date window on header start time.
package stats

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

type Reporter struct {
	db *sql.DB
}

func New(db *sql.DB) *Reporter {
	return &Reporter{db: db}
}

// BucketCount is one histogram bucket: a real option, or a synthetic Yes/No
// bucket for boolean questions.
type BucketCount struct {
	OptionID   int     `json:"optionId,omitempty"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type NumericSummary struct {
	Average float64 `json:"average"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
}

type QuestionSummary struct {
	QuestionID int        `json:"questionId"`
	SectionID  int        `json:"sectionId"`
	Text       string     `json:"text"`
	Kind       model.Kind `json:"kind"`
	Population int        `json:"population"`
	Valid      int        `json:"valid"`
	Blank      int        `json:"blank"`

	Options []BucketCount   `json:"options,omitempty"`
	Numeric *NumericSummary `json:"numeric,omitempty"`
}

// windowClause appends start-time bounds for the response alias r.
func windowClause(from, to *time.Time) (clause string, args []any) {
	if from != nil {
		clause += " AND r.started_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		clause += " AND r.started_at <= ?"
		args = append(args, *to)
	}
	return
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Summarize computes one summary per live question of the survey. The
// population N is the number of response headers started inside the window;
// with N = 0 every bucket reports zero and numeric stats are absent.
func (rep *Reporter) Summarize(ctx context.Context, surveyID int, from, to *time.Time) ([]QuestionSummary, error) {
	window, windowArgs := windowClause(from, to)

	var population int
	err := rep.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM response r WHERE r.survey_id = ?`+window,
		append([]any{surveyID}, windowArgs...)...,
	).Scan(&population)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count population")
	}

	questions, err := rep.loadQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	optionsByQuestion, err := rep.loadOptions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	validCounts, err := rep.groupCounts(ctx, `
		SELECT a.question_id, COUNT(*)
		FROM response_answer a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.survey_id = ?`+window+`
		GROUP BY a.question_id`,
		surveyID, windowArgs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count valid answers")
	}

	singleCounts, err := rep.groupCounts(ctx, `
		SELECT a.option_id, COUNT(*)
		FROM response_answer a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.survey_id = ? AND a.option_id IS NOT NULL`+window+`
		GROUP BY a.option_id`,
		surveyID, windowArgs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count selected options")
	}

	multiCounts, err := rep.groupCounts(ctx, `
		SELECT ao.option_id, COUNT(*)
		FROM response_answer_option ao
		INNER JOIN response_answer a ON (a.id = ao.answer_id)
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.survey_id = ?`+window+`
		GROUP BY ao.option_id`,
		surveyID, windowArgs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count multi selections")
	}

	numeric, err := rep.loadNumeric(ctx, surveyID, window, windowArgs)
	if err != nil {
		return nil, err
	}
	boolYes, boolNo, err := rep.loadBoolean(ctx, surveyID, window, windowArgs)
	if err != nil {
		return nil, err
	}

	summaries := make([]QuestionSummary, 0, len(questions))
	for _, q := range questions {
		sum := QuestionSummary{
			QuestionID: q.ID,
			SectionID:  q.SectionID,
			Text:       q.Text,
			Kind:       q.Kind,
			Population: population,
			Valid:      validCounts[q.ID],
		}
		sum.Blank = population - sum.Valid
		if sum.Blank < 0 {
			sum.Blank = 0
		}

		switch {
		case q.Kind.RequiresOptions():
			counts := singleCounts
			if q.Kind.MultiSelect() {
				counts = multiCounts
			}
			for _, o := range optionsByQuestion[q.ID] {
				sum.Options = append(sum.Options, bucket(o.ID, o.Text, counts[o.ID], population))
			}
			if sum.Options == nil {
				sum.Options = []BucketCount{}
			}

		case q.Kind.AllowsNumericRange():
			if n, ok := numeric[q.ID]; ok {
				n.Average = round2(n.Average)
				sum.Numeric = &n
			}

		case q.Kind == model.KindBoolean:
			sum.Options = []BucketCount{
				bucket(0, "Yes", boolYes[q.ID], population),
				bucket(0, "No", boolNo[q.ID], population),
			}
		}

		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func bucket(optionID int, label string, count, population int) BucketCount {
	b := BucketCount{OptionID: optionID, Label: label, Count: count}
	if population > 0 {
		b.Percentage = round2(float64(count) / float64(population) * 100)
	}
	return b
}

func (rep *Reporter) loadQuestions(ctx context.Context, surveyID int) ([]model.Question, error) {
	rows, err := rep.db.QueryContext(ctx, `
		SELECT q.id, q.section_id, q.text, q.kind
		FROM question q
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE s.survey_id = ? AND q.deleted = 0 AND s.deleted = 0
		ORDER BY s.position, q.position`,
		surveyID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load questions")
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		if err = rows.Scan(&q.ID, &q.SectionID, &q.Text, &q.Kind); err != nil {
			return nil, pkgerrors.Wrap(err, "scan question")
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (rep *Reporter) loadOptions(ctx context.Context, surveyID int) (map[int][]model.Option, error) {
	rows, err := rep.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.text
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		INNER JOIN section s ON (s.id = q.section_id)
		WHERE s.survey_id = ? AND o.deleted = 0 AND q.deleted = 0 AND s.deleted = 0
		ORDER BY o.position`,
		surveyID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load options")
	}
	defer rows.Close()

	options := map[int][]model.Option{}
	for rows.Next() {
		o := model.Option{}
		if err = rows.Scan(&o.ID, &o.QuestionID, &o.Text); err != nil {
			return nil, pkgerrors.Wrap(err, "scan option")
		}
		options[o.QuestionID] = append(options[o.QuestionID], o)
	}
	return options, rows.Err()
}

func (rep *Reporter) groupCounts(ctx context.Context, query string, surveyID int, windowArgs []any) (map[int]int, error) {
	rows, err := rep.db.QueryContext(ctx, query, append([]any{surveyID}, windowArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var key, count int
		if err = rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func (rep *Reporter) loadNumeric(ctx context.Context, surveyID int, window string, windowArgs []any) (map[int]NumericSummary, error) {
	rows, err := rep.db.QueryContext(ctx, `
		SELECT a.question_id, AVG(a.number_value), MIN(a.number_value), MAX(a.number_value)
		FROM response_answer a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.survey_id = ? AND a.number_value IS NOT NULL`+window+`
		GROUP BY a.question_id`,
		append([]any{surveyID}, windowArgs...)...,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load numeric stats")
	}
	defer rows.Close()

	numeric := map[int]NumericSummary{}
	for rows.Next() {
		var questionID int
		n := NumericSummary{}
		if err = rows.Scan(&questionID, &n.Average, &n.Minimum, &n.Maximum); err != nil {
			return nil, pkgerrors.Wrap(err, "scan numeric stats")
		}
		numeric[questionID] = n
	}
	return numeric, rows.Err()
}

func (rep *Reporter) loadBoolean(ctx context.Context, surveyID int, window string, windowArgs []any) (yes, no map[int]int, err error) {
	rows, err := rep.db.QueryContext(ctx, `
		SELECT a.question_id, a.bool_value, COUNT(*)
		FROM response_answer a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.survey_id = ? AND a.bool_value IS NOT NULL`+window+`
		GROUP BY a.question_id, a.bool_value`,
		append([]any{surveyID}, windowArgs...)...,
	)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "load boolean counts")
	}
	defer rows.Close()

	yes, no = map[int]int{}, map[int]int{}
	for rows.Next() {
		var questionID, count int
		var value bool
		if err = rows.Scan(&questionID, &value, &count); err != nil {
			return nil, nil, pkgerrors.Wrap(err, "scan boolean counts")
		}
		if value {
			yes[questionID] = count
		} else {
			no[questionID] = count
		}
	}
	return yes, no, rows.Err()
}
