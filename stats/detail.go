package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/opinio-app/opinio/model"
	pkgerrors "github.com/pkg/errors"
)

// FlatRow is one answer joined to its full context, ready for an export
// writer. Elapsed is empty when the header has no end time.
type FlatRow struct {
	ResponseID int        `json:"responseId"`
	Token      string     `json:"token"`
	Email      *string    `json:"email,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Elapsed    string     `json:"elapsed,omitempty"`

	Client   string     `json:"client"`
	Survey   string     `json:"survey"`
	Section  string     `json:"section"`
	Question string     `json:"question"`
	Kind     model.Kind `json:"kind"`

	Answer string `json:"answer"`
}

// Detail returns one row per stored answer of the survey inside the window,
// with scalar values flattened to display strings and multi-select answers
// joined into one cell.
func (rep *Reporter) Detail(ctx context.Context, surveyID int, from, to *time.Time) ([]FlatRow, error) {
	window, windowArgs := windowClause(from, to)

	rows, err := rep.db.QueryContext(ctx, `
		SELECT
			r.id, r.token, r.email, r.started_at, r.finished_at,
			c.name, v.name, sec.name, q.text, q.kind,
			a.text_value, a.number_value, a.date_value, a.time_value, a.bool_value,
			o.text,
			GROUP_CONCAT(mo.text, ', ')
		FROM response_answer a
		INNER JOIN response r ON (r.id = a.response_id)
		INNER JOIN survey v ON (v.id = r.survey_id)
		INNER JOIN client c ON (c.id = v.client_id)
		INNER JOIN question q ON (q.id = a.question_id)
		INNER JOIN section sec ON (sec.id = q.section_id)
		LEFT OUTER JOIN option o ON (o.id = a.option_id)
		LEFT OUTER JOIN response_answer_option ao ON (ao.answer_id = a.id)
		LEFT OUTER JOIN option mo ON (mo.id = ao.option_id)
		WHERE r.survey_id = ?`+window+`
		GROUP BY a.id
		ORDER BY r.id, sec.position, q.position`,
		append([]any{surveyID}, windowArgs...)...,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load detail rows")
	}
	defer rows.Close()

	flat := []FlatRow{}
	for rows.Next() {
		row := FlatRow{}
		var text, timeOfDay, optionText, multiText *string
		var number *float64
		var date *time.Time
		var boolean *bool
		err = rows.Scan(
			&row.ResponseID, &row.Token, &row.Email, &row.StartedAt, &row.FinishedAt,
			&row.Client, &row.Survey, &row.Section, &row.Question, &row.Kind,
			&text, &number, &date, &timeOfDay, &boolean,
			&optionText,
			&multiText,
		)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan detail row")
		}

		if row.FinishedAt != nil {
			row.Elapsed = formatElapsed(row.StartedAt, *row.FinishedAt)
		}
		row.Answer = flattenAnswer(text, number, date, timeOfDay, boolean, optionText, multiText)
		flat = append(flat, row)
	}
	return flat, rows.Err()
}

func flattenAnswer(text *string, number *float64, date *time.Time, timeOfDay *string, boolean *bool, optionText, multiText *string) string {
	switch {
	case text != nil:
		return *text
	case number != nil:
		return strconv.FormatFloat(*number, 'f', -1, 64)
	case date != nil:
		return date.Format("2006-01-02")
	case timeOfDay != nil:
		return *timeOfDay
	case boolean != nil:
		if *boolean {
			return "Yes"
		}
		return "No"
	case optionText != nil:
		return *optionText
	case multiText != nil:
		return *multiText
	}
	return ""
}

func formatElapsed(start, end time.Time) string {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
