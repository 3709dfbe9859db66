package store

import (
	"context"
	"database/sql"
	"fmt"
)

// scope names a table whose rows keep a contiguous 1-based position sequence
// within one parent. Sections order within a survey, questions within a
// section, options within a question; all three share this engine.
type scope struct {
	table  string
	parent string
}

var (
	sectionScope  = scope{table: "section", parent: "survey_id"}
	questionScope = scope{table: "question", parent: "section_id"}
	optionScope   = scope{table: "option", parent: "question_id"}
)

// nextPosition returns max(position)+1 among live siblings, 1 when none.
func (sc scope) nextPosition(ctx context.Context, tx *sql.Tx, parentID int) (pos int, err error) {
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(MAX(position), 0) + 1
		FROM "%s"
		WHERE %s = ? AND deleted = 0`, sc.table, sc.parent),
		parentID,
	).Scan(&pos)
	return
}

func (sc scope) siblingCount(ctx context.Context, tx *sql.Tx, parentID int) (n int, err error) {
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM "%s"
		WHERE %s = ? AND deleted = 0`, sc.table, sc.parent),
		parentID,
	).Scan(&n)
	return
}

// move shifts siblings in the closed interval between current and target by
// one and drops the moved row on target. Callers hold the transaction and
// have already handled the no-op and bounds cases.
func (sc scope) move(ctx context.Context, tx *sql.Tx, parentID, id, current, target int) error {
	var err error
	if target < current {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE "%s" SET position = position + 1
			WHERE %s = ? AND deleted = 0
				AND position >= ? AND position < ?`, sc.table, sc.parent),
			parentID, target, current,
		)
	} else {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE "%s" SET position = position - 1
			WHERE %s = ? AND deleted = 0
				AND position > ? AND position <= ?`, sc.table, sc.parent),
			parentID, current, target,
		)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE "%s" SET position = ? WHERE id = ?`, sc.table),
		target, id,
	)
	return err
}

// closeGap reclaims the position slot of a deleted row: every live sibling
// past it shifts down by one.
func (sc scope) closeGap(ctx context.Context, tx *sql.Tx, parentID, position int) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE "%s" SET position = position - 1
		WHERE %s = ? AND deleted = 0 AND position > ?`, sc.table, sc.parent),
		parentID, position,
	)
	return err
}
