package model

import "fmt"

// NotFoundError reports a missing or logically deleted entity.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ReferentialError reports an invalid structural reference: a parent question
// in a different survey, an option not owned by its question, or a dependency
// that would point forward. Raised before any write.
type ReferentialError struct {
	Reason string
}

func (e ReferentialError) Error() string {
	return e.Reason
}

// DomainRangeError reports a submitted numeric answer outside the question's
// configured bound. It aborts the whole submission.
type DomainRangeError struct {
	Question string
	Value    float64
	Limit    float64
	Bound    string // "minimum" or "maximum"
}

func (e DomainRangeError) Error() string {
	return fmt.Sprintf("value %v violates the %s %v for question %q",
		e.Value, e.Bound, e.Limit, e.Question)
}

// UnavailableSurveyError reports a survey that cannot accept responses:
// missing, deleted, inactive client, or outside its questionnaire window.
type UnavailableSurveyError struct {
	SurveyID int
	Reason   string
}

func (e UnavailableSurveyError) Error() string {
	return fmt.Sprintf("survey %d unavailable: %s", e.SurveyID, e.Reason)
}

// OrderingBoundsError reports a reorder target outside [1, siblingCount].
type OrderingBoundsError struct {
	Target int
	Count  int
}

func (e OrderingBoundsError) Error() string {
	return fmt.Sprintf("target position %d outside [1, %d]", e.Target, e.Count)
}

// ConflictError reports an optimistic-lock version mismatch; the caller may
// reload and retry.
type ConflictError struct {
	Entity string
	ID     int
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.ID)
}
