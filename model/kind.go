package model

// Kind is the closed catalog of question types. All type-directed behavior
// (answer normalization, range validation, aggregation shape) dispatches on
// it, so a new kind only needs its capability methods extended here.
type Kind string

const (
	KindShortText    Kind = "short_text"
	KindLongText     Kind = "long_text"
	KindNumeric      Kind = "numeric"
	KindRating       Kind = "rating"
	KindDate         Kind = "date"
	KindTime         Kind = "time"
	KindBoolean      Kind = "boolean"
	KindSingleChoice Kind = "single_choice"
	KindDropdown     Kind = "dropdown"
	KindMultiChoice  Kind = "multi_choice"
)

var Kinds = []Kind{
	KindShortText, KindLongText,
	KindNumeric, KindRating,
	KindDate, KindTime,
	KindBoolean,
	KindSingleChoice, KindDropdown, KindMultiChoice,
}

func (k Kind) Valid() bool {
	switch k {
	case KindShortText, KindLongText, KindNumeric, KindRating,
		KindDate, KindTime, KindBoolean,
		KindSingleChoice, KindDropdown, KindMultiChoice:
		return true
	}
	return false
}

// RequiresOptions reports whether answers are chosen from a predefined
// option list rather than free-form.
func (k Kind) RequiresOptions() bool {
	switch k {
	case KindSingleChoice, KindDropdown, KindMultiChoice:
		return true
	}
	return false
}

func (k Kind) MultiSelect() bool {
	return k == KindMultiChoice
}

func (k Kind) AllowsNumericRange() bool {
	switch k {
	case KindNumeric, KindRating:
		return true
	}
	return false
}

func (k Kind) AllowsDateRange() bool {
	switch k {
	case KindDate, KindTime:
		return true
	}
	return false
}
