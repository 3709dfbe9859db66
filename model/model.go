package model

import "time"

type Client struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Survey struct {
	ID            int        `json:"id,omitempty"`
	ClientID      int        `json:"clientId"`
	Version       int        `json:"version,omitempty"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Questionnaire bool       `json:"questionnaire"`
	StartsOn      *time.Time `json:"startsOn,omitempty"`
	EndsOn        *time.Time `json:"endsOn,omitempty"`
	Sections      []Section  `json:"sections,omitempty"`
}

// ActiveAt reports whether the survey accepts responses at the given instant.
// A plain survey is always open; a questionnaire only within its date window,
// with a missing bound treated as unbounded on that side.
func (s Survey) ActiveAt(t time.Time) bool {
	if !s.Questionnaire {
		return true
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if s.StartsOn != nil {
		y, m, d = s.StartsOn.Date()
		if day.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
			return false
		}
	}
	if s.EndsOn != nil {
		y, m, d = s.EndsOn.Date()
		if day.After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
			return false
		}
	}
	return true
}

type Section struct {
	ID          int        `json:"id,omitempty"`
	SurveyID    int        `json:"surveyId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Position    int        `json:"position"`
	Questions   []Question `json:"questions,omitempty"`
}

type Question struct {
	ID        int    `json:"id,omitempty"`
	SectionID int    `json:"sectionId"`
	Text      string `json:"text"`
	Kind      Kind   `json:"kind"`
	Position  int    `json:"position"`
	Required  bool   `json:"required"`
	HelpText  string `json:"helpText,omitempty"`

	NumberMin *float64   `json:"numberMin,omitempty"`
	NumberMax *float64   `json:"numberMax,omitempty"`
	DateMin   *time.Time `json:"dateMin,omitempty"`
	DateMax   *time.Time `json:"dateMax,omitempty"`
	TimeMin   *string    `json:"timeMin,omitempty"`
	TimeMax   *string    `json:"timeMax,omitempty"`

	// Conditional display: show this question only when the parent question
	// was answered with the given free-form value or the given option.
	ParentQuestionID *int    `json:"parentQuestionId,omitempty"`
	ParentValue      *string `json:"parentValue,omitempty"`
	ParentOptionID   *int    `json:"parentOptionId,omitempty"`

	Options []Option `json:"options,omitempty"`
}

type Option struct {
	ID         int    `json:"id,omitempty"`
	QuestionID int    `json:"questionId"`
	Text       string `json:"text"`
	Value      string `json:"value"`
	Position   int    `json:"position"`
}

type ResponseHeader struct {
	ID         int        `json:"id,omitempty"`
	Token      string     `json:"token"`
	SurveyID   int        `json:"surveyId"`
	Email      *string    `json:"email,omitempty"`
	ActorID    *int       `json:"actorId,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	IP         string     `json:"ip,omitempty"`
	UserAgent  string     `json:"userAgent,omitempty"`
}
