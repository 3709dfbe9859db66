package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/opinio-app/opinio/database"
	"github.com/opinio-app/opinio/model"
)

const testActor = 1

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSurvey(t *testing.T, db *sql.DB) (st *Store, surveyID int) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO client (name, active) VALUES ('Acme', 1)`)
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	st = New(db)
	survey := model.Survey{ClientID: 1, Name: "Satisfaction"}
	if err := st.CreateSurvey(context.Background(), &survey, testActor); err != nil {
		t.Fatalf("seed survey: %v", err)
	}
	return st, survey.ID
}

func mustCreateSection(t *testing.T, st *Store, surveyID int, name string) model.Section {
	t.Helper()
	sec := model.Section{SurveyID: surveyID, Name: name}
	if err := st.CreateSection(context.Background(), &sec, testActor); err != nil {
		t.Fatalf("create section %q: %v", name, err)
	}
	return sec
}

func mustCreateQuestion(t *testing.T, st *Store, q model.Question) model.Question {
	t.Helper()
	if err := st.CreateQuestion(context.Background(), &q, testActor); err != nil {
		t.Fatalf("create question %q: %v", q.Text, err)
	}
	return q
}

func mustCreateOption(t *testing.T, st *Store, questionID int, text string) model.Option {
	t.Helper()
	o := model.Option{QuestionID: questionID, Text: text, Value: text}
	if err := st.CreateOption(context.Background(), &o, testActor); err != nil {
		t.Fatalf("create option %q: %v", text, err)
	}
	return o
}

func sectionOrder(t *testing.T, st *Store, surveyID int) (names []string, positions []int) {
	t.Helper()
	sections, err := st.ListSections(context.Background(), surveyID)
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	for _, sec := range sections {
		names = append(names, sec.Name)
		positions = append(positions, sec.Position)
	}
	return
}

func assertContiguous(t *testing.T, positions []int) {
	t.Helper()
	for i, p := range positions {
		if p != i+1 {
			t.Fatalf("positions not contiguous: got %v", positions)
		}
	}
}
