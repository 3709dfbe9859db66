package stats

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/opinio-app/opinio/database"
	"github.com/opinio-app/opinio/ingest"
	"github.com/opinio-app/opinio/model"
	"github.com/opinio-app/opinio/store"
)

const testActor = 1

// fixture is one survey with a question per summarizable shape and an
// ingestor to feed it responses.
type fixture struct {
	db       *sql.DB
	st       *store.Store
	ing      *ingest.Ingestor
	surveyID int

	choice  model.Question
	rating  model.Question
	boolean model.Question
	multi   model.Question
	text    model.Question

	x, y, z           model.Option
	cats, dogs, birds model.Option
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, st: store.New(db), ing: ingest.New(db)}
	ctx := context.Background()

	if _, err := db.Exec(`INSERT INTO client (name, active) VALUES ('Acme', 1)`); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	survey := model.Survey{ClientID: 1, Name: "Satisfaction"}
	if err := f.st.CreateSurvey(ctx, &survey, testActor); err != nil {
		t.Fatalf("create survey: %v", err)
	}
	f.surveyID = survey.ID

	sec := model.Section{SurveyID: survey.ID, Name: "Main"}
	if err := f.st.CreateSection(ctx, &sec, testActor); err != nil {
		t.Fatalf("create section: %v", err)
	}

	one, ten := 1.0, 10.0
	f.choice = f.question(t, sec.ID, "Favorite letter", model.KindSingleChoice, nil)
	f.rating = f.question(t, sec.ID, "Rate us", model.KindRating, func(q *model.Question) {
		q.NumberMin = &one
		q.NumberMax = &ten
	})
	f.boolean = f.question(t, sec.ID, "Would you return?", model.KindBoolean, nil)
	f.multi = f.question(t, sec.ID, "Pets owned", model.KindMultiChoice, nil)
	f.text = f.question(t, sec.ID, "Comments", model.KindLongText, nil)

	f.x = f.option(t, f.choice.ID, "X")
	f.y = f.option(t, f.choice.ID, "Y")
	f.z = f.option(t, f.choice.ID, "Z")
	f.cats = f.option(t, f.multi.ID, "cats")
	f.dogs = f.option(t, f.multi.ID, "dogs")
	f.birds = f.option(t, f.multi.ID, "birds")
	return f
}

func (f *fixture) question(t *testing.T, sectionID int, text string, kind model.Kind, custom func(*model.Question)) model.Question {
	t.Helper()
	q := model.Question{SectionID: sectionID, Text: text, Kind: kind}
	if custom != nil {
		custom(&q)
	}
	if err := f.st.CreateQuestion(context.Background(), &q, testActor); err != nil {
		t.Fatalf("create question %q: %v", text, err)
	}
	return q
}

func (f *fixture) option(t *testing.T, questionID int, text string) model.Option {
	t.Helper()
	o := model.Option{QuestionID: questionID, Text: text, Value: text}
	if err := f.st.CreateOption(context.Background(), &o, testActor); err != nil {
		t.Fatalf("create option %q: %v", text, err)
	}
	return o
}

func (f *fixture) submit(t *testing.T, header ingest.Header, answers ...ingest.Answer) {
	t.Helper()
	if _, err := f.ing.Ingest(context.Background(), f.surveyID, header, answers); err != nil {
		t.Fatalf("ingest: %v", err)
	}
}

func summaryFor(t *testing.T, summaries []QuestionSummary, questionID int) QuestionSummary {
	t.Helper()
	for _, s := range summaries {
		if s.QuestionID == questionID {
			return s
		}
	}
	t.Fatalf("no summary for question %d", questionID)
	return QuestionSummary{}
}

func TestSummarizeChoicePercentages(t *testing.T) {
	f := newFixture(t)

	// 10 respondents: 3 pick X, 2 pick Y, 5 leave the question blank
	for i := 0; i < 3; i++ {
		f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.choice.ID, Value: f.x.ID})
	}
	for i := 0; i < 2; i++ {
		f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.choice.ID, Value: f.y.ID})
	}
	for i := 0; i < 5; i++ {
		f.submit(t, ingest.Header{})
	}

	summaries, err := New(f.db).Summarize(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	sum := summaryFor(t, summaries, f.choice.ID)
	if sum.Population != 10 || sum.Valid != 5 || sum.Blank != 5 {
		t.Errorf("population/valid/blank = %d/%d/%d, want 10/5/5", sum.Population, sum.Valid, sum.Blank)
	}
	if len(sum.Options) != 3 {
		t.Fatalf("got %d buckets, want 3", len(sum.Options))
	}
	wantCounts := map[string]struct {
		count int
		pct   float64
	}{
		"X": {3, 30},
		"Y": {2, 20},
		"Z": {0, 0},
	}
	for _, b := range sum.Options {
		want := wantCounts[b.Label]
		if b.Count != want.count || b.Percentage != want.pct {
			t.Errorf("bucket %s = %d (%.2f%%), want %d (%.2f%%)", b.Label, b.Count, b.Percentage, want.count, want.pct)
		}
	}
}

func TestSummarizeNumeric(t *testing.T) {
	f := newFixture(t)

	for _, v := range []float64{1, 2, 2} {
		f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.rating.ID, Value: v})
	}
	f.submit(t, ingest.Header{})

	summaries, err := New(f.db).Summarize(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	sum := summaryFor(t, summaries, f.rating.ID)
	if sum.Valid != 3 || sum.Blank != 1 {
		t.Errorf("valid/blank = %d/%d, want 3/1", sum.Valid, sum.Blank)
	}
	if sum.Numeric == nil {
		t.Fatal("numeric summary missing")
	}
	if sum.Numeric.Average != 1.67 {
		t.Errorf("average = %v, want 1.67", sum.Numeric.Average)
	}
	if sum.Numeric.Minimum != 1 || sum.Numeric.Maximum != 2 {
		t.Errorf("min/max = %v/%v, want 1/2", sum.Numeric.Minimum, sum.Numeric.Maximum)
	}
}

func TestSummarizeBoolean(t *testing.T) {
	f := newFixture(t)

	f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.boolean.ID, Value: true})
	f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.boolean.ID, Value: "si"})
	f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.boolean.ID, Value: false})
	f.submit(t, ingest.Header{})

	summaries, err := New(f.db).Summarize(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	sum := summaryFor(t, summaries, f.boolean.ID)
	if len(sum.Options) != 2 {
		t.Fatalf("got %d buckets, want Yes and No", len(sum.Options))
	}
	yes, no := sum.Options[0], sum.Options[1]
	if yes.Label != "Yes" || yes.Count != 2 || yes.Percentage != 50 {
		t.Errorf("Yes bucket = %+v, want 2 (50%%)", yes)
	}
	if no.Label != "No" || no.Count != 1 || no.Percentage != 25 {
		t.Errorf("No bucket = %+v, want 1 (25%%)", no)
	}
}

func TestSummarizeMultiSelect(t *testing.T) {
	f := newFixture(t)

	f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.multi.ID, OptionIDs: []int{f.cats.ID, f.dogs.ID}})
	f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.multi.ID, OptionIDs: []int{f.cats.ID}})
	f.submit(t, ingest.Header{})

	summaries, err := New(f.db).Summarize(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	sum := summaryFor(t, summaries, f.multi.ID)
	if sum.Valid != 2 {
		t.Errorf("valid = %d, want 2", sum.Valid)
	}
	counts := map[string]int{}
	for _, b := range sum.Options {
		counts[b.Label] = b.Count
	}
	if counts["cats"] != 2 || counts["dogs"] != 1 || counts["birds"] != 0 {
		t.Errorf("multi counts = %v, want cats 2, dogs 1, birds 0", counts)
	}
}

func TestSummarizeZeroPopulation(t *testing.T) {
	f := newFixture(t)

	summaries, err := New(f.db).Summarize(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summaries) != 5 {
		t.Fatalf("got %d summaries, want one per question", len(summaries))
	}

	sum := summaryFor(t, summaries, f.choice.ID)
	if sum.Population != 0 || sum.Valid != 0 || sum.Blank != 0 {
		t.Errorf("population/valid/blank = %d/%d/%d, want all zero", sum.Population, sum.Valid, sum.Blank)
	}
	if len(sum.Options) != 3 {
		t.Fatalf("empty survey still lists every bucket, got %d", len(sum.Options))
	}
	for _, b := range sum.Options {
		if b.Count != 0 || b.Percentage != 0 {
			t.Errorf("bucket %s = %d (%.2f%%), want zero", b.Label, b.Count, b.Percentage)
		}
	}
	if rating := summaryFor(t, summaries, f.rating.ID); rating.Numeric != nil {
		t.Error("numeric summary present with no answers")
	}
}

func TestSummarizeWindow(t *testing.T) {
	f := newFixture(t)

	march := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	june := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	f.submit(t, ingest.Header{StartedAt: march}, ingest.Answer{QuestionID: f.choice.ID, Value: f.x.ID})
	f.submit(t, ingest.Header{StartedAt: june}, ingest.Answer{QuestionID: f.choice.ID, Value: f.y.ID})

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	summaries, err := New(f.db).Summarize(context.Background(), f.surveyID, &from, nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	sum := summaryFor(t, summaries, f.choice.ID)
	if sum.Population != 1 || sum.Valid != 1 {
		t.Errorf("population/valid = %d/%d, want 1/1", sum.Population, sum.Valid)
	}
	for _, b := range sum.Options {
		if b.Label == "X" && b.Count != 0 {
			t.Error("March response leaked into the window")
		}
		if b.Label == "Y" && b.Count != 1 {
			t.Error("June response missing from the window")
		}
	}

	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	summaries, err = New(f.db).Summarize(context.Background(), f.surveyID, nil, &to)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum := summaryFor(t, summaries, f.choice.ID); sum.Population != 1 {
		t.Errorf("upper-bounded population = %d, want 1", sum.Population)
	}
}

func TestDetail(t *testing.T) {
	f := newFixture(t)

	started := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(3*time.Minute + 5*time.Second)
	f.submit(t, ingest.Header{StartedAt: started, FinishedAt: &finished},
		ingest.Answer{QuestionID: f.choice.ID, Value: f.z.ID},
		ingest.Answer{QuestionID: f.rating.ID, Value: 8},
		ingest.Answer{QuestionID: f.boolean.ID, Value: true},
		ingest.Answer{QuestionID: f.multi.ID, OptionIDs: []int{f.cats.ID, f.birds.ID}},
		ingest.Answer{QuestionID: f.text.ID, Value: "lovely"},
	)

	rows, err := New(f.db).Detail(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}

	// questions come back in survey order
	answers := map[string]string{}
	for _, row := range rows {
		if row.Client != "Acme" || row.Survey != "Satisfaction" || row.Section != "Main" {
			t.Errorf("row context = %q/%q/%q", row.Client, row.Survey, row.Section)
		}
		if row.Elapsed != "00:03:05" {
			t.Errorf("elapsed = %q, want 00:03:05", row.Elapsed)
		}
		answers[row.Question] = row.Answer
	}

	if answers["Favorite letter"] != "Z" {
		t.Errorf("choice answer = %q, want Z", answers["Favorite letter"])
	}
	if answers["Rate us"] != "8" {
		t.Errorf("rating answer = %q, want 8", answers["Rate us"])
	}
	if answers["Would you return?"] != "Yes" {
		t.Errorf("boolean answer = %q, want Yes", answers["Would you return?"])
	}
	if answers["Comments"] != "lovely" {
		t.Errorf("text answer = %q, want lovely", answers["Comments"])
	}
	multi := answers["Pets owned"]
	if multi != "cats, birds" && multi != "birds, cats" {
		t.Errorf("multi answer = %q, want cats and birds joined", multi)
	}

	wantOrder := []string{"Favorite letter", "Rate us", "Would you return?", "Pets owned", "Comments"}
	for i, row := range rows {
		if row.Question != wantOrder[i] {
			t.Errorf("row %d is %q, want %q", i, row.Question, wantOrder[i])
		}
	}
}

func TestDetailWithoutFinishTime(t *testing.T) {
	f := newFixture(t)
	f.submit(t, ingest.Header{}, ingest.Answer{QuestionID: f.text.ID, Value: "quick"})

	rows, err := New(f.db).Detail(context.Background(), f.surveyID, nil, nil)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Elapsed != "" {
		t.Errorf("elapsed = %q, want empty", rows[0].Elapsed)
	}
	if rows[0].FinishedAt != nil {
		t.Error("finished_at should be absent")
	}
}
