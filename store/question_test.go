package store

import (
	"context"
	"errors"
	"testing"

	"github.com/opinio-app/opinio/model"
)

func intPtr(v int) *int         { return &v }
func strPtr(v string) *string   { return &v }
func numPtr(v float64) *float64 { return &v }

func TestDependencyMustPointBackward(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	first := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Do you smoke?", Kind: model.KindBoolean,
	})
	second := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "How many per day?", Kind: model.KindNumeric,
		ParentQuestionID: &first.ID, ParentValue: strPtr("true"),
	})

	// forward dependency: first cannot depend on second
	first.ParentQuestionID = &second.ID
	first.ParentValue = strPtr("5")
	err := st.UpdateQuestion(context.Background(), &first, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("got %v, want ReferentialError", err)
	}
}

func TestDependencyAcrossSections(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	first := mustCreateSection(t, st, surveyID, "A")
	second := mustCreateSection(t, st, surveyID, "B")

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: first.ID, Text: "Employed?", Kind: model.KindBoolean,
	})
	child := mustCreateQuestion(t, st, model.Question{
		SectionID: second.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	})

	got, err := st.GetQuestion(context.Background(), child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID == nil || *got.ParentQuestionID != parent.ID {
		t.Errorf("dependency not stored: %+v", got)
	}
}

func TestDependencyOnSelf(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	q := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Anything?", Kind: model.KindShortText,
	})
	q.ParentQuestionID = &q.ID
	q.ParentValue = strPtr("x")
	err := st.UpdateQuestion(context.Background(), &q, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("got %v, want ReferentialError", err)
	}
}

func TestDependencyAcrossSurveys(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")
	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Employed?", Kind: model.KindBoolean,
	})

	other := model.Survey{ClientID: 1, Name: "Other"}
	if err := st.CreateSurvey(context.Background(), &other, testActor); err != nil {
		t.Fatalf("create survey: %v", err)
	}
	otherSec := mustCreateSection(t, st, other.ID, "X")

	q := model.Question{
		SectionID: otherSec.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	}
	err := st.CreateQuestion(context.Background(), &q, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("got %v, want ReferentialError", err)
	}
}

func TestConditionOnOptionBackedParent(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Favorite color", Kind: model.KindSingleChoice,
	})
	red := mustCreateOption(t, st, parent.ID, "red")

	otherParent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Pick a shape", Kind: model.KindSingleChoice,
	})
	circle := mustCreateOption(t, st, otherParent.ID, "circle")

	// value condition is not allowed on an option-backed parent
	q := model.Question{
		SectionID: sec.ID, Text: "Why red?", Kind: model.KindLongText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("red"),
	}
	err := st.CreateQuestion(context.Background(), &q, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("value condition: got %v, want ReferentialError", err)
	}

	// the option must belong to the named parent
	q = model.Question{
		SectionID: sec.ID, Text: "Why red?", Kind: model.KindLongText,
		ParentQuestionID: &parent.ID, ParentOptionID: &circle.ID,
	}
	err = st.CreateQuestion(context.Background(), &q, testActor)
	if !errors.As(err, &ref) {
		t.Fatalf("foreign option: got %v, want ReferentialError", err)
	}

	q = model.Question{
		SectionID: sec.ID, Text: "Why red?", Kind: model.KindLongText,
		ParentQuestionID: &parent.ID, ParentOptionID: &red.ID,
	}
	if err := st.CreateQuestion(context.Background(), &q, testActor); err != nil {
		t.Fatalf("valid option condition rejected: %v", err)
	}
}

func TestConditionOnFreeFormParent(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Age", Kind: model.KindNumeric,
	})

	// option condition is not allowed on a free-form parent
	q := model.Question{
		SectionID: sec.ID, Text: "Retired?", Kind: model.KindBoolean,
		ParentQuestionID: &parent.ID, ParentOptionID: intPtr(1),
	}
	err := st.CreateQuestion(context.Background(), &q, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("got %v, want ReferentialError", err)
	}
}

func TestConditionClearedWithoutParent(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	q := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Anything?", Kind: model.KindShortText,
		ParentValue: strPtr("dangling"),
	})

	got, err := st.GetQuestion(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentValue != nil {
		t.Errorf("parent value kept without a parent question: %q", *got.ParentValue)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	q := model.Question{SectionID: sec.ID, Text: "?", Kind: "telepathy"}
	err := st.CreateQuestion(context.Background(), &q, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("got %v, want ReferentialError", err)
	}
}

func TestMoveDetachesForwardDependency(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")
	ctx := context.Background()

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Employed?", Kind: model.KindBoolean,
	})
	child := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	})

	// moving the parent after the child invalidates the condition; the move
	// succeeds and the condition is dropped
	if err := st.MoveQuestion(ctx, parent.ID, 2, testActor); err != nil {
		t.Fatalf("move: %v", err)
	}

	got, err := st.GetQuestion(ctx, child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID != nil {
		t.Errorf("forward dependency survived the move: parent %d", *got.ParentQuestionID)
	}
	if got.ParentValue != nil {
		t.Errorf("condition value survived the move: %q", *got.ParentValue)
	}
}

func TestSectionMoveDetachesForwardDependency(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	first := mustCreateSection(t, st, surveyID, "A")
	second := mustCreateSection(t, st, surveyID, "B")
	ctx := context.Background()

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: first.ID, Text: "Employed?", Kind: model.KindBoolean,
	})
	child := mustCreateQuestion(t, st, model.Question{
		SectionID: second.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	})

	if err := st.MoveSection(ctx, first.ID, 2, testActor); err != nil {
		t.Fatalf("move: %v", err)
	}

	got, err := st.GetQuestion(ctx, child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID != nil {
		t.Errorf("cross-section dependency survived the section move")
	}
}

func TestMoveKeepsBackwardDependency(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")
	ctx := context.Background()

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Employed?", Kind: model.KindBoolean,
	})
	mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Filler", Kind: model.KindShortText,
	})
	child := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	})

	// child moves from 3 to 2, still after the parent
	if err := st.MoveQuestion(ctx, child.ID, 2, testActor); err != nil {
		t.Fatalf("move: %v", err)
	}

	got, err := st.GetQuestion(ctx, child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID == nil {
		t.Error("backward dependency was detached by an order-preserving move")
	}
}

func TestDeleteQuestionDetachesDependents(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")
	ctx := context.Background()

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Employed?", Kind: model.KindBoolean,
	})
	child := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	})

	if err := st.DeleteQuestion(ctx, parent.ID, testActor); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := st.GetQuestion(ctx, child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID != nil {
		t.Error("dependency survived the parent's deletion")
	}
}

func TestDeleteOptionClearsConditionsOnIt(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")
	ctx := context.Background()

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Favorite color", Kind: model.KindSingleChoice,
	})
	red := mustCreateOption(t, st, parent.ID, "red")
	mustCreateOption(t, st, parent.ID, "blue")

	child := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Why red?", Kind: model.KindLongText,
		ParentQuestionID: &parent.ID, ParentOptionID: &red.ID,
	})

	if err := st.DeleteOption(ctx, red.ID, testActor); err != nil {
		t.Fatalf("delete option: %v", err)
	}

	got, err := st.GetQuestion(ctx, child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID != nil || got.ParentOptionID != nil {
		t.Errorf("condition survived the option's deletion: %+v", got)
	}
}

func TestDeleteSectionDetachesCrossSectionDependents(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	first := mustCreateSection(t, st, surveyID, "A")
	second := mustCreateSection(t, st, surveyID, "B")
	ctx := context.Background()

	parent := mustCreateQuestion(t, st, model.Question{
		SectionID: first.ID, Text: "Employed?", Kind: model.KindBoolean,
	})
	child := mustCreateQuestion(t, st, model.Question{
		SectionID: second.ID, Text: "Job title", Kind: model.KindShortText,
		ParentQuestionID: &parent.ID, ParentValue: strPtr("true"),
	})

	if err := st.DeleteSection(ctx, first.ID, testActor); err != nil {
		t.Fatalf("delete section: %v", err)
	}

	got, err := st.GetQuestion(ctx, child.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ParentQuestionID != nil {
		t.Error("dependency survived the parent section's deletion")
	}

	_, err = st.GetQuestion(ctx, parent.ID)
	var notFound model.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("deleted question still readable: %v", err)
	}
}

func TestOptionOnFreeFormQuestionRejected(t *testing.T) {
	db := openTestDB(t)
	st, surveyID := seedSurvey(t, db)
	sec := mustCreateSection(t, st, surveyID, "A")

	q := mustCreateQuestion(t, st, model.Question{
		SectionID: sec.ID, Text: "Age", Kind: model.KindNumeric,
		NumberMin: numPtr(0), NumberMax: numPtr(120),
	})

	o := model.Option{QuestionID: q.ID, Text: "forty", Value: "40"}
	err := st.CreateOption(context.Background(), &o, testActor)
	var ref model.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("got %v, want ReferentialError", err)
	}
}
