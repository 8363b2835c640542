package logic_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/talentflow/internal/logic"
	"github.com/garnizeh/talentflow/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func kinds(errs []logic.ValidationError) []logic.ErrorKind {
	out := []logic.ErrorKind{}
	for _, e := range errs {
		out = append(out, e.Kind)
	}
	return out
}

func TestShouldShow_GreaterThanTable(t *testing.T) {
	b := models.Question{ID: "B", Type: models.ShortText, ConditionalLogic: &models.ConditionalRule{
		DependsOn: "A", Condition: models.CondGreaterThan, Value: 3, Action: models.ActionShow,
	}}

	assert.True(t, logic.ShouldShow(b, map[string]any{"A": 5}))
	assert.False(t, logic.ShouldShow(b, map[string]any{"A": 2}))
	assert.False(t, logic.ShouldShow(b, map[string]any{}))
	// answers decoded from JSON are float64
	assert.True(t, logic.ShouldShow(b, map[string]any{"A": 5.0}))
	assert.True(t, logic.ShouldShow(b, map[string]any{"A": "5"}))
}

func TestConditions(t *testing.T) {
	cases := []struct {
		name   string
		cond   models.Condition
		answer any
		value  any
		want   bool
	}{
		{"equals string", models.CondEquals, "yes", "yes", true},
		{"equals is strict", models.CondEquals, "5", 5, false},
		{"equals numbers across types", models.CondEquals, 5.0, 5, true},
		{"not equals", models.CondNotEquals, "no", "yes", true},
		{"not equals missing", models.CondNotEquals, nil, "yes", true},
		{"contains substring", models.CondContains, "golang rocks", "go", true},
		{"contains in selection", models.CondContains, []any{"go", "rust"}, "rust", true},
		{"contains number coerced", models.CondContains, 1234, "23", true},
		{"contains missing", models.CondContains, nil, "x", false},
		{"not contains", models.CondNotContains, "python", "go", true},
		{"less than", models.CondLessThan, 2, 3, true},
		{"greater equal", models.CondGreaterEqual, 3, 3, true},
		{"less equal", models.CondLessEqual, 4, 3, false},
		{"numeric on blank is false", models.CondLessThan, "", 3, false},
		{"numeric on text is false", models.CondGreaterThan, "abc", 3, false},
		{"is empty nil", models.CondIsEmpty, nil, nil, true},
		{"is empty blank", models.CondIsEmpty, "  ", nil, true},
		{"is empty list", models.CondIsEmpty, []any{}, nil, true},
		{"is not empty", models.CondIsNotEmpty, "x", nil, true},
		{"is not empty zero number", models.CondIsNotEmpty, 0, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := models.ConditionalRule{DependsOn: "a", Condition: tc.cond, Value: tc.value, Action: models.ActionShow}
			assert.Equal(t, tc.want, logic.Holds(rule, map[string]any{"a": tc.answer}))
		})
	}

	assert.False(t, logic.Holds(models.ConditionalRule{DependsOn: "a"}, map[string]any{"a": 1}), "zero condition never holds")
}

func TestActions(t *testing.T) {
	rule := func(a models.Action) *models.ConditionalRule {
		return &models.ConditionalRule{DependsOn: "flag", Condition: models.CondEquals, Value: "on", Action: a}
	}
	on := map[string]any{"flag": "on"}
	off := map[string]any{"flag": "off"}

	hide := models.Question{ID: "q", ConditionalLogic: rule(models.ActionHide), Required: true}
	assert.False(t, logic.ShouldShow(hide, on))
	assert.True(t, logic.ShouldShow(hide, off))
	assert.False(t, logic.ShouldRequire(hide, on), "hidden questions are never required")
	assert.True(t, logic.ShouldRequire(hide, off))

	req := models.Question{ID: "q", ConditionalLogic: rule(models.ActionRequire)}
	assert.True(t, logic.ShouldRequire(req, on))
	assert.False(t, logic.ShouldRequire(req, off))
	assert.True(t, logic.ShouldShow(req, off))

	dis := models.Question{ID: "q", ConditionalLogic: rule(models.ActionDisable), Required: true}
	assert.True(t, logic.ShouldDisable(dis, on))
	assert.False(t, logic.ShouldRequire(dis, on))
	assert.False(t, logic.ShouldDisable(dis, off))
	assert.True(t, logic.ShouldRequire(dis, off))

	plain := models.Question{ID: "q", Required: true}
	assert.True(t, logic.ShouldShow(plain, nil))
	assert.True(t, logic.ShouldRequire(plain, nil))
	assert.False(t, logic.ShouldDisable(plain, nil))
}

func TestValidate_RequiredEmptyOnlyRequired(t *testing.T) {
	q := models.Question{ID: "bio", Type: models.ShortText, Required: true,
		Validation: models.TextRules{MinLength: ptr(10), MaxLength: ptr(20)}}

	errs := logic.ValidateQuestionResponse(q, "", nil)
	require.Len(t, errs, 1)
	assert.Equal(t, logic.ErrRequired, errs[0].Kind)
	assert.Equal(t, "bio", errs[0].QuestionID)

	errs = logic.ValidateQuestionResponse(q, nil, nil)
	assert.Equal(t, []logic.ErrorKind{logic.ErrRequired}, kinds(errs))
}

func TestValidate_OptionalEmptyHasNoErrors(t *testing.T) {
	q := models.Question{ID: "bio", Type: models.ShortText, Validation: models.TextRules{MinLength: ptr(10), Pattern: `^\d+$`}}
	assert.Empty(t, logic.ValidateQuestionResponse(q, "", nil))
}

func TestValidate_AllChecksRun(t *testing.T) {
	q := models.Question{ID: "code", Type: models.ShortText,
		Validation: models.TextRules{MinLength: ptr(5), Pattern: `^[A-Z]+$`}}
	errs := logic.ValidateQuestionResponse(q, "ab", nil)
	assert.Equal(t, []logic.ErrorKind{logic.ErrMinLength, logic.ErrPattern}, kinds(errs))

	q.Validation = models.TextRules{MaxLength: ptr(3), Pattern: "([", Message: "Use a short code"}
	errs = logic.ValidateQuestionResponse(q, "abcdef", nil)
	require.Len(t, errs, 1, "invalid pattern is skipped")
	assert.Equal(t, logic.ErrMaxLength, errs[0].Kind)
	assert.Equal(t, "Use a short code", errs[0].Message)
}

func TestValidate_Numeric(t *testing.T) {
	q := models.Question{ID: "years", Type: models.Numeric,
		Validation: models.NumericRules{Min: ptr(1.0), Max: ptr(40.0), Integer: true}}

	assert.Empty(t, logic.ValidateQuestionResponse(q, 5.0, nil))
	assert.Empty(t, logic.ValidateQuestionResponse(q, "12", nil))
	assert.Equal(t, []logic.ErrorKind{logic.ErrNotNumeric}, kinds(logic.ValidateQuestionResponse(q, "many", nil)))
	assert.Equal(t, []logic.ErrorKind{logic.ErrNotInteger, logic.ErrMinValue}, kinds(logic.ValidateQuestionResponse(q, 0.5, nil)))
	assert.Equal(t, []logic.ErrorKind{logic.ErrMaxValue}, kinds(logic.ValidateQuestionResponse(q, 41, nil)))
}

func TestValidate_Choices(t *testing.T) {
	single := models.Question{ID: "s", Type: models.SingleChoice, Options: []string{"a", "b"}}
	assert.Empty(t, logic.ValidateQuestionResponse(single, "a", nil))
	assert.Equal(t, []logic.ErrorKind{logic.ErrInvalidOption}, kinds(logic.ValidateQuestionResponse(single, "z", nil)))
	assert.Equal(t, []logic.ErrorKind{logic.ErrInvalidType}, kinds(logic.ValidateQuestionResponse(single, 3, nil)))

	multi := models.Question{ID: "m", Type: models.MultiChoice, Options: []string{"a", "b", "c"},
		Validation: models.ChoiceRules{MinSelections: ptr(2), MaxSelections: ptr(2)}}
	assert.Empty(t, logic.ValidateQuestionResponse(multi, []any{"a", "b"}, nil))
	assert.Equal(t, []logic.ErrorKind{logic.ErrMinSelections}, kinds(logic.ValidateQuestionResponse(multi, []string{"a"}, nil)))
	assert.Equal(t, []logic.ErrorKind{logic.ErrInvalidOption, logic.ErrMaxSelections}, kinds(logic.ValidateQuestionResponse(multi, []any{"a", "b", "x"}, nil)))
}

func TestValidate_File(t *testing.T) {
	q := models.Question{ID: "cv", Type: models.FileUpload, Required: true,
		Validation: models.FileRules{AllowedTypes: []string{".pdf", "image/*"}, MaxSize: 1024}}

	assert.Empty(t, logic.ValidateQuestionResponse(q, map[string]any{"name": "cv.PDF", "size": 100.0, "type": "application/pdf"}, nil))
	assert.Empty(t, logic.ValidateQuestionResponse(q, models.FileAnswer{Name: "me.png", Size: 10, Type: "image/png"}, nil))
	assert.Equal(t, []logic.ErrorKind{logic.ErrFileType, logic.ErrFileSize},
		kinds(logic.ValidateQuestionResponse(q, map[string]any{"name": "cv.docx", "size": 4096.0, "type": "application/msword"}, nil)))
	assert.Equal(t, []logic.ErrorKind{logic.ErrRequired}, kinds(logic.ValidateQuestionResponse(q, map[string]any{"name": ""}, nil)))
}

func TestValidate_HiddenIsNeverValidated(t *testing.T) {
	q := models.Question{ID: "why", Type: models.LongText, Required: true,
		ConditionalLogic: &models.ConditionalRule{DependsOn: "ok", Condition: models.CondEquals, Value: "no", Action: models.ActionShow}}
	assert.Empty(t, logic.ValidateQuestionResponse(q, "", map[string]any{"ok": "yes"}))
	assert.Len(t, logic.ValidateQuestionResponse(q, "", map[string]any{"ok": "no"}), 1)
}

const assessmentJSON = `{
  "id": "a1", "jobId": "j1", "title": "Screening",
  "sections": [
    {"id": "s2", "title": "Details", "order": 1, "questions": [
      {"id": "why", "type": "long-text", "title": "Why?", "order": 0,
       "conditionalLogic": {"dependsOn": "years", "condition": "less_than", "value": 2, "action": "require"}}
    ]},
    {"id": "s1", "title": "Basics", "order": 0, "questions": [
      {"id": "years", "type": "numeric", "title": "Years", "required": true, "order": 0,
       "validation": {"min": 0, "max": 50}},
      {"id": "remote", "type": "single-choice", "title": "Remote?", "options": ["yes", "no"], "order": 1},
      {"id": "where", "type": "short-text", "title": "Where?", "order": 2,
       "conditionalLogic": {"dependsOn": "remote", "condition": "equals", "value": "no", "action": "show"}}
    ]}
  ]
}`

func loadAssessment(t *testing.T) models.Assessment {
	t.Helper()
	var a models.Assessment
	require.NoError(t, json.Unmarshal([]byte(assessmentJSON), &a))
	return a
}

func ids(qs []models.Question) []string {
	out := []string{}
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestAggregates(t *testing.T) {
	a := loadAssessment(t)

	answers := map[string]any{"years": 1.0, "remote": "yes"}
	assert.Equal(t, []string{"years", "remote", "why"}, ids(logic.GetVisibleQuestions(a, answers)))
	assert.Equal(t, []string{"years", "why"}, ids(logic.GetRequiredQuestions(a, answers)))

	byQ := logic.ValidateAssessment(a, answers)
	require.Contains(t, byQ, "why")
	assert.Equal(t, logic.ErrRequired, byQ["why"][0].Kind)
	assert.Equal(t, []string{"s1"}, logic.CompletedSections(a, answers))
	assert.Equal(t, logic.Progress{Answered: 2, Total: 3}, logic.ComputeProgress(a, answers))
	assert.Equal(t, 66, logic.ComputeProgress(a, answers).Percent())
	assert.Contains(t, logic.Fields(byQ), "why")

	answers = map[string]any{"years": 10.0, "remote": "no", "where": "Lisbon"}
	assert.Equal(t, []string{"years", "remote", "where", "why"}, ids(logic.GetVisibleQuestions(a, answers)))
	assert.Empty(t, logic.ValidateAssessment(a, answers))
	assert.Equal(t, []string{"s1", "s2"}, logic.CompletedSections(a, answers))

	states := logic.Evaluate(a, map[string]any{"years": 99.0})
	require.Len(t, states, 4)
	assert.Equal(t, "years", states[0].Question.ID)
	assert.Equal(t, []logic.ErrorKind{logic.ErrMaxValue}, kinds(states[0].Errors))
	assert.False(t, states[2].Visible, "where is hidden until remote=no")
}
