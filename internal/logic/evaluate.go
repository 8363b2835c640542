package logic

import (
	"slices"

	"github.com/garnizeh/talentflow/pkg/models"
)

// ShouldShow: a question without a rule is visible. "show" makes it visible
// only while the condition holds, "hide" while it does not.
func ShouldShow(q models.Question, responses map[string]any) bool {
	r := q.ConditionalLogic
	if r == nil {
		return true
	}
	switch r.Action {
	case models.ActionShow:
		return Holds(*r, responses)
	case models.ActionHide:
		return !Holds(*r, responses)
	}
	return true
}

func ShouldDisable(q models.Question, responses map[string]any) bool {
	r := q.ConditionalLogic
	return r != nil && r.Action == models.ActionDisable && Holds(*r, responses)
}

// ShouldRequire ORs the base flag with a "require" rule. Hidden and disabled
// questions are never required.
func ShouldRequire(q models.Question, responses map[string]any) bool {
	if !ShouldShow(q, responses) || ShouldDisable(q, responses) {
		return false
	}
	if q.Required {
		return true
	}
	r := q.ConditionalLogic
	return r != nil && r.Action == models.ActionRequire && Holds(*r, responses)
}

// State is the evaluated state of one question.
type State struct {
	Question models.Question   `json:"question"`
	Visible  bool              `json:"visible"`
	Required bool              `json:"required"`
	Disabled bool              `json:"disabled"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// Evaluate computes the state of every question in assessment order.
func Evaluate(a models.Assessment, responses map[string]any) []State {
	qs := a.Questions()
	out := make([]State, 0, len(qs))
	for _, q := range qs {
		out = append(out, State{
			Question: q,
			Visible:  ShouldShow(q, responses),
			Required: ShouldRequire(q, responses),
			Disabled: ShouldDisable(q, responses),
			Errors:   ValidateQuestionResponse(q, responses[q.ID], responses),
		})
	}
	return out
}

func GetVisibleQuestions(a models.Assessment, responses map[string]any) []models.Question {
	out := []models.Question{}
	for _, q := range a.Questions() {
		if ShouldShow(q, responses) {
			out = append(out, q)
		}
	}
	return out
}

func GetRequiredQuestions(a models.Assessment, responses map[string]any) []models.Question {
	out := []models.Question{}
	for _, q := range a.Questions() {
		if ShouldRequire(q, responses) {
			out = append(out, q)
		}
	}
	return out
}

// ValidateAssessment validates every visible question and returns the errors
// keyed by question id. An empty map means the answers can be submitted.
func ValidateAssessment(a models.Assessment, responses map[string]any) map[string][]ValidationError {
	out := map[string][]ValidationError{}
	for _, q := range a.Questions() {
		if errs := ValidateQuestionResponse(q, responses[q.ID], responses); len(errs) > 0 {
			out[q.ID] = errs
		}
	}
	return out
}

// Fields flattens validation errors to one message per question.
func Fields(byQuestion map[string][]ValidationError) map[string]string {
	out := make(map[string]string, len(byQuestion))
	for id, errs := range byQuestion {
		if len(errs) > 0 {
			out[id] = errs[0].Message
		}
	}
	return out
}

type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// Percent is the rounded-down share of answered visible questions.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Answered * 100 / p.Total
}

// ComputeProgress counts answered questions among the visible, enabled ones.
func ComputeProgress(a models.Assessment, responses map[string]any) Progress {
	var p Progress
	for _, q := range a.Questions() {
		if !ShouldShow(q, responses) || ShouldDisable(q, responses) {
			continue
		}
		p.Total++
		if !IsEmpty(responses[q.ID]) {
			p.Answered++
		}
	}
	return p
}

// CompletedSections lists the sections whose visible questions are all valid
// and whose required questions are all answered.
func CompletedSections(a models.Assessment, responses map[string]any) []string {
	sections := slices.Clone(a.Sections)
	slices.SortStableFunc(sections, func(x, y models.AssessmentSection) int { return x.Order - y.Order })
	out := []string{}
	for _, s := range sections {
		done := true
		for _, q := range s.Questions {
			if len(ValidateQuestionResponse(q, responses[q.ID], responses)) > 0 {
				done = false
				break
			}
		}
		if done {
			out = append(out, s.ID)
		}
	}
	return out
}
