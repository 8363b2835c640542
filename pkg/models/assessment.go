package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
	ShortText    QuestionType = "short-text"
	LongText     QuestionType = "long-text"
	Numeric      QuestionType = "numeric"
	FileUpload   QuestionType = "file-upload"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultiChoice, ShortText, LongText, Numeric, FileUpload:
		return true
	}
	return false
}

// IsChoice reports whether questions of this type carry options.
func (t QuestionType) IsChoice() bool { return t == SingleChoice || t == MultiChoice }

// IsText reports whether answers of this type are free text.
func (t QuestionType) IsText() bool { return t == ShortText || t == LongText }

type Assessment struct {
	ID        string              `json:"id" db:"id"`
	JobID     string              `json:"jobId" db:"job_id" validate:"required"`
	Title     string              `json:"title" db:"title" validate:"required,max=200"`
	Sections  []AssessmentSection `json:"sections" db:"sections" validate:"dive"`
	CreatedAt time.Time           `json:"createdAt" db:"created"`
	UpdatedAt time.Time           `json:"updatedAt" db:"updated"`
	Seq       int64               `json:"-" db:"seq"`
}

type AssessmentSection struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions" validate:"dive"`
	Order       int        `json:"order"`
}

type Question struct {
	ID               string           `json:"id" validate:"required"`
	Type             QuestionType     `json:"type" validate:"oneof=single-choice multi-choice short-text long-text numeric file-upload"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Required         bool             `json:"required"`
	Options          []string         `json:"options,omitempty"`
	Validation       ValidationRules  `json:"validation,omitempty"`
	ConditionalLogic *ConditionalRule `json:"conditionalLogic,omitempty"`
	Order            int              `json:"order"`
}

// ValidationRules is the closed set of per-type validation rule shapes:
// TextRules, NumericRules, ChoiceRules and FileRules.
type ValidationRules interface {
	isValidationRules()
	cloneRules() ValidationRules
}

type TextRules struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Message   string `json:"customMessage,omitempty"`
}

type NumericRules struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Integer bool     `json:"integer,omitempty"`
	Message string   `json:"customMessage,omitempty"`
}

type ChoiceRules struct {
	MinSelections *int   `json:"minSelections,omitempty"`
	MaxSelections *int   `json:"maxSelections,omitempty"`
	Message       string `json:"customMessage,omitempty"`
}

// FileRules constrains uploads. AllowedTypes entries are either extensions
// (".pdf") or MIME types ("application/pdf"); MaxSize is in bytes.
type FileRules struct {
	AllowedTypes []string `json:"allowedTypes,omitempty"`
	MaxSize      int64    `json:"maxSize,omitempty"`
	Message      string   `json:"customMessage,omitempty"`
}

func (TextRules) isValidationRules()    {}
func (NumericRules) isValidationRules() {}
func (ChoiceRules) isValidationRules()  {}
func (FileRules) isValidationRules()    {}

func (r TextRules) cloneRules() ValidationRules {
	r.MinLength = clonePtr(r.MinLength)
	r.MaxLength = clonePtr(r.MaxLength)
	return r
}

func (r NumericRules) cloneRules() ValidationRules {
	r.Min = clonePtr(r.Min)
	r.Max = clonePtr(r.Max)
	return r
}

func (r ChoiceRules) cloneRules() ValidationRules {
	r.MinSelections = clonePtr(r.MinSelections)
	r.MaxSelections = clonePtr(r.MaxSelections)
	return r
}

func (r FileRules) cloneRules() ValidationRules {
	r.AllowedTypes = slices.Clone(r.AllowedTypes)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// decodeRules picks the rule shape from the question type.
func decodeRules(t QuestionType, raw json.RawMessage) (ValidationRules, error) {
	switch t {
	case ShortText, LongText:
		var r TextRules
		err := json.Unmarshal(raw, &r)
		return r, err
	case Numeric:
		var r NumericRules
		err := json.Unmarshal(raw, &r)
		return r, err
	case SingleChoice, MultiChoice:
		var r ChoiceRules
		err := json.Unmarshal(raw, &r)
		return r, err
	case FileUpload:
		var r FileRules
		err := json.Unmarshal(raw, &r)
		return r, err
	}
	return nil, fmt.Errorf("validation rules for unknown question type %q", t)
}

func (q *Question) UnmarshalJSON(b []byte) error {
	type alias Question
	aux := struct {
		*alias
		Validation json.RawMessage `json:"validation,omitempty"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	q.Validation = nil
	if len(aux.Validation) == 0 || string(aux.Validation) == "null" {
		return nil
	}
	rules, err := decodeRules(q.Type, aux.Validation)
	if err != nil {
		return fmt.Errorf("question %s: %w", q.ID, err)
	}
	q.Validation = rules
	return nil
}

// Condition is the closed set of comparisons a ConditionalRule can apply.
type Condition uint8

const (
	CondEquals Condition = iota + 1
	CondNotEquals
	CondContains
	CondNotContains
	CondGreaterThan
	CondLessThan
	CondGreaterEqual
	CondLessEqual
	CondIsEmpty
	CondIsNotEmpty

	// NumConditions bounds lookup tables indexed by Condition.
	NumConditions
)

var conditionNames = [NumConditions]string{
	CondEquals:       "equals",
	CondNotEquals:    "not_equals",
	CondContains:     "contains",
	CondNotContains:  "not_contains",
	CondGreaterThan:  "greater_than",
	CondLessThan:     "less_than",
	CondGreaterEqual: "greater_equal",
	CondLessEqual:    "less_equal",
	CondIsEmpty:      "is_empty",
	CondIsNotEmpty:   "is_not_empty",
}

func (c Condition) Valid() bool { return c > 0 && c < NumConditions }

func (c Condition) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Condition(%d)", uint8(c))
	}
	return conditionNames[c]
}

func (c Condition) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid condition %d", uint8(c))
	}
	return []byte(conditionNames[c]), nil
}

func (c *Condition) UnmarshalText(b []byte) error {
	v, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func ParseCondition(s string) (Condition, error) {
	for i := CondEquals; i < NumConditions; i++ {
		if conditionNames[i] == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown condition %q", s)
}

type Action uint8

const (
	ActionShow Action = iota + 1
	ActionHide
	ActionRequire
	ActionDisable
)

var actionNames = map[Action]string{
	ActionShow:    "show",
	ActionHide:    "hide",
	ActionRequire: "require",
	ActionDisable: "disable",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

func (a Action) MarshalText() ([]byte, error) {
	n, ok := actionNames[a]
	if !ok {
		return nil, fmt.Errorf("invalid action %d", uint8(a))
	}
	return []byte(n), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	for k, n := range actionNames {
		if n == string(b) {
			*a = k
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", string(b))
}

// ConditionalRule makes a question's state depend on another question's answer.
type ConditionalRule struct {
	DependsOn string    `json:"dependsOn" validate:"required"`
	Condition Condition `json:"condition"`
	Value     any       `json:"value,omitempty"`
	Action    Action    `json:"action"`
}

// FileAnswer is the answer shape of a file-upload question.
type FileAnswer struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// AsFileAnswer accepts a FileAnswer or its decoded JSON object form.
func AsFileAnswer(v any) (FileAnswer, bool) {
	switch f := v.(type) {
	case FileAnswer:
		return f, true
	case *FileAnswer:
		if f == nil {
			return FileAnswer{}, false
		}
		return *f, true
	case map[string]any:
		name, _ := f["name"].(string)
		typ, _ := f["type"].(string)
		var size int64
		switch s := f["size"].(type) {
		case float64:
			size = int64(s)
		case int:
			size = int64(s)
		case int64:
			size = s
		}
		if name == "" {
			return FileAnswer{}, false
		}
		return FileAnswer{Name: name, Size: size, Type: typ}, true
	}
	return FileAnswer{}, false
}

// Questions flattens the assessment in section order, then question order.
func (a Assessment) Questions() []Question {
	sections := slices.Clone(a.Sections)
	slices.SortStableFunc(sections, func(x, y AssessmentSection) int { return x.Order - y.Order })
	var out []Question
	for _, s := range sections {
		out = append(out, s.SortedQuestions()...)
	}
	return out
}

// SortedQuestions returns the section's questions ordered by Order.
func (s AssessmentSection) SortedQuestions() []Question {
	qs := slices.Clone(s.Questions)
	slices.SortStableFunc(qs, func(x, y Question) int { return x.Order - y.Order })
	return qs
}

// Question looks up a question by id across all sections.
func (a Assessment) Question(id string) (Question, bool) {
	for _, s := range a.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}

// Clone returns a deep copy; sections and questions are owned by value.
func (a Assessment) Clone() Assessment {
	out := a
	out.Sections = make([]AssessmentSection, len(a.Sections))
	for i, s := range a.Sections {
		s.Questions = make([]Question, len(a.Sections[i].Questions))
		for j, q := range a.Sections[i].Questions {
			s.Questions[j] = q.Clone()
		}
		out.Sections[i] = s
	}
	return out
}

func (q Question) Clone() Question {
	out := q
	out.Options = slices.Clone(q.Options)
	if q.Validation != nil {
		out.Validation = q.Validation.cloneRules()
	}
	if q.ConditionalLogic != nil {
		r := *q.ConditionalLogic
		r.Value = CloneValue(r.Value)
		out.ConditionalLogic = &r
	}
	return out
}

// Duplicate deep-copies the assessment for another job, assigning fresh ids to
// the assessment, its sections and questions and rewriting conditional
// references to the new question ids.
func (a Assessment) Duplicate(jobID string, newID func() string) Assessment {
	out := a.Clone()
	out.ID = ""
	out.JobID = jobID
	out.Seq = 0
	out.CreatedAt, out.UpdatedAt = time.Time{}, time.Time{}
	ids := map[string]string{}
	for i := range out.Sections {
		out.Sections[i].ID = newID()
		for j := range out.Sections[i].Questions {
			q := &out.Sections[i].Questions[j]
			fresh := newID()
			ids[q.ID] = fresh
			q.ID = fresh
		}
	}
	for i := range out.Sections {
		for j := range out.Sections[i].Questions {
			if r := out.Sections[i].Questions[j].ConditionalLogic; r != nil {
				if fresh, ok := ids[r.DependsOn]; ok {
					r.DependsOn = fresh
				}
			}
		}
	}
	return out
}

// CloneValue deep-copies JSON-shaped answer values.
func CloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	}
	return v
}
