package logic

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/garnizeh/talentflow/pkg/models"
)

type ErrorKind string

const (
	ErrRequired      ErrorKind = "required"
	ErrMinLength     ErrorKind = "min_length"
	ErrMaxLength     ErrorKind = "max_length"
	ErrPattern       ErrorKind = "pattern"
	ErrMinValue      ErrorKind = "min_value"
	ErrMaxValue      ErrorKind = "max_value"
	ErrNotNumeric    ErrorKind = "not_numeric"
	ErrNotInteger    ErrorKind = "not_integer"
	ErrInvalidOption ErrorKind = "invalid_option"
	ErrMinSelections ErrorKind = "min_selections"
	ErrMaxSelections ErrorKind = "max_selections"
	ErrFileType      ErrorKind = "file_type"
	ErrFileSize      ErrorKind = "file_size"
	ErrInvalidType   ErrorKind = "invalid_type"
)

// ValidationError is a problem with one answer, shown next to its question.
type ValidationError struct {
	QuestionID string    `json:"questionId"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
}

func (e ValidationError) Error() string { return e.QuestionID + ": " + e.Message }

// ValidateQuestionResponse returns every problem with value as an answer to
// q. Hidden and disabled questions are not validated. An empty answer yields
// only a required error, and only when the question is required; format
// checks run on non-empty answers and all of them run.
func ValidateQuestionResponse(q models.Question, value any, responses map[string]any) []ValidationError {
	if !ShouldShow(q, responses) || ShouldDisable(q, responses) {
		return nil
	}
	if IsEmpty(value) || isEmptyFile(q, value) {
		if ShouldRequire(q, responses) {
			return []ValidationError{{QuestionID: q.ID, Kind: ErrRequired, Message: "This question is required"}}
		}
		return nil
	}

	var (
		found  []ValidationError
		custom string
	)
	add := func(kind ErrorKind, format string, args ...any) {
		found = append(found, ValidationError{QuestionID: q.ID, Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	switch q.Type {
	case models.ShortText, models.LongText:
		rules := rulesAs[models.TextRules](q.Validation)
		custom = rules.Message
		checkText(value, rules, add)
	case models.Numeric:
		rules := rulesAs[models.NumericRules](q.Validation)
		custom = rules.Message
		checkNumber(value, rules, add)
	case models.SingleChoice:
		rules := rulesAs[models.ChoiceRules](q.Validation)
		custom = rules.Message
		checkSingle(value, q.Options, add)
	case models.MultiChoice:
		rules := rulesAs[models.ChoiceRules](q.Validation)
		custom = rules.Message
		checkMulti(value, q.Options, rules, add)
	case models.FileUpload:
		rules := rulesAs[models.FileRules](q.Validation)
		custom = rules.Message
		checkFile(value, rules, add)
	default:
		add(ErrInvalidType, "Unknown question type %q", q.Type)
	}

	if custom != "" {
		for i := range found {
			found[i].Message = custom
		}
	}
	return found
}

// rulesAs returns the rules of the expected shape, or the zero rules when the
// question carries none (or a shape for another type).
func rulesAs[R models.ValidationRules](v models.ValidationRules) R {
	switch t := any(v).(type) {
	case R:
		return t
	case *R:
		if t != nil {
			return *t
		}
	}
	var zero R
	return zero
}

type addFunc func(kind ErrorKind, format string, args ...any)

func isEmptyFile(q models.Question, v any) bool {
	if q.Type != models.FileUpload {
		return false
	}
	if m, ok := v.(map[string]any); ok {
		name, _ := m["name"].(string)
		return name == ""
	}
	return false
}

func checkText(v any, r models.TextRules, add addFunc) {
	s, ok := v.(string)
	if !ok {
		add(ErrInvalidType, "Answer must be text")
		return
	}
	n := utf8.RuneCountInString(s)
	if r.MinLength != nil && n < *r.MinLength {
		add(ErrMinLength, "Must be at least %d characters", *r.MinLength)
	}
	if r.MaxLength != nil && n > *r.MaxLength {
		add(ErrMaxLength, "Must be at most %d characters", *r.MaxLength)
	}
	if r.Pattern != "" {
		// an invalid pattern is skipped rather than failing every answer
		if re, err := regexp.Compile(r.Pattern); err == nil && !re.MatchString(s) {
			add(ErrPattern, "Invalid format")
		}
	}
}

func checkNumber(v any, r models.NumericRules, add addFunc) {
	f, ok := toFloat(v)
	if !ok {
		add(ErrNotNumeric, "Must be a number")
		return
	}
	if r.Integer && f != float64(int64(f)) {
		add(ErrNotInteger, "Must be a whole number")
	}
	if r.Min != nil && f < *r.Min {
		add(ErrMinValue, "Must be at least %s", stringify(*r.Min))
	}
	if r.Max != nil && f > *r.Max {
		add(ErrMaxValue, "Must be at most %s", stringify(*r.Max))
	}
}

func checkSingle(v any, options []string, add addFunc) {
	s, ok := v.(string)
	if !ok {
		add(ErrInvalidType, "Select one option")
		return
	}
	if len(options) > 0 && !slices.Contains(options, s) {
		add(ErrInvalidOption, "%q is not one of the options", s)
	}
}

func selections(v any) ([]string, bool) {
	switch t := any(v).(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func checkMulti(v any, options []string, r models.ChoiceRules, add addFunc) {
	sel, ok := selections(v)
	if !ok {
		add(ErrInvalidType, "Select one or more options")
		return
	}
	if len(options) > 0 {
		for _, s := range sel {
			if !slices.Contains(options, s) {
				add(ErrInvalidOption, "%q is not one of the options", s)
				break
			}
		}
	}
	if r.MinSelections != nil && len(sel) < *r.MinSelections {
		add(ErrMinSelections, "Select at least %d options", *r.MinSelections)
	}
	if r.MaxSelections != nil && len(sel) > *r.MaxSelections {
		add(ErrMaxSelections, "Select at most %d options", *r.MaxSelections)
	}
}

func checkFile(v any, r models.FileRules, add addFunc) {
	f, ok := models.AsFileAnswer(v)
	if !ok {
		add(ErrInvalidType, "Upload a file")
		return
	}
	if len(r.AllowedTypes) > 0 && !fileTypeAllowed(f, r.AllowedTypes) {
		add(ErrFileType, "File type must be one of %s", strings.Join(r.AllowedTypes, ", "))
	}
	if r.MaxSize > 0 && f.Size > r.MaxSize {
		add(ErrFileSize, "File must be at most %d bytes", r.MaxSize)
	}
}

// fileTypeAllowed matches extensions (".pdf"), MIME types ("application/pdf")
// and MIME families ("image/*").
func fileTypeAllowed(f models.FileAnswer, allowed []string) bool {
	ext := strings.ToLower(path.Ext(f.Name))
	mime := strings.ToLower(f.Type)
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case strings.HasPrefix(a, "."):
			if ext == a {
				return true
			}
		case strings.HasSuffix(a, "/*"):
			if strings.HasPrefix(mime, strings.TrimSuffix(a, "*")) {
				return true
			}
		case mime == a:
			return true
		}
	}
	return false
}
