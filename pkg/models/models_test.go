package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Senior Go Engineer":      "senior-go-engineer",
		"  C++ / Rust Developer ": "c-rust-developer",
		"QA--Lead!!":              "qa-lead",
		"":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestExtractMentions(t *testing.T) {
	assert.Equal(t, []string{"maria.silva", "joe"}, ExtractMentions("talked to @maria.silva and @joe. cc @joe"))
	assert.Equal(t, []string{}, ExtractMentions("no mentions here"))
	assert.Equal(t, []string{"ana"}, ExtractMentions("ping @ana, @ please"))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "remote"}, NormalizeTags([]string{" go ", "", "remote", "Go", "remote"}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}

func TestStageRank(t *testing.T) {
	assert.Equal(t, 0, StageApplied.Rank())
	assert.Equal(t, 5, StageRejected.Rank())
	assert.Equal(t, -1, Stage("lost").Rank())
	assert.False(t, Stage("lost").Valid())
}

func TestQuestionRulesDecodeByType(t *testing.T) {
	raw := `[
	  {"id":"a","type":"short-text","validation":{"minLength":2,"pattern":"^x"}},
	  {"id":"b","type":"numeric","validation":{"min":1,"integer":true}},
	  {"id":"c","type":"multi-choice","options":["x","y"],"validation":{"maxSelections":1}},
	  {"id":"d","type":"file-upload","validation":{"allowedTypes":[".pdf"],"maxSize":10}},
	  {"id":"e","type":"long-text"}
	]`
	var qs []Question
	require.NoError(t, json.Unmarshal([]byte(raw), &qs))

	require.IsType(t, TextRules{}, qs[0].Validation)
	assert.Equal(t, 2, *qs[0].Validation.(TextRules).MinLength)
	require.IsType(t, NumericRules{}, qs[1].Validation)
	assert.True(t, qs[1].Validation.(NumericRules).Integer)
	require.IsType(t, ChoiceRules{}, qs[2].Validation)
	require.IsType(t, FileRules{}, qs[3].Validation)
	assert.Nil(t, qs[4].Validation)

	b, err := json.Marshal(qs[0])
	require.NoError(t, err)
	var back Question
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, qs[0], back)

	var bad Question
	assert.Error(t, json.Unmarshal([]byte(`{"id":"z","type":"drawing","validation":{}}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"z","type":"short-text","conditionalLogic":{"dependsOn":"a","condition":"bigger","action":"show"}}`), &bad))
}

func TestConditionText(t *testing.T) {
	for c := CondEquals; c < NumConditions; c++ {
		b, err := c.MarshalText()
		require.NoError(t, err)
		back, err := ParseCondition(string(b))
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
	_, err := Condition(0).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Condition(0)", Condition(0).String())
}

func sample() Assessment {
	min := 3
	return Assessment{ID: "a1", JobID: "j1", Title: "T", Sections: []AssessmentSection{{
		ID: "s1", Order: 0, Questions: []Question{
			{ID: "q1", Type: SingleChoice, Options: []string{"yes", "no"}},
			{ID: "q2", Type: ShortText, Validation: TextRules{MinLength: &min},
				ConditionalLogic: &ConditionalRule{DependsOn: "q1", Condition: CondEquals, Value: "yes", Action: ActionShow}},
		},
	}}}
}

func TestAssessmentCloneIsDeep(t *testing.T) {
	a := sample()
	c := a.Clone()
	c.Sections[0].Questions[0].Options[0] = "maybe"
	*c.Sections[0].Questions[1].Validation.(TextRules).MinLength = 9
	c.Sections[0].Questions[1].ConditionalLogic.DependsOn = "zz"

	assert.Equal(t, "yes", a.Sections[0].Questions[0].Options[0])
	assert.Equal(t, 3, *a.Sections[0].Questions[1].Validation.(TextRules).MinLength)
	assert.Equal(t, "q1", a.Sections[0].Questions[1].ConditionalLogic.DependsOn)
}

func TestAssessmentDuplicate(t *testing.T) {
	n := 0
	newID := func() string { n++; return fmt.Sprintf("id%d", n) }

	d := sample().Duplicate("j2", newID)
	assert.Equal(t, "j2", d.JobID)
	assert.Empty(t, d.ID)
	assert.Equal(t, "id1", d.Sections[0].ID)
	assert.Equal(t, "id2", d.Sections[0].Questions[0].ID)
	assert.Equal(t, "id3", d.Sections[0].Questions[1].ID)
	assert.Equal(t, "id2", d.Sections[0].Questions[1].ConditionalLogic.DependsOn)
}

func TestQuestionsOrdering(t *testing.T) {
	a := Assessment{Sections: []AssessmentSection{
		{ID: "b", Order: 1, Questions: []Question{{ID: "b2", Order: 2}, {ID: "b1", Order: 1}}},
		{ID: "a", Order: 0, Questions: []Question{{ID: "a1"}}},
	}}
	var ids []string
	for _, q := range a.Questions() {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"a1", "b1", "b2"}, ids)

	q, ok := a.Question("b2")
	assert.True(t, ok)
	assert.Equal(t, 2, q.Order)
}

func TestAsFileAnswer(t *testing.T) {
	f, ok := AsFileAnswer(map[string]any{"name": "cv.pdf", "size": 12.0, "type": "application/pdf"})
	require.True(t, ok)
	assert.Equal(t, FileAnswer{Name: "cv.pdf", Size: 12, Type: "application/pdf"}, f)

	_, ok = AsFileAnswer("cv.pdf")
	assert.False(t, ok)
	_, ok = AsFileAnswer((*FileAnswer)(nil))
	assert.False(t, ok)
}

func TestMergeAnswers(t *testing.T) {
	base := map[string]any{"a": "1", "b": []any{"x"}}
	out := MergeAnswers(base, map[string]any{"b": nil, "c": 3.0})
	assert.Equal(t, map[string]any{"a": "1", "c": 3.0}, out)
	assert.Len(t, base, 2, "base is not modified")
}

func TestJobPatch(t *testing.T) {
	var p JobPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"New","tags":["a"," a ","b"]}`), &p))
	assert.True(t, p.Title.IsPresent())
	assert.True(t, p.Slug.IsAbsent())
	assert.True(t, p.Status.IsAbsent())

	j := Job{Title: "Old", Slug: "old", Status: JobActive, Description: "keep"}
	p.Apply(&j)
	assert.Equal(t, "New", j.Title)
	assert.Equal(t, "old", j.Slug)
	assert.Equal(t, []string{"a", "b"}, j.Tags)
	assert.Equal(t, "keep", j.Description)

	b, err := json.Marshal(JobPatch{Status: mo.Some(JobArchived)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"archived"}`, string(b))
}

func TestCandidatePatch(t *testing.T) {
	var p CandidatePatch
	require.NoError(t, json.Unmarshal([]byte(`{"stage":"tech"}`), &p))
	c := Candidate{Name: "Ana", Stage: StageApplied, JobID: "j1"}
	p.Apply(&c)
	assert.Equal(t, StageTech, c.Stage)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "j1", c.JobID)
}

func TestResponsePatch(t *testing.T) {
	var p ResponsePatch
	require.NoError(t, json.Unmarshal([]byte(`{"responses":{"q2":"two","q1":null},"isComplete":true}`), &p))

	r := AssessmentResponse{Responses: map[string]any{"q1": "one", "q3": "three"}}
	p.Apply(&r)
	assert.Equal(t, map[string]any{"q2": "two", "q3": "three"}, r.Responses)
	assert.True(t, r.IsComplete)
	assert.Nil(t, r.SubmittedAt)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	ResponsePatch{SubmittedAt: mo.Some(at)}.Apply(&r)
	require.NotNil(t, r.SubmittedAt)
	assert.Equal(t, time.UTC, r.SubmittedAt.Location())
	assert.True(t, at.Equal(*r.SubmittedAt))
}

func TestResponseCloneIsDeep(t *testing.T) {
	at := time.Now()
	r := AssessmentResponse{Responses: map[string]any{"m": []any{"a"}}, CompletedSections: []string{"s1"}, SubmittedAt: &at}
	c := r.Clone()
	c.Responses["m"].([]any)[0] = "b"
	c.CompletedSections[0] = "s2"
	*c.SubmittedAt = at.Add(time.Hour)

	assert.Equal(t, "a", r.Responses["m"].([]any)[0])
	assert.Equal(t, "s1", r.CompletedSections[0])
	assert.True(t, r.SubmittedAt.Equal(at))
}
