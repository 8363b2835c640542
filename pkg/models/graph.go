package models

// CandidateGraph is a candidate together with every row it owns. It is what a
// cascading delete removes and what a rollback puts back.
type CandidateGraph struct {
	Candidate Candidate            `json:"candidate"`
	Notes     []CandidateNote      `json:"notes"`
	Events    []TimelineEvent      `json:"events"`
	Responses []AssessmentResponse `json:"responses"`
}

// JobGraph is a job with its candidates, assessment and responses, plus the
// order of every other job at capture time (deleting a job re-densifies them).
type JobGraph struct {
	Job        Job                  `json:"job"`
	Candidates []CandidateGraph     `json:"candidates"`
	Assessment *Assessment          `json:"assessment,omitempty"`
	Responses  []AssessmentResponse `json:"responses"`
	Orders     map[string]int       `json:"orders"`
}

// Snapshot is the full content of a store in insertion order.
type Snapshot struct {
	Jobs        []Job                `json:"jobs"`
	Candidates  []Candidate          `json:"candidates"`
	Notes       []CandidateNote      `json:"notes"`
	Events      []TimelineEvent      `json:"events"`
	Assessments []Assessment         `json:"assessments"`
	Responses   []AssessmentResponse `json:"responses"`
}
