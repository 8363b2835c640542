package models

// Domain models matching the database schema in db/migrations/0001_init.sql

import (
	"regexp"
	"strings"
	"time"
)

type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobArchived JobStatus = "archived"
)

type Stage string

const (
	StageApplied  Stage = "applied"
	StageScreen   Stage = "screen"
	StageTech     Stage = "tech"
	StageOffer    Stage = "offer"
	StageHired    Stage = "hired"
	StageRejected Stage = "rejected"
)

// Stages lists the pipeline in display order.
var Stages = []Stage{StageApplied, StageScreen, StageTech, StageOffer, StageHired, StageRejected}

// Rank returns the pipeline position of s, -1 for unknown stages.
func (s Stage) Rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool { return s.Rank() >= 0 }

type EventType string

const (
	EventStageChange         EventType = "stage_change"
	EventNoteAdded           EventType = "note_added"
	EventAssessmentCompleted EventType = "assessment_completed"
	EventInterviewScheduled  EventType = "interview_scheduled"
	EventOther               EventType = "other"
)

type Job struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title" validate:"required,max=200"`
	Slug         string    `json:"slug" db:"slug" validate:"required,max=200"`
	Status       JobStatus `json:"status" db:"status" validate:"oneof=active archived"`
	Tags         []string  `json:"tags" db:"tags"`
	Order        int       `json:"order" db:"ord" validate:"gte=0"`
	Description  string    `json:"description" db:"description"`
	Requirements []string  `json:"requirements" db:"requirements"`
	CreatedAt    time.Time `json:"createdAt" db:"created"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated"`
	Seq          int64     `json:"-" db:"seq"`
}

type Candidate struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,max=200"`
	Email     string    `json:"email" db:"email" validate:"required,email"`
	Stage     Stage     `json:"stage" db:"stage" validate:"oneof=applied screen tech offer hired rejected"`
	JobID     string    `json:"jobId" db:"job_id" validate:"required"`
	AppliedAt time.Time `json:"appliedAt" db:"applied"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated"`
	Seq       int64     `json:"-" db:"seq"`
}

type CandidateNote struct {
	ID          string    `json:"id" db:"id"`
	CandidateID string    `json:"candidateId" db:"candidate_id" validate:"required"`
	Content     string    `json:"content" db:"content" validate:"required"`
	AuthorID    string    `json:"authorId" db:"author_id"`
	AuthorName  string    `json:"authorName" db:"author_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created"`
	Mentions    []string  `json:"mentions" db:"mentions"`
	Seq         int64     `json:"-" db:"seq"`
}

type TimelineEvent struct {
	ID          string         `json:"id" db:"id"`
	CandidateID string         `json:"candidateId" db:"candidate_id" validate:"required"`
	Type        EventType      `json:"type" db:"type" validate:"oneof=stage_change note_added assessment_completed interview_scheduled other"`
	Description string         `json:"description" db:"description"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time      `json:"createdAt" db:"created"`
	CreatedBy   string         `json:"createdBy,omitempty" db:"created_by"`
	Seq         int64          `json:"-" db:"seq"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a job title.
func Slugify(title string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

var mentionRe = regexp.MustCompile(`@([\p{L}\p{N}_][\p{L}\p{N}_.\-]*)`)

// ExtractMentions returns the names referenced by @mention tokens, in order of
// first appearance and without duplicates.
func ExtractMentions(content string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range mentionRe.FindAllStringSubmatch(content, -1) {
		name := strings.TrimRight(m[1], ".-")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// NormalizeTags trims, drops empties and removes duplicates keeping first
// occurrence order. Tags are a set.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
