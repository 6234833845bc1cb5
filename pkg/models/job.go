package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FrequencyHourly = "hourly"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// JobConfig is a user's saved automation for one portal: what to search,
// how to filter, when to run and how the oracle should speak for them.
// The engine only reads it and stamps LastRun/NextRun.
type JobConfig struct {
	ID            uuid.UUID            `db:"id"             json:"id"`
	UserID        uuid.UUID            `db:"user_id"        json:"user_id"`
	Portal        string               `db:"portal"         json:"portal"`
	Search        SearchCriteria       `db:"search"         json:"search"`
	Filter        FilterCriteria       `db:"filter"         json:"filter"`
	Schedule      Schedule             `db:"schedule"       json:"schedule"`
	AITraining    string               `db:"ai_training"    json:"ai_training"`
	Notifications []NotificationTarget `db:"notifications"  json:"notifications,omitempty"`
	IsActive      bool                 `db:"is_active"      json:"is_active"`
	LastRun       *time.Time           `db:"last_run"       json:"last_run,omitempty"`
	NextRun       *time.Time           `db:"next_run"       json:"next_run,omitempty"`
	UpdatedAt     time.Time            `db:"updated_at"     json:"updated_at"`
}

type SearchCriteria struct {
	Keywords      string `json:"keywords"`
	Location      string `json:"location"`
	MinExperience int    `json:"min_experience"`
	MaxExperience int    `json:"max_experience"`
	JobType       string `json:"job_type,omitempty"`
}

type FilterCriteria struct {
	Location          string   `json:"location,omitempty"`
	MinExperience     int      `json:"min_experience,omitempty"`
	MaxExperience     int      `json:"max_experience,omitempty"`
	RequiredSkills    []string `json:"required_skills,omitempty"`
	MinRating         float64  `json:"min_rating,omitempty"`
	ExcludedCompanies []string `json:"excluded_companies,omitempty"`
}

// Schedule describes when a JobConfig is due. Days is only read for weekly
// and custom frequencies, IntervalHours only for hourly.
type Schedule struct {
	Frequency     string         `json:"frequency"`
	Days          []time.Weekday `json:"days,omitempty"`
	TimeOfDay     string         `json:"time,omitempty"` // HH:MM
	IntervalHours int            `json:"interval_hours,omitempty"`
}

// EffectiveFilter fills the gaps of the stored filter from the search
// criteria: keywords double as required skills, and location and experience
// fall back to what was searched for.
func (c JobConfig) EffectiveFilter() FilterCriteria {
	f := c.Filter
	if len(f.RequiredSkills) == 0 {
		f.RequiredSkills = SplitKeywords(c.Search.Keywords)
	}
	if f.Location == "" {
		f.Location = c.Search.Location
	}
	if f.MinExperience == 0 && f.MaxExperience == 0 {
		f.MinExperience = c.Search.MinExperience
		f.MaxExperience = c.Search.MaxExperience
	}
	return f
}

// SplitKeywords splits a comma-separated keyword string, dropping blanks.
func SplitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
