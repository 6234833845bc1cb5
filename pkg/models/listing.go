package models

import (
	"time"

	"github.com/google/uuid"
)

// JobListing is one search result as scraped from a portal. All fields are
// the raw display text; parsing happens in the filter.
type JobListing struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Experience  string   `json:"experience"`
	Salary      string   `json:"salary"`
	Rating      string   `json:"rating"`
	Reviews     string   `json:"reviews"`
	PostedOn    string   `json:"posted_on"`
	Skills      []string `json:"skills"`
	Description string   `json:"description"`
	ApplyLink   string   `json:"apply_link"`
}

const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ApplicationOutcome is the terminal result of one listing in one cycle.
type ApplicationOutcome struct {
	ID          uuid.UUID  `db:"id"            json:"id"`
	JobConfigID uuid.UUID  `db:"job_config_id" json:"job_config_id"`
	Portal      string     `db:"portal"        json:"portal"`
	Listing     JobListing `db:"listing"       json:"listing"`
	Kind        string     `db:"kind"          json:"kind"`
	Reason      string     `db:"reason"        json:"reason,omitempty"`
	CreatedAt   time.Time  `db:"created_at"    json:"created_at"`
}
