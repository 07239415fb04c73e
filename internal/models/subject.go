package models

import "time"

// LanguageGroup tags subjects that are elective alternatives of each other
// within the language slots of a section's week.
type LanguageGroup string

const (
	LanguageGroupNone   LanguageGroup = "NONE"
	LanguageGroupSecond LanguageGroup = "SECOND_LANGUAGE"
	LanguageGroupThird  LanguageGroup = "THIRD_LANGUAGE"
)

// StreamGroup tags subjects belonging to an academic stream whose electives
// should be co-scheduled across sections.
type StreamGroup string

const (
	StreamGroupNone       StreamGroup = "NONE"
	StreamGroupScience    StreamGroup = "SCIENCE"
	StreamGroupCommerce   StreamGroup = "COMMERCE"
	StreamGroupHumanities StreamGroup = "HUMANITIES"
)

// Subject represents an academic subject together with its scheduling traits.
type Subject struct {
	ID             string        `db:"id" json:"id"`
	SchoolID       string        `db:"school_id" json:"school_id"`
	Code           string        `db:"code" json:"code"`
	Name           string        `db:"name" json:"name"`
	PeriodsPerWeek int           `db:"periods_per_week" json:"periods_per_week"`
	MaxPerDay      int           `db:"max_per_day" json:"max_per_day"`
	IsLab          bool          `db:"is_lab" json:"is_lab"`
	IsLight        bool          `db:"is_light" json:"is_light"`
	LanguageGroup  LanguageGroup `db:"language_group" json:"language_group"`
	StreamGroup    StreamGroup   `db:"stream_group" json:"stream_group"`
	Active         bool          `db:"active" json:"active"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	SchoolID  string
	Search    string
	Lab       *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
