// Package model contains the roster and scorecard entities the rating matrix
// is built over.
package model

import (
	"github.com/okian/scorecard/internal/domain/rating"
)

// Athlete is a roster member. Identity is ID.
type Athlete struct {
	ID       string `json:"id" yaml:"id"`
	FullName string `json:"full_name" yaml:"full_name"`
	TeamID   string `json:"team_id" yaml:"team_id"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
}

// Category is one row of the rating grid.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	TemplateID  string `json:"template_id" yaml:"template_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Position    int    `json:"position" yaml:"position"`
}

// Subskill is a rateable item inside a category. Upstream sources populate
// either ID or SkillID (sometimes both); Key resolves the canonical identity.
type Subskill struct {
	ID          string `json:"id" yaml:"id"`
	SkillID     string `json:"skill_id,omitempty" yaml:"skill_id,omitempty"`
	CategoryID  string `json:"category_id" yaml:"category_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Position    int    `json:"position" yaml:"position"`
	RatingMin   int    `json:"rating_min" yaml:"rating_min"`
	RatingMax   int    `json:"rating_max" yaml:"rating_max"`
}

// Key is the canonical subskill id: the primary ID, else SkillID.
func (s Subskill) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.SkillID
}

// Scale is the subskill's inclusive rating range, defaulting to 1..5.
func (s Subskill) Scale() rating.Scale {
	return rating.Scale{Min: s.RatingMin, Max: s.RatingMax}.OrDefault()
}

// LoadedItem is one persisted rating returned by the evaluation loader.
type LoadedItem struct {
	AthleteID  string       `json:"athlete_id"`
	SubskillID string       `json:"subskill_id"`
	Rating     rating.Value `json:"rating"`
}

// Evaluation is a previously saved evaluation used to hydrate a session.
type Evaluation struct {
	ID         string       `json:"id"`
	OrgID      string       `json:"org_id"`
	TemplateID string       `json:"template_id"`
	TeamID     string       `json:"team_id,omitempty"`
	CoachID    string       `json:"coach_id"`
	Notes      string       `json:"notes,omitempty"`
	Categories []Category   `json:"categories"`
	Athletes   []Athlete    `json:"athletes"`
	Items      []LoadedItem `json:"evaluation_items"`
}
