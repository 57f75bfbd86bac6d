// Package payload turns a rating matrix into the wire payloads handed to the
// persistence collaborator: a flat item list for new evaluations and a list
// of diff operations for existing ones.
package payload

import (
	"encoding/json"

	"github.com/okian/scorecard/internal/domain/rating"
)

// OpType names a diff operation.
type OpType string

// Diff operation kinds.
const (
	OpRemoveAthlete OpType = "remove_athlete"
	OpUpsertRating  OpType = "upsert_rating"
)

// Item is one (athlete, subskill, rating) tuple of a create payload.
// SkillID carries the canonical subskill id.
type Item struct {
	AthleteID string  `json:"athlete_id"`
	SkillID   string  `json:"skill_id"`
	Rating    float64 `json:"rating"`
	Comments  *string `json:"comments"`
}

// Operation is one diff operation of an update payload. A nil Rating on an
// upsert asks the server to delete the stored item.
type Operation struct {
	Type       OpType       `json:"type"`
	AthleteID  string       `json:"athlete_id"`
	SubskillID string       `json:"subskill_id,omitempty"`
	Rating     rating.Value `json:"rating"`
	Comments   *string      `json:"comments"`
}

// MarshalJSON emits only type and athlete_id for remove_athlete.
func (o Operation) MarshalJSON() ([]byte, error) {
	if o.Type == OpRemoveAthlete {
		return json.Marshal(struct {
			Type      OpType `json:"type"`
			AthleteID string `json:"athlete_id"`
		}{o.Type, o.AthleteID})
	}
	type plain Operation
	return json.Marshal(plain(o))
}

// Identity is the evaluation header shared by both payload shapes.
type Identity struct {
	OrgID      string
	TemplateID string
	TeamID     string
	CoachID    string
	Notes      string
}

// Evaluation is one entry of a create request.
type Evaluation struct {
	OrgID               string  `json:"org_id"`
	ScorecardTemplateID string  `json:"scorecard_template_id"`
	TeamID              *string `json:"team_id"`
	CoachID             string  `json:"coach_id"`
	Notes               *string `json:"notes"`
	Items               []Item  `json:"evaluation_items"`
}

// CreateRequest is the payload for persisting a new evaluation.
type CreateRequest struct {
	Evaluations []Evaluation `json:"evaluations"`
}

// UpdateRequest is the payload for persisting changes to an evaluation.
type UpdateRequest struct {
	OrgID      string      `json:"org_id"`
	TemplateID string      `json:"template_id"`
	TeamID     *string     `json:"team_id"`
	CoachID    string      `json:"coach_id"`
	Notes      *string     `json:"notes"`
	Operations []Operation `json:"operations"`
}

// NewCreateRequest wraps items in a create payload. It refuses an empty item
// list with ErrEmptyResult.
func NewCreateRequest(id Identity, items []Item) (CreateRequest, error) {
	if err := id.validate(); err != nil {
		return CreateRequest{}, err
	}
	if len(items) == 0 {
		return CreateRequest{}, ErrEmptyResult
	}
	return CreateRequest{Evaluations: []Evaluation{{
		OrgID:               id.OrgID,
		ScorecardTemplateID: id.TemplateID,
		TeamID:              nullable(id.TeamID),
		CoachID:             id.CoachID,
		Notes:               nullable(id.Notes),
		Items:               items,
	}}}, nil
}

// NewUpdateRequest wraps operations in an update payload. It refuses an empty
// operation list with ErrEmptyResult.
func NewUpdateRequest(id Identity, ops []Operation) (UpdateRequest, error) {
	if err := id.validate(); err != nil {
		return UpdateRequest{}, err
	}
	if len(ops) == 0 {
		return UpdateRequest{}, ErrEmptyResult
	}
	return UpdateRequest{
		OrgID:      id.OrgID,
		TemplateID: id.TemplateID,
		TeamID:     nullable(id.TeamID),
		CoachID:    id.CoachID,
		Notes:      nullable(id.Notes),
		Operations: ops,
	}, nil
}

func (id Identity) validate() error {
	switch {
	case id.OrgID == "":
		return ErrMissingOrg
	case id.CoachID == "":
		return ErrMissingCoach
	case id.TemplateID == "":
		return ErrMissingTemplate
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
