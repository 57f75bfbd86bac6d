// Package replay drives an editing session from a YAML script and writes
// every payload it produces as a JSON line. It backs the scorecard CLI and
// doubles as an end-to-end fixture format.
package replay

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/okian/scorecard/internal/domain/model"
)

// Script is a scripted session.
type Script struct {
	Identity Identity        `yaml:"identity"`
	Catalog  Catalog         `yaml:"catalog"`
	Roster   []model.Athlete `yaml:"roster"`
	// Load opens a saved evaluation instead of starting a new one. Its
	// template must be the one described by Catalog.
	Load  string `yaml:"load"`
	Steps []Step `yaml:"steps"`
}

// Identity is the evaluation header of the scripted session.
type Identity struct {
	OrgID      string `yaml:"org_id"`
	TemplateID string `yaml:"template_id"`
	TeamID     string `yaml:"team_id"`
	CoachID    string `yaml:"coach_id"`
	Notes      string `yaml:"notes"`
}

// Catalog is the scorecard template the script rates against.
type Catalog struct {
	Categories []model.Category            `yaml:"categories"`
	Subskills  map[string][]model.Subskill `yaml:"subskills"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Select   []string `yaml:"select,omitempty"`
	Baseline *Cell    `yaml:"baseline,omitempty"`
	Override *Cell    `yaml:"override,omitempty"`
	Subskill *Cell    `yaml:"subskill,omitempty"`
	Bulk     *Bulk    `yaml:"bulk,omitempty"`
	Wizard   *Cell    `yaml:"wizard,omitempty"`
	Grid     *Cell    `yaml:"grid,omitempty"`
	Undo     bool     `yaml:"undo,omitempty"`
	Redo     bool     `yaml:"redo,omitempty"`
	Notes    *string  `yaml:"notes,omitempty"`
	Preview  bool     `yaml:"preview,omitempty"`
	Save     bool     `yaml:"save,omitempty"`
}

// Cell addresses one rating. Rating is null to clear it. Wizard steps only
// use Rating and Next.
type Cell struct {
	Athlete  string   `yaml:"athlete"`
	Category string   `yaml:"category"`
	Subskill string   `yaml:"subskill"`
	Rating   *float64 `yaml:"rating"`
	// Next moves the wizard category cursor forward before rating.
	Next int `yaml:"next"`
}

// Bulk is a bulk-apply action.
type Bulk struct {
	Rating     *float64 `yaml:"rating"`
	Categories []string `yaml:"categories"`
	Athletes   []string `yaml:"athletes"`
}

// ErrInvalidScript marks scripts that parse but cannot run.
var ErrInvalidScript = errors.New("invalid script")

// Parse decodes a script, rejecting unknown keys.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) validate() error {
	if s.Identity.TemplateID == "" {
		return fmt.Errorf("%w: identity.template_id is required", ErrInvalidScript)
	}
	for i, st := range s.Steps {
		if n := st.actions(); n != 1 {
			return fmt.Errorf("%w: step %d has %d actions", ErrInvalidScript, i, n)
		}
	}
	return nil
}

func (st *Step) actions() int {
	n := 0
	for _, set := range []bool{
		st.Select != nil, st.Baseline != nil, st.Override != nil, st.Subskill != nil,
		st.Bulk != nil, st.Wizard != nil, st.Grid != nil, st.Undo, st.Redo,
		st.Notes != nil, st.Preview, st.Save,
	} {
		if set {
			n++
		}
	}
	return n
}
