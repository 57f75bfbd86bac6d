package replay

import "io"

// ShowHelp prints usage information for the scorecard tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Scorecard session replay
========================

Replays a scripted rating session and prints every payload it produces as
one JSON object per line.

Usage:
  scorecard -script session.yaml

Options:
  -script string
        YAML session script (use - for stdin)
  -help
        Show this help message

Configuration comes from SCORECARD_CONFIG (YAML file) and SCORECARD_*
environment variables, e.g. SCORECARD_STORE_DRIVER=sqlite.

Script steps (one action each):
  select:   [athlete ids]
  baseline: {athlete, category, rating}
  override: {athlete, category, subskill, rating}
  subskill: {athlete, category, subskill, rating}
  bulk:     {rating, categories, athletes}
  wizard:   {rating, next}
  grid:     {athlete, category, rating}
  undo: true | redo: true | notes: text
  preview: true | save: true
`)
}
