package pipeline

import "github.com/rotisserie/eris"

var (
	// ErrNoKeywords means every discovery channel came back empty.
	ErrNoKeywords = eris.New("pipeline: no keywords discovered")

	// ErrEmptyResult means a stage filtered the working set down to
	// nothing, so later stages have no input.
	ErrEmptyResult = eris.New("pipeline: no keywords survived filtering")
)
