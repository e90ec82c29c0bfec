package console

import (
	"iter"
	"strings"
)

// Marker substrings printed by the plugin.
const (
	MarkerLoading  = "Loading Skript"
	MarkerLoaded   = "All scripts loaded without errors."
	MarkerFinished = "Finished loading."
)

// Event is what a single console line meant to the scanner.
type Event int

// Events in the order the plugin prints them.
const (
	// EventNone means the line carries no marker.
	EventNone Event = iota
	// EventPluginLoading means the plugin started loading.
	EventPluginLoading
	// EventScriptsLoaded means every script parsed without errors.
	EventScriptsLoaded
	// EventFinished means loading ended; the verdict is final.
	EventFinished
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventPluginLoading:
		return "plugin-loading"
	case EventScriptsLoaded:
		return "scripts-loaded"
	case EventFinished:
		return "finished"
	default:
		return "none"
	}
}

// Verdict is the outcome of a run.
type Verdict int

// Verdicts.
const (
	// VerdictPending means the finished marker has not been seen yet.
	VerdictPending Verdict = iota
	// VerdictPassed means scripts loaded without errors before loading finished.
	VerdictPassed
	// VerdictFailed means loading finished without the success marker.
	VerdictFailed
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictPassed:
		return "passed"
	case VerdictFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Scanner is a two-state machine: pending until EventFinished, terminal after.
type Scanner struct {
	// success is set by the scripts-loaded marker.
	success bool
	// verdict becomes final on the finished marker.
	verdict Verdict
}

// Feed classifies a line and advances the machine. Lines fed after the
// verdict became final are ignored and yield EventNone.
// Markers are checked in priority order, so a line matches at most one.
func (s *Scanner) Feed(line string) Event {
	if s.Done() {
		return EventNone
	}

	switch {
	case strings.Contains(line, MarkerLoading):
		return EventPluginLoading
	case strings.Contains(line, MarkerLoaded):
		s.success = true

		return EventScriptsLoaded
	case strings.Contains(line, MarkerFinished):
		s.verdict = VerdictFailed
		if s.success {
			s.verdict = VerdictPassed
		}

		return EventFinished
	default:
		return EventNone
	}
}

// Verdict returns the current verdict.
func (s *Scanner) Verdict() Verdict {
	return s.verdict
}

// Done reports whether the verdict is final.
func (s *Scanner) Done() bool {
	return s.verdict != VerdictPending
}

// Scan feeds lines until the verdict is final or the sequence ends.
func Scan(lines iter.Seq[string]) Verdict {
	var s Scanner

	for line := range lines {
		s.Feed(line)

		if s.Done() {
			break
		}
	}

	return s.Verdict()
}
