package imod

import "strings"

// Outcome classifies the transcript of a finished IMOD invocation.
type Outcome int

const (
	// OutcomeUnknown means neither marker appeared. Callers treat this as a
	// failure since the job never reached its completion message.
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeError
)

// Markers etomo-style jobs print when they terminate. Classification is
// substring-based on purpose: subm exits zero even when the underlying job
// fails, so the transcript is the only reliable signal.
const (
	successMarker = "finished successfully"
	failureMarker = "ERROR"
)

// ClassifyOutput scans a stdout transcript for the terminal markers. The
// success marker wins over the failure marker when both appear.
func ClassifyOutput(lines []string) Outcome {
	seenError := false
	for _, line := range lines {
		if strings.Contains(line, successMarker) {
			return OutcomeSuccess
		}
		if strings.Contains(line, failureMarker) {
			seenError = true
		}
	}
	if seenError {
		return OutcomeError
	}
	return OutcomeUnknown
}

func errorDetail(lines []string) string {
	for _, line := range lines {
		if strings.Contains(line, failureMarker) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
