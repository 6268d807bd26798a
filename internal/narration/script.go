// Package narration turns structured analysis results into short spoken
// scripts and drives a speech engine with a single-active-utterance playback
// model.
package narration

import (
	"fmt"
	"math"
	"strings"
)

// AnalysisResult is the input to script generation. Absent fields skip their
// sentence; generation never fails.
type AnalysisResult struct {
	Condition       string   `json:"condition"`
	Confidence      float64  `json:"confidence"` // percentage, 0-100
	Severity        string   `json:"severity"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
}

const (
	scriptOpening = "Hello, I am your A I diagnostic assistant, here to summarize your retinal analysis."
	scriptClosing = "This automated summary does not replace a consultation with your ophthalmologist."
)

// confidenceSentence buckets the percentage into three verbal tiers. The
// percentage is rounded to the nearest integer; the tier is decided on the
// raw value, so 89.9 stays in the good tier even though it reads as 90.
func confidenceSentence(confidence float64) string {
	n := int(math.Round(confidence))
	switch {
	case confidence >= 90:
		return fmt.Sprintf("High confidence at %d percent.", n)
	case confidence >= 80:
		return fmt.Sprintf("Good confidence at %d percent.", n)
	default:
		return fmt.Sprintf("Moderate confidence at %d percent.", n)
	}
}

// urgencySentence maps the risk level to a follow-up instruction.
func urgencySentence(riskLevel string) string {
	switch riskLevel {
	case "High":
		return "Please contact your eye care specialist immediately to arrange an urgent follow-up."
	case "Medium":
		return "Please schedule a follow-up appointment within the next two weeks."
	default:
		return "Continue routine monitoring and keep your regular screening schedule."
	}
}

// GenerateScript builds the spoken summary. Deterministic: the same result
// always produces the same text. At most the first two recommendations are
// spoken, joined with ", and ".
func GenerateScript(r AnalysisResult) string {
	sentences := []string{scriptOpening}

	if r.Condition != "" {
		sentences = append(sentences, fmt.Sprintf("The analysis identified %s.", r.Condition))
	}
	if r.Confidence > 0 {
		sentences = append(sentences, confidenceSentence(r.Confidence))
	}
	if r.Severity != "" && r.RiskLevel != "" {
		sentences = append(sentences, fmt.Sprintf("The scan indicates %s severity with %s risk.",
			strings.ToLower(r.Severity), strings.ToLower(r.RiskLevel)))
	} else if r.Severity != "" {
		sentences = append(sentences, fmt.Sprintf("The scan indicates %s severity.", strings.ToLower(r.Severity)))
	} else if r.RiskLevel != "" {
		sentences = append(sentences, fmt.Sprintf("The scan indicates %s risk.", strings.ToLower(r.RiskLevel)))
	}
	if len(r.Recommendations) > 0 {
		spoken := r.Recommendations
		if len(spoken) > 2 {
			spoken = spoken[:2]
		}
		sentences = append(sentences, fmt.Sprintf("I recommend the following: %s.", strings.Join(spoken, ", and ")))
	}
	sentences = append(sentences, urgencySentence(r.RiskLevel))
	sentences = append(sentences, scriptClosing)

	return strings.Join(sentences, " ")
}
