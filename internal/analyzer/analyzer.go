package analyzer

import (
	"math"
	"time"
)

// Analysis is the structured signal extracted from raw resume text.
type Analysis struct {
	Skills          []string `json:"skills"`
	ExperienceYears float64  `json:"experience_years"`
	// ExperienceSource records which heuristic produced the final value
	// ("mention", "date_range" or "none"). Logged for observability only.
	ExperienceSource string `json:"experience_source"`
}

// Analyze extracts skills and total work experience from resume text. It is a
// pure function over the text and the current clock ("present" in a date range
// resolves to the current month).
func Analyze(text string) Analysis {
	return analyzeAt(text, time.Now())
}

func analyzeAt(text string, now time.Time) Analysis {
	mentioned := ExtractMentionedYears(text)
	fromRanges := ExtractDateRangeYears(text, now)

	// The larger of the two heuristics wins.
	years := mentioned
	source := "mention"
	if fromRanges > mentioned {
		years = fromRanges
		source = "date_range"
	}
	if years == 0 {
		source = "none"
	}

	return Analysis{
		Skills:           ExtractSkills(text),
		ExperienceYears:  round1(years),
		ExperienceSource: source,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
