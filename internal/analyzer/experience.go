package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Mentions above this are treated as noise (matches the max span length below).
const maxReasonableYears = 50

var (
	// "5+ years of experience", "3 yrs experience"
	yearsOfExperienceRe = regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(?:years?|yrs?)(?:\s+of)?\s+experience`)
	// "experience: 5 years", "experience - 5 yrs"
	experienceColonRe = regexp.MustCompile(`(?i)experience\s*[:\-]?\s*(\d{1,2})\s*\+?\s*(?:years?|yrs?)`)
	// "3 years 6 months", "3 yrs and 6 mos"
	yearsMonthsRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:years?|yrs?)\s*(?:and\s+)?(\d{1,2})\s*(?:months?|mos?)\b`)
	// bare "5 years" — only accepted near an experience-indicating word
	bareYearsRe = regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(?:years?|yrs?)\b`)
)

var experienceContextWords = []string{
	"experience", "experienced", "work", "working", "worked",
	"career", "professional", "industry", "employment",
}

// ExtractMentionedYears scans for explicit experience statements and returns
// the largest plausible value found, 0 when there is none.
func ExtractMentionedYears(text string) float64 {
	best := 0.0

	for _, re := range []*regexp.Regexp{yearsOfExperienceRe, experienceColonRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, err := strconv.Atoi(m[1]); err == nil {
				best = maxValidYears(best, float64(v))
			}
		}
	}

	for _, m := range yearsMonthsRe.FindAllStringSubmatch(text, -1) {
		years, err1 := strconv.Atoi(m[1])
		months, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			best = maxValidYears(best, float64(years)+float64(months)/12)
		}
	}

	// The generic pattern is noisy ("warranty: 2 years"), so require an
	// experience-indicating word close to the match.
	for _, loc := range bareYearsRe.FindAllStringSubmatchIndex(text, -1) {
		if !nearExperienceContext(text, loc[0], loc[1]) {
			continue
		}
		if v, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil {
			best = maxValidYears(best, float64(v))
		}
	}

	return best
}

func maxValidYears(best, candidate float64) float64 {
	if candidate > float64(maxReasonableYears) {
		return best
	}
	if candidate > best {
		return candidate
	}
	return best
}

func nearExperienceContext(text string, start, end int) bool {
	const window = 40
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	ctx := strings.ToLower(text[lo:hi])
	for _, w := range experienceContextWords {
		if strings.Contains(ctx, w) {
			return true
		}
	}
	return false
}

// monthSpan is a half-open interval of absolute month indexes (year*12+month).
type monthSpan struct {
	start int
	end   int
}

var monthIndexes = map[string]int{
	"jan": 0, "feb": 1, "mar": 2, "apr": 3, "may": 4, "jun": 5,
	"jul": 6, "aug": 7, "sep": 8, "oct": 9, "nov": 10, "dec": 11,
}

const monthNamePattern = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|` +
	`jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

const datePattern = `(?:(?:` + monthNamePattern + `)\.?,?\s+\d{4}|\d{1,2}/\d{4}|\d{4}|present|current|now)`

var dateRangeRe = regexp.MustCompile(`(?i)(` + datePattern + `)\s*(?:-|–|—|to|until)\s*(` + datePattern + `)`)

// ExtractDateRangeYears finds "<start> - <end>" employment spans, merges
// overlapping ones and returns the covered time in years. Merging is what
// keeps concurrent roles from being double-counted.
func ExtractDateRangeYears(text string, now time.Time) float64 {
	spans := parseSpans(text, now)
	if len(spans) == 0 {
		return 0
	}
	return float64(totalMonths(mergeSpans(spans))) / 12
}

func parseSpans(text string, now time.Time) []monthSpan {
	var spans []monthSpan
	for _, m := range dateRangeRe.FindAllStringSubmatch(text, -1) {
		start, ok := parseDate(m[1], now)
		if !ok {
			continue
		}
		end, ok := parseDate(m[2], now)
		if !ok {
			continue
		}

		span := monthSpan{start: start.index(), end: end.endIndex()}
		if span.end <= span.start || span.end-span.start > 12*maxReasonableYears {
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

type parsedDate struct {
	year     int
	month    int
	hasMonth bool
}

// index is the absolute month of the date; bare years resolve to January.
func (d parsedDate) index() int {
	return d.year*12 + d.month
}

// endIndex makes the enclosing span half-open: a month-precision end includes
// that month, a bare-year end stops at January of that year.
func (d parsedDate) endIndex() int {
	if d.hasMonth {
		return d.year*12 + d.month + 1
	}
	return d.year * 12
}

func parseDate(token string, now time.Time) (parsedDate, bool) {
	token = strings.ToLower(strings.TrimSpace(token))

	switch token {
	case "present", "current", "now":
		return parsedDate{year: now.Year(), month: int(now.Month()) - 1, hasMonth: true}, true
	}

	if i := strings.IndexByte(token, '/'); i > 0 {
		month, err1 := strconv.Atoi(token[:i])
		year, err2 := strconv.Atoi(token[i+1:])
		if err1 != nil || err2 != nil || month < 1 || month > 12 || !plausibleYear(year) {
			return parsedDate{}, false
		}
		return parsedDate{year: year, month: month - 1, hasMonth: true}, true
	}

	if len(token) >= 3 {
		if month, ok := monthIndexes[token[:3]]; ok {
			fields := strings.Fields(strings.NewReplacer(".", " ", ",", " ").Replace(token))
			if len(fields) < 2 {
				return parsedDate{}, false
			}
			year, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil || !plausibleYear(year) {
				return parsedDate{}, false
			}
			return parsedDate{year: year, month: month, hasMonth: true}, true
		}
	}

	year, err := strconv.Atoi(token)
	if err != nil || !plausibleYear(year) {
		return parsedDate{}, false
	}
	return parsedDate{year: year}, true
}

func plausibleYear(y int) bool {
	return y >= 1900 && y <= 2100
}

func mergeSpans(spans []monthSpan) []monthSpan {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func totalMonths(spans []monthSpan) int {
	total := 0
	for _, sp := range spans {
		total += sp.end - sp.start
	}
	return total
}
