// Package classify tags grievance text with a category, severity, spam flag
// and sentiment. The local keyword matcher is the source of truth; an
// optional generative provider can replace it per call, with the matcher as
// fallback whenever the provider fails.
package classify

import "strings"

type Result struct {
	Category       string  `json:"category"`
	SeverityScore  float64 `json:"severity_score"`
	IsSpam         bool    `json:"is_spam"`
	SentimentScore float64 `json:"sentiment_score"`
	Summary        string  `json:"summary"`
}

// categoryKeywords is matched in order; the first category with a keyword
// present in the text wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Sanitation", []string{"sanitation", "garbage", "trash", "sewage", "drain"}},
	{"Roads", []string{"road", "pothole", "highway", "footpath"}},
	{"Water Supply", []string{"water", "leak", "pipeline", "tap"}},
	{"Electricity", []string{"electricity", "power", "transformer", "outage", "streetlight"}},
	{"Law & Order", []string{"police", "theft", "crime", "harassment"}},
	{"Health", []string{"health", "hospital", "mosquito", "dengue"}},
}

var severeKeywords = []string{"urgent", "danger", "accident", "emergency"}
var moderateKeywords = []string{"broken", "leak", "overflow", "blocked"}
var negativeKeywords = []string{"angry", "terrible", "worst", "furious", "disgusting"}

// Classify is the deterministic keyword matcher. It never fails; unmapped
// text lands in the "Other" category.
func Classify(title, description string) Result {
	text := strings.ToLower(title + " " + description)

	category := "Other"
	for _, entry := range categoryKeywords {
		if containsAny(text, entry.keywords) {
			category = entry.category
			break
		}
	}

	severity := 0.3
	if containsAny(text, severeKeywords) {
		severity = 0.9
	} else if containsAny(text, moderateKeywords) {
		severity = 0.6
	}

	isSpam := strings.Contains(text, "test") || len(strings.TrimSpace(text)) < 5

	sentiment := 0.5
	if containsAny(text, negativeKeywords) {
		sentiment = 0.2
	}

	return Result{
		Category:       category,
		SeverityScore:  severity,
		IsSpam:         isSpam,
		SentimentScore: sentiment,
		Summary:        summarize(description),
	}
}

// PriorityFor buckets a severity score into a priority label.
func PriorityFor(severity float64) string {
	switch {
	case severity >= 0.8:
		return "Critical"
	case severity >= 0.6:
		return "High"
	case severity >= 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

var departmentCodes = map[string]string{
	"Sanitation":   "SANI",
	"Roads":        "ROAD",
	"Water Supply": "WATER",
	"Electricity":  "ELEC",
	"Law & Order":  "POL",
	"Health":       "HLTH",
}

// DepartmentCode maps a category to the department code expected to handle
// it. Unmapped categories go to the General bucket.
func DepartmentCode(category string) string {
	if code, ok := departmentCodes[category]; ok {
		return code
	}
	return "GEN"
}

func summarize(description string) string {
	if len(description) > 100 {
		return description[:100] + "..."
	}
	return description
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
