package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/joescharf/revu/internal/models"
)

// UndefinedSeverity is the bucket for issues that carry no severity.
const UndefinedSeverity = "undefined"

// Count is one bucket of a distribution.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary aggregates a session history.
type Summary struct {
	Sessions   int       `json:"sessions"`
	Issues     int       `json:"issues"`
	ByType     []Count   `json:"by_type"`
	BySeverity []Count   `json:"by_severity"`
	ByLanguage []Count   `json:"by_language"`
	LastReview time.Time `json:"last_review,omitzero"`
}

// Empty reports whether there is nothing to chart.
func (s Summary) Empty() bool {
	return s.Sessions == 0
}

// Summarize counts issues by type and severity and sessions by language.
func Summarize(sessions []models.Session) Summary {
	types := map[string]int{}
	severities := map[string]int{}
	languages := map[string]int{}

	var sum Summary
	for _, s := range sessions {
		sum.Sessions++
		languages[string(s.Language)]++
		if s.Timestamp.After(sum.LastReview) {
			sum.LastReview = s.Timestamp
		}
		for _, is := range s.Issues {
			sum.Issues++
			types[string(is.Type)]++
			sev := string(is.Severity)
			if sev == "" {
				sev = UndefinedSeverity
			}
			severities[sev]++
		}
	}

	sum.ByType = sorted(types)
	sum.BySeverity = sorted(severities)
	sum.ByLanguage = sorted(languages)
	return sum
}

// sorted orders buckets by count descending, then name.
func sorted(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Trend summarizes the confidence samples.
type Trend struct {
	Samples int       `json:"samples"`
	Latest  float64   `json:"latest"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Mean    float64   `json:"mean"`
	Since   time.Time `json:"since,omitzero"`
}

// TrendOf computes the trend of entries, which are in append order.
func TrendOf(entries []models.ConfidenceEntry) Trend {
	if len(entries) == 0 {
		return Trend{}
	}
	t := Trend{
		Samples: len(entries),
		Latest:  entries[len(entries)-1].Confidence,
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
		Since:   entries[0].Timestamp,
	}
	var total float64
	for _, e := range entries {
		total += e.Confidence
		t.Min = math.Min(t.Min, e.Confidence)
		t.Max = math.Max(t.Max, e.Confidence)
	}
	t.Mean = total / float64(len(entries))
	return t
}

// Recency buckets the age of the last review: "today", "this week",
// "this month" or "older". Zero times yield "never".
func Recency(last, now time.Time) string {
	if last.IsZero() {
		return "never"
	}
	days := int(now.Sub(last).Hours() / 24)
	switch {
	case days < 1:
		return "today"
	case days <= 7:
		return "this week"
	case days <= 30:
		return "this month"
	default:
		return "older"
	}
}
