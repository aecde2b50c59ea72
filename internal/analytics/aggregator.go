// Package analytics computes on-demand statistical summaries over a form's
// response set. ComputeSummary is a pure function of its inputs: it performs
// no caching, reads but never mutates the responses, and is safe for
// concurrent callers.
package analytics

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/formforge/formpulse/internal/metrics"
)

const (
	// secondsPerAnsweredField drives the completion-time estimate. There are
	// no field-level entry timestamps, so the estimate is explicitly a
	// heuristic, not a measured duration.
	secondsPerAnsweredField = 10

	trendDays     = 7
	topChoices    = 10
	topTexts      = 5
	maxDisplayLen = 50
	ratingMin     = 1
	ratingMax     = 5
	dateFormat    = "2006-01-02"
)

// ComputeSummary folds the response set into an AnalyticsSummary. now anchors
// the 7-day trend window; responses outside it only contribute to totals.
func ComputeSummary(fields []domain.FormField, responses []domain.FormResponse, now time.Time) *domain.AnalyticsSummary {
	start := time.Now()
	defer func() {
		metrics.AnalyticsComputeDuration.Observe(time.Since(start).Seconds())
		metrics.AnalyticsComputationsTotal.WithLabelValues("success").Inc()
	}()

	summary := &domain.AnalyticsSummary{
		TotalResponses: len(responses),
		ResponseTrends: computeTrends(responses, now),
		FieldAnalytics: make([]domain.FieldAnalytics, 0, len(fields)),
	}

	summary.CompletionRate, summary.AverageCompletionTime = completionMetrics(fields, responses)

	for _, field := range fields {
		summary.FieldAnalytics = append(summary.FieldAnalytics, fieldAnalytics(field, responses))
	}

	return summary
}

// completionMetrics returns the completion rate and the estimated average
// completion time. A response is complete iff every required field has a
// present, non-empty value.
func completionMetrics(fields []domain.FormField, responses []domain.FormResponse) (float64, float64) {
	if len(responses) == 0 {
		return 0, 0
	}

	var requiredIDs []string
	for _, field := range fields {
		if field.Required {
			requiredIDs = append(requiredIDs, field.ID)
		}
	}

	completed := 0
	totalSeconds := 0.0

	for _, response := range responses {
		complete := true
		for _, fieldID := range requiredIDs {
			if !domain.Answered(response.Answers[fieldID]) {
				complete = false
				break
			}
		}
		if complete {
			completed++
		}

		answered := 0
		for _, value := range response.Answers {
			if domain.Answered(value) {
				answered++
			}
		}
		totalSeconds += float64(answered * secondsPerAnsweredField)
	}

	rate := float64(completed) / float64(len(responses)) * 100
	avgTime := totalSeconds / float64(len(responses))
	return rate, avgTime
}

// computeTrends buckets responses into the trailing trendDays calendar days,
// oldest first. The slice always has exactly trendDays entries.
func computeTrends(responses []domain.FormResponse, now time.Time) []domain.TrendPoint {
	trends := make([]domain.TrendPoint, 0, trendDays)

	for i := trendDays - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		dayEnd := dayStart.Add(24 * time.Hour)

		count := 0
		for _, response := range responses {
			if !response.SubmittedAt.Before(dayStart) && response.SubmittedAt.Before(dayEnd) {
				count++
			}
		}

		trends = append(trends, domain.TrendPoint{
			Date:  dayStart.Format(dateFormat),
			Count: count,
		})
	}

	return trends
}

func fieldAnalytics(field domain.FormField, responses []domain.FormResponse) domain.FieldAnalytics {
	fa := domain.FieldAnalytics{
		FieldID:         field.ID,
		FieldLabel:      field.Label,
		FieldType:       field.Type,
		SkipRate:        100,
		CommonResponses: []domain.ValueCount{},
	}

	answered := 0
	for _, response := range responses {
		if domain.Answered(response.Answers[field.ID]) {
			answered++
		}
	}

	if len(responses) > 0 {
		fa.ResponseRate = float64(answered) / float64(len(responses)) * 100
		fa.SkipRate = 100 - fa.ResponseRate
	}

	if answered == 0 {
		return fa
	}

	switch field.Type {
	case domain.FieldTypeMultipleChoice, domain.FieldTypeCheckbox:
		groups := groupChoices(field.ID, responses)
		fa.UniqueResponses = len(groups)
		fa.CommonResponses = topValueCounts(groups, topChoices, answered)

	case domain.FieldTypeRating:
		avg, distribution := ratingFacet(field.ID, responses)
		fa.AverageRating = &avg
		fa.CommonResponses = distribution

	case domain.FieldTypeText, domain.FieldTypeTextarea, domain.FieldTypeEmail:
		groups := groupTexts(field.ID, responses)
		fa.UniqueResponses = len(groups)
		fa.CommonResponses = topValueCounts(groups, topTexts, answered)
	}

	return fa
}

// valueGroup is one grouped answer value with its occurrence count. Groups
// keep first-seen order so top-K lists break count ties deterministically.
type valueGroup struct {
	value any
	count int
}

type grouper struct {
	index  map[string]int
	groups []valueGroup
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int)}
}

func (g *grouper) add(key string, display any) {
	if i, ok := g.index[key]; ok {
		g.groups[i].count++
		return
	}
	g.index[key] = len(g.groups)
	g.groups = append(g.groups, valueGroup{value: display, count: 1})
}

// groupChoices groups multiple_choice and checkbox answers by value.
// Multi-valued checkbox answers are joined into one composite key.
func groupChoices(fieldID string, responses []domain.FormResponse) []valueGroup {
	g := newGrouper()
	for _, response := range responses {
		values, ok := domain.StringsValue(response.Answers[fieldID])
		if !ok {
			continue
		}
		key := strings.Join(values, ", ")
		g.add(key, key)
	}
	return g.groups
}

// groupTexts groups free-text answers by exact value, truncating long values
// for display only.
func groupTexts(fieldID string, responses []domain.FormResponse) []valueGroup {
	g := newGrouper()
	for _, response := range responses {
		value, ok := domain.StringValue(response.Answers[fieldID])
		if !ok {
			continue
		}
		g.add(value, truncateDisplay(value))
	}
	return g.groups
}

// topValueCounts sorts groups by descending count (stable, first-seen order
// on ties), keeps the top k, and attaches percentage-of-answered.
func topValueCounts(groups []valueGroup, k, answered int) []domain.ValueCount {
	sorted := make([]valueGroup, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].count > sorted[j].count
	})

	if len(sorted) > k {
		sorted = sorted[:k]
	}

	out := make([]domain.ValueCount, 0, len(sorted))
	for _, group := range sorted {
		out = append(out, domain.ValueCount{
			Value:      group.value,
			Count:      group.count,
			Percentage: float64(group.count) / float64(answered) * 100,
		})
	}
	return out
}

// ratingFacet returns the arithmetic mean of the numeric ratings and the
// 1..5 distribution with zero-count buckets omitted.
func ratingFacet(fieldID string, responses []domain.FormResponse) (float64, []domain.ValueCount) {
	var ratings []float64
	distribution := make(map[int]int)

	for _, response := range responses {
		rating, ok := domain.NumberValue(response.Answers[fieldID])
		if !ok {
			continue
		}
		ratings = append(ratings, rating)
		distribution[int(rating)]++
	}

	if len(ratings) == 0 {
		return 0, []domain.ValueCount{}
	}

	sum := 0.0
	for _, rating := range ratings {
		sum += rating
	}
	avg := sum / float64(len(ratings))

	out := make([]domain.ValueCount, 0, ratingMax)
	for rating := ratingMin; rating <= ratingMax; rating++ {
		count := distribution[rating]
		if count == 0 {
			continue
		}
		out = append(out, domain.ValueCount{
			Value:      rating,
			Count:      count,
			Percentage: float64(count) / float64(len(ratings)) * 100,
		})
	}

	return avg, out
}

func truncateDisplay(s string) string {
	if len(s) <= maxDisplayLen {
		return s
	}
	// Back up to a rune boundary so the cut never splits a multi-byte rune.
	cut := maxDisplayLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
