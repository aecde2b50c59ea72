package domain

// ValueCount is one entry of a top-K list: a grouped answer value with its
// occurrence count and its share of answered responses.
type ValueCount struct {
	Value      any     `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TrendPoint is one daily bucket of the response trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// FieldAnalytics is the per-field portion of an analytics summary. The
// type-specific facet lives in AverageRating and CommonResponses; fields
// whose type has no facet carry response and skip rates only.
type FieldAnalytics struct {
	FieldID         string       `json:"field_id"`
	FieldLabel      string       `json:"field_label"`
	FieldType       FieldType    `json:"field_type"`
	ResponseRate    float64      `json:"response_rate"`
	SkipRate        float64      `json:"skip_rate"`
	UniqueResponses int          `json:"unique_responses"`
	AverageRating   *float64     `json:"average_rating,omitempty"`
	CommonResponses []ValueCount `json:"common_responses"`
}

// AnalyticsSummary is the full summary for one form, recomputed on each
// call. It has no persisted identity.
type AnalyticsSummary struct {
	TotalResponses        int              `json:"total_responses"`
	CompletionRate        float64          `json:"completion_rate"`
	AverageCompletionTime float64          `json:"average_completion_time"`
	ResponseTrends        []TrendPoint     `json:"response_trends"`
	FieldAnalytics        []FieldAnalytics `json:"field_analytics"`
}
