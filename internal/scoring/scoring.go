// Package scoring holds the pure pass/fail and percentage rules shared by
// grading, completion and analytics.
package scoring

// DefaultPassPercent is the pass threshold used when an exam has no
// explicit passing score, and the minimum course average for completion.
const DefaultPassPercent = 50.0

// Percentage returns score as a percentage of total. A non-positive total
// yields 0.
func Percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return score / total * 100
}

// Passed applies the pass rule: with an explicit passing score the raw
// score is compared against it, otherwise the percentage must reach
// DefaultPassPercent.
func Passed(score, total float64, passingScore *float64) bool {
	if passingScore != nil {
		return score >= *passingScore
	}
	if total <= 0 {
		return false
	}
	return Percentage(score, total) >= DefaultPassPercent
}

// Clamp bounds raw to [0, max]. clamped is true only when raw exceeded max.
func Clamp(raw, max float64) (value float64, clamped bool) {
	switch {
	case raw > max:
		return max, true
	case raw < 0:
		return 0, false
	default:
		return raw, false
	}
}

// Average returns the arithmetic mean of values, or 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Bucket is a labelled half-open percentage range [Min, Max).
type Bucket struct {
	Label string
	Min   float64
	Max   float64
}

// ExamBuckets are the score ranges shown in exam analytics.
var ExamBuckets = []Bucket{
	{Label: "90-100", Min: 90, Max: 1e9},
	{Label: "80-89", Min: 80, Max: 90},
	{Label: "70-79", Min: 70, Max: 80},
	{Label: "60-69", Min: 60, Max: 70},
	{Label: "below 60", Min: -1e9, Max: 60},
}

// CourseBuckets are the score ranges shown in course analytics.
var CourseBuckets = []Bucket{
	{Label: "90-100", Min: 90, Max: 1e9},
	{Label: "80-89", Min: 80, Max: 90},
	{Label: "70-79", Min: 70, Max: 80},
	{Label: "60-69", Min: 60, Max: 70},
	{Label: "50-59", Min: 50, Max: 60},
	{Label: "below 50", Min: -1e9, Max: 50},
}

// BucketOf returns the label of the bucket containing percent.
func BucketOf(buckets []Bucket, percent float64) string {
	for _, b := range buckets {
		if percent >= b.Min && percent < b.Max {
			return b.Label
		}
	}
	return ""
}
