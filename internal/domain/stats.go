package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// UnclassifiedLabel buckets complaints with no region, period or parsable date.
const UnclassifiedLabel = "미분류"

// BucketCount is one row of a complaint breakdown.
type BucketCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ComplaintStats summarizes complaints for the dashboard charts.
type ComplaintStats struct {
	Total    int           `json:"total"`
	ByRegion []BucketCount `json:"by_region"`
	ByMonth  []BucketCount `json:"by_month"`
	ByPeriod []BucketCount `json:"by_period"`
}

var complaintDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006.01.02",
}

// SummarizeComplaints counts complaints by region and time period (largest
// first, ties by label) and by calendar month (1–12 ascending, unparsable
// dates last).
func SummarizeComplaints(points []ComplaintPoint) ComplaintStats {
	regions := map[string]int{}
	periods := map[string]int{}
	months := map[string]int{}

	for _, p := range points {
		regions[labelOr(p.Region)]++
		period := ""
		if p.Period != nil {
			period = *p.Period
		}
		periods[labelOr(period)]++
		months[complaintMonth(p.Date)]++
	}

	byMonth := toBuckets(months)
	sort.SliceStable(byMonth, func(i, j int) bool {
		return monthOrder(byMonth[i].Label) < monthOrder(byMonth[j].Label)
	})

	return ComplaintStats{
		Total:    len(points),
		ByRegion: byCountDesc(regions),
		ByMonth:  byMonth,
		ByPeriod: byCountDesc(periods),
	}
}

func labelOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnclassifiedLabel
	}
	return s
}

func complaintMonth(date string) string {
	date = strings.TrimSpace(date)
	for _, layout := range complaintDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return strconv.Itoa(int(t.Month()))
		}
	}
	return UnclassifiedLabel
}

func monthOrder(label string) int {
	if n, err := strconv.Atoi(label); err == nil {
		return n
	}
	return 13
}

func toBuckets(m map[string]int) []BucketCount {
	out := make([]BucketCount, 0, len(m))
	for k, v := range m {
		out = append(out, BucketCount{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func byCountDesc(m map[string]int) []BucketCount {
	out := toBuckets(m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
