package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSummarizeComplaints(t *testing.T) {
	night, morning := "야간", "오전"
	points := []ComplaintPoint{
		{ID: 1, Date: "2024-05-03", Region: "배방읍", Period: &night},
		{ID: 2, Date: "2024-05-20 21:10:00", Region: "배방읍", Period: &night},
		{ID: 3, Date: "2024.11.02", Region: "둔포면", Period: &morning},
		{ID: 4, Date: "2024-01-09T08:00:00+09:00", Region: " "},
		{ID: 5, Date: "yesterday", Region: "둔포면"},
	}

	got := SummarizeComplaints(points)

	want := ComplaintStats{
		Total: 5,
		ByRegion: []BucketCount{
			{Label: "둔포면", Count: 2},
			{Label: "배방읍", Count: 2},
			{Label: UnclassifiedLabel, Count: 1},
		},
		ByMonth: []BucketCount{
			{Label: "1", Count: 1},
			{Label: "5", Count: 2},
			{Label: "11", Count: 1},
			{Label: UnclassifiedLabel, Count: 1},
		},
		ByPeriod: []BucketCount{
			{Label: UnclassifiedLabel, Count: 2},
			{Label: night, Count: 2},
			{Label: morning, Count: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SummarizeComplaints() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeComplaints_Empty(t *testing.T) {
	got := SummarizeComplaints(nil)
	assert.Equal(t, 0, got.Total)
	assert.Empty(t, got.ByRegion)
	assert.Empty(t, got.ByMonth)
	assert.Empty(t, got.ByPeriod)
}
