package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"go, kubernetes ,postgres", []string{"go", "kubernetes", "postgres"}},
		{"go,, ,rust", []string{"go", "rust"}},
		{"", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, models.SplitKeywords(tt.in))
		})
	}
}

func TestEffectiveFilter_FallsBackToSearch(t *testing.T) {
	cfg := models.JobConfig{
		Search: models.SearchCriteria{
			Keywords:      "go, grpc",
			Location:      "Bengaluru",
			MinExperience: 2,
			MaxExperience: 5,
		},
		Filter: models.FilterCriteria{MinRating: 3.5},
	}

	f := cfg.EffectiveFilter()
	assert.Equal(t, []string{"go", "grpc"}, f.RequiredSkills)
	assert.Equal(t, "Bengaluru", f.Location)
	assert.Equal(t, 2, f.MinExperience)
	assert.Equal(t, 5, f.MaxExperience)
	assert.Equal(t, 3.5, f.MinRating)
}

func TestEffectiveFilter_KeepsExplicitValues(t *testing.T) {
	cfg := models.JobConfig{
		Search: models.SearchCriteria{Keywords: "go", Location: "Pune", MaxExperience: 8},
		Filter: models.FilterCriteria{
			Location:       "Remote",
			MaxExperience:  3,
			RequiredSkills: []string{"rust"},
		},
	}

	f := cfg.EffectiveFilter()
	assert.Equal(t, []string{"rust"}, f.RequiredSkills)
	assert.Equal(t, "Remote", f.Location)
	assert.Equal(t, 0, f.MinExperience)
	assert.Equal(t, 3, f.MaxExperience)

	// The stored filter is not mutated.
	assert.Empty(t, cfg.Filter.MinExperience)
	assert.Equal(t, []string{"rust"}, cfg.Filter.RequiredSkills)
}

func TestSchedule_JSONShape(t *testing.T) {
	var s models.Schedule
	require.NoError(t, json.Unmarshal([]byte(`{"frequency":"weekly","days":[1,4],"time":"09:30"}`), &s))

	assert.Equal(t, models.FrequencyWeekly, s.Frequency)
	assert.Equal(t, []time.Weekday{time.Monday, time.Thursday}, s.Days)
	assert.Equal(t, "09:30", s.TimeOfDay)
}
