package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jobsuitex/autoapply/pkg/models"
)

var experienceRange = regexp.MustCompile(`(\d+)\s*-?\s*(\d+)?`)

// Filter returns the listings that satisfy every criterion, preserving
// order. Empty criteria always pass; the rating check needs MinRating > 0
// and the experience check MaxExperience > 0.
func Filter(listings []models.JobListing, f models.FilterCriteria) []models.JobListing {
	out := make([]models.JobListing, 0, len(listings))
	for _, l := range listings {
		if Matches(l, f) {
			out = append(out, l)
		}
	}
	return out
}

// Matches reports whether a single listing passes f.
func Matches(l models.JobListing, f models.FilterCriteria) bool {
	return locationMatches(l, f) &&
		experienceMatches(l, f) &&
		skillsMatch(l, f) &&
		ratingMatches(l, f) &&
		!companyExcluded(l, f)
}

func locationMatches(l models.JobListing, f models.FilterCriteria) bool {
	if f.Location == "" {
		return true
	}
	return containsFold(l.Location, f.Location)
}

func experienceMatches(l models.JobListing, f models.FilterCriteria) bool {
	if f.MaxExperience <= 0 {
		return true
	}
	lo, hi, ok := ParseExperience(l.Experience)
	if !ok {
		return false
	}
	return lo <= f.MaxExperience && f.MinExperience <= hi
}

func skillsMatch(l models.JobListing, f models.FilterCriteria) bool {
	for _, want := range f.RequiredSkills {
		found := false
		for _, have := range l.Skills {
			if containsFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func ratingMatches(l models.JobListing, f models.FilterCriteria) bool {
	if f.MinRating <= 0 {
		return true
	}
	r, ok := ParseRating(l.Rating)
	return ok && r >= f.MinRating
}

func companyExcluded(l models.JobListing, f models.FilterCriteria) bool {
	for _, c := range f.ExcludedCompanies {
		if c != "" && containsFold(l.Company, c) {
			return true
		}
	}
	return false
}

// ParseExperience reads "2-5 Yrs" or "3 Yrs" into a year range.
func ParseExperience(s string) (lo, hi int, ok bool) {
	m := experienceRange.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	hi = lo
	if m[2] != "" {
		if hi, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, false
		}
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

// ParseRating reads the leading decimal of a rating such as "4.1" or "3.9 ★".
func ParseRating(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	r, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return r, true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
