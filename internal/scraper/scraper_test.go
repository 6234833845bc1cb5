package scraper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jobsuitex/autoapply/internal/scraper"
	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResults serves pages of listings. With endless set, Next always
// reports another page and Extract keeps returning the last page.
type fakeResults struct {
	pages      [][]models.JobListing
	endless    bool
	searchErr  error
	extractErr map[int]error

	current   int
	searched  []models.SearchCriteria
	extracts  int
	nextCalls int
}

func (f *fakeResults) Search(_ context.Context, c models.SearchCriteria) error {
	f.searched = append(f.searched, c)
	return f.searchErr
}

func (f *fakeResults) Extract(context.Context) ([]models.JobListing, error) {
	f.extracts++
	if err := f.extractErr[f.current]; err != nil {
		return nil, err
	}
	if f.current >= len(f.pages) {
		return f.pages[len(f.pages)-1], nil
	}
	return f.pages[f.current], nil
}

func (f *fakeResults) Next(context.Context) (bool, error) {
	f.nextCalls++
	if !f.endless && f.current+1 >= len(f.pages) {
		return false, nil
	}
	f.current++
	return true, nil
}

func listing(title, company, location, exp, rating string, skills ...string) models.JobListing {
	return models.JobListing{Title: title, Company: company, Location: location, Experience: exp, Rating: rating, Skills: skills}
}

func TestCollect_StopsAtMaxPages(t *testing.T) {
	page := []models.JobListing{listing("a", "c", "Pune", "2-4 Yrs", "4.0")}
	for _, maxPages := range []int{1, 3, 5} {
		t.Run(fmt.Sprint(maxPages), func(t *testing.T) {
			f := &fakeResults{pages: [][]models.JobListing{page}, endless: true}

			got, err := scraper.Collect(context.Background(), f, models.SearchCriteria{}, maxPages)
			require.NoError(t, err)
			assert.Equal(t, maxPages, f.extracts)
			assert.Len(t, got, maxPages)
			assert.Equal(t, maxPages-1, f.nextCalls)
		})
	}
}

func TestCollect_StopsWhenNoNextPage(t *testing.T) {
	f := &fakeResults{pages: [][]models.JobListing{
		{listing("a", "", "", "", "")},
		{listing("b", "", "", "", ""), listing("c", "", "", "", "")},
	}}

	got, err := scraper.Collect(context.Background(), f, models.SearchCriteria{Keywords: "go"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "c", got[2].Title)
	assert.Equal(t, 2, f.extracts)
	require.Len(t, f.searched, 1)
	assert.Equal(t, "go", f.searched[0].Keywords)
}

func TestCollect_SearchError(t *testing.T) {
	f := &fakeResults{pages: [][]models.JobListing{{}}, searchErr: errors.New("search bar missing")}

	_, err := scraper.Collect(context.Background(), f, models.SearchCriteria{}, 3)
	require.Error(t, err)
	assert.Equal(t, 0, f.extracts)
}

func TestCollect_FirstPageExtractErrorFails(t *testing.T) {
	f := &fakeResults{pages: [][]models.JobListing{{}}, extractErr: map[int]error{0: errors.New("no tuples")}}

	_, err := scraper.Collect(context.Background(), f, models.SearchCriteria{}, 3)
	assert.Error(t, err)
}

func TestCollect_LaterExtractErrorKeepsCollected(t *testing.T) {
	f := &fakeResults{
		pages:      [][]models.JobListing{{listing("a", "", "", "", "")}, {listing("b", "", "", "", "")}},
		extractErr: map[int]error{1: errors.New("stale page")},
	}

	got, err := scraper.Collect(context.Background(), f, models.SearchCriteria{}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
}

// fixture holds ten listings; exactly m1, m2 and m3 satisfy the filter
// derived from keywords "node,react", Pune, 2-4 years and rating 3.5.
func fixture() [][]models.JobListing {
	return [][]models.JobListing{
		{
			listing("m1", "Globex", "Pune", "2-5 Yrs", "4.1", "Node.js", "React", "AWS"),
			listing("wrong city", "Initech", "Bengaluru", "2-4 Yrs", "4.5", "Node.js", "React"),
			listing("low rating", "Hooli", "Pune", "3-6 Yrs", "3.2", "Node.js", "React"),
			listing("no react", "Umbrella", "Pune", "1-3 Yrs", "4.0", "Node.js", "Express"),
		},
		{
			listing("m2", "Stark", "Pune, Mumbai", "3 Yrs", "3.5", "node", "ReactJS"),
			listing("too senior", "Wayne", "Pune", "8-12 Yrs", "4.4", "Node.js", "React"),
			listing("no rating", "Soylent", "Pune", "2-4 Yrs", "", "Node.js", "React"),
			listing("bad experience", "Tyrell", "Pune", "Fresher", "4.2", "Node.js", "React"),
		},
		{
			listing("m3", "Cyberdyne", "Hinjewadi, Pune", "0-2 Yrs", "3.9", "React Native", "NodeJS"),
			listing("no skills", "Aperture", "Pune", "2-4 Yrs", "4.8"),
		},
	}
}

func TestScrape_EndToEndFixture(t *testing.T) {
	cfg := models.JobConfig{
		Search: models.SearchCriteria{Keywords: "node,react", Location: "Pune", MinExperience: 2, MaxExperience: 4},
		Filter: models.FilterCriteria{MinRating: 3.5},
	}
	f := &fakeResults{pages: fixture()}

	got, err := scraper.Scrape(context.Background(), f, cfg.Search, cfg.EffectiveFilter(), 5)
	require.NoError(t, err)

	var titles []string
	for _, l := range got {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, titles)
}

func TestScrape_FilterAppliesAfterAllPages(t *testing.T) {
	// Page 1 has no matches; pagination must continue regardless.
	f := &fakeResults{pages: [][]models.JobListing{
		{listing("x", "A", "Delhi", "2 Yrs", "4")},
		{listing("y", "B", "Pune", "2 Yrs", "4")},
	}}

	got, err := scraper.Scrape(context.Background(), f, models.SearchCriteria{},
		models.FilterCriteria{Location: "pune"}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Title)
	assert.Equal(t, 2, f.extracts)
}
