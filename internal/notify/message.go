package notify

import (
	"fmt"
	"strings"

	"github.com/jobsuitex/autoapply/pkg/models"
)

const appliedHeadline = "*Job Applied Successfully!*"

// FormatApplied renders the success message for an applied listing.
func FormatApplied(l models.JobListing) string {
	skills := "N/A"
	if len(l.Skills) > 0 {
		skills = strings.Join(l.Skills, ", ")
	}
	reviews := orDefault(l.Reviews, "No")

	var b strings.Builder
	b.WriteString(appliedHeadline + "\n\n")
	fmt.Fprintf(&b, "*Position:* %s\n", l.Title)
	fmt.Fprintf(&b, "*Company:* %s\n", l.Company)
	fmt.Fprintf(&b, "*Location:* %s\n", orDefault(l.Location, "N/A"))
	fmt.Fprintf(&b, "*Experience:* %s\n", orDefault(l.Experience, "N/A"))
	fmt.Fprintf(&b, "*Salary:* %s\n", orDefault(l.Salary, "N/A"))
	fmt.Fprintf(&b, "*Rating:* %s (%s reviews)\n", orDefault(l.Rating, "N/A"), reviews)
	fmt.Fprintf(&b, "*Posted On:* %s\n\n", orDefault(l.PostedOn, "N/A"))
	fmt.Fprintf(&b, "*Description:* %s\n\n", orDefault(l.Description, "No description available"))
	fmt.Fprintf(&b, "*Skills:* %s\n\n", skills)
	fmt.Fprintf(&b, "*Apply Link:* %s\n\n", orDefault(l.ApplyLink, "N/A"))
	b.WriteString("Please wait while we track the application status.")
	return b.String()
}

// Subject derives a one-line subject from a message's first line.
func Subject(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	line = strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
	if line == "" {
		return "Job application update"
	}
	return line
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
