package core

import (
	"fmt"
	"regexp"
	"strings"

	"aspada.com/assistant/internal/config"
	"aspada.com/assistant/internal/store"
)

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// listingStatusFilter maps the configured scope to a store status filter;
// "" means every project.
func listingStatusFilter(scope config.ListingScope) string {
	if scope == config.ListingScopeAll {
		return ""
	}
	return store.ProjectStatusOngoing
}

// BuildListingContext renders one line per project for the system prompt.
func BuildListingContext(projects []store.Project) string {
	lines := make([]string, 0, len(projects))
	for _, p := range projects {
		lines = append(lines, listingLine(p))
	}
	return strings.Join(lines, "\n")
}

func listingLine(p store.Project) string {
	var b strings.Builder
	b.WriteString(p.Title)

	var tags []string
	for _, t := range []string{p.Category, p.Status} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(tags, ", "))
	}

	var addr []string
	for _, part := range []string{p.AddressLine1, p.City, p.District, p.State, p.Pincode} {
		if part = strings.TrimSpace(part); part != "" {
			addr = append(addr, part)
		}
	}
	if len(addr) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(addr, ", "))
	}

	if desc := plainText(p.Description); desc != "" {
		b.WriteString(": ")
		b.WriteString(desc)
	}
	return b.String()
}

// plainText strips markup from rich-text descriptions and folds them onto one line.
func plainText(s string) string {
	s = htmlTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
