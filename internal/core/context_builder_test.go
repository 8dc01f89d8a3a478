package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aspada.com/assistant/internal/config"
	"aspada.com/assistant/internal/store"
)

func TestBuildListingContext(t *testing.T) {
	projects := []store.Project{
		{
			Title:        "Green Acres",
			Category:     "villa",
			Status:       "ongoing",
			AddressLine1: "Survey 12",
			City:         "Pune",
			State:        "Maharashtra",
			Pincode:      "411045",
			Description:  "<p>Gated   community</p>\n<ul><li>Clubhouse</li></ul>",
		},
		{Title: "Plot 7"},
	}

	got := BuildListingContext(projects)
	assert.Equal(t,
		"Green Acres (villa, ongoing) - Survey 12, Pune, Maharashtra, 411045: Gated community Clubhouse\nPlot 7",
		got)
	assert.Empty(t, BuildListingContext(nil))
}

func TestListingStatusFilter(t *testing.T) {
	assert.Equal(t, store.ProjectStatusOngoing, listingStatusFilter(config.ListingScopeOngoing))
	assert.Equal(t, "", listingStatusFilter(config.ListingScopeAll))
}
