package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQueueActive(t *testing.T) {
	zero := 0
	three := 3

	tests := []struct {
		name     string
		position *int
		expected bool
	}{
		{name: "Nil position is active", position: nil, expected: true},
		{name: "Zero position is active", position: &zero, expected: true},
		{name: "Positive position is waiting", position: &three, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := Order{QueuePosition: tt.position}
			assert.Equal(t, tt.expected, order.IsQueueActive())
		})
	}
}

func TestUploadedFilesRoundTrip(t *testing.T) {
	var order Order

	assert.Nil(t, order.GetUploadedFiles())

	require.NoError(t, order.SetUploadedFiles([]string{"attachments/a.pdf", "attachments/b.png"}))
	assert.Equal(t, []string{"attachments/a.pdf", "attachments/b.png"}, order.GetUploadedFiles())

	require.NoError(t, order.SetUploadedFiles(nil))
	assert.Nil(t, order.GetUploadedFiles())

	// Corrupt stored data degrades to no files rather than an error
	order.UploadedFiles = "{not json"
	assert.Nil(t, order.GetUploadedFiles())
}

func TestStatusDisplay(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{StatusNew, "New"},
		{StatusInProgress, "In Progress"},
		{StatusDelivered, "Delivered"},
		{StatusClosed, "Closed"},
		{"mystery", "Unknown"},
	}

	for _, tt := range tests {
		order := Order{Status: tt.status}
		assert.Equal(t, tt.expected, order.StatusDisplay())
	}
}

func TestProjectTypeDisplay(t *testing.T) {
	tests := []struct {
		projectType string
		expected    string
	}{
		{ProjectTypeLanding, "Landing Page"},
		{ProjectTypeBusiness, "Business Website"},
		{ProjectTypeEcommerce, "E-commerce"},
		{"something", "Other"},
	}

	for _, tt := range tests {
		order := Order{ProjectType: tt.projectType}
		assert.Equal(t, tt.expected, order.ProjectTypeDisplay())
	}
}

func TestDefaultStepTemplates(t *testing.T) {
	require.Len(t, DefaultStepTemplates, 8)

	for i, tmpl := range DefaultStepTemplates {
		assert.Equal(t, i+1, tmpl.Number)
		assert.NotEmpty(t, tmpl.Name)
		assert.NotEmpty(t, tmpl.Description)
	}

	assert.Equal(t, "Order Received", DefaultStepTemplates[0].Name)
	assert.Equal(t, "Launch", DefaultStepTemplates[7].Name)
}
