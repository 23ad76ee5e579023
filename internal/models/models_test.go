package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/models"
)

func TestDedupeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "en|plumber", models.Keyword{Language: "en", Slug: "plumber"}.Key())
	assert.Equal(t, "arlington-va", models.ServiceArea{Slug: "arlington-va"}.Key())
	assert.Equal(t, "leak-detection", models.ServiceOffering{Slug: "leak-detection"}.Key())
}

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, models.JobPending.Terminal())
	assert.False(t, models.JobProcessing.Terminal())
	assert.True(t, models.JobCompleted.Terminal())
	assert.True(t, models.JobFailed.Terminal())
	assert.True(t, models.JobCancelled.Terminal())
}

func TestJob_Progress(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, models.Job{}.Progress(), 0)
	assert.InDelta(t, 0.5, models.Job{TotalPages: 10, CompletedPages: 4, FailedPages: 1}.Progress(), 1e-9)
	assert.InDelta(t, 1.0, models.Job{TotalPages: 2, CompletedPages: 3}.Progress(), 0)
}
