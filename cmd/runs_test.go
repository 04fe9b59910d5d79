package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/demomap/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Command:   "render",
			Status:    model.RunStatusComplete,
			Rows:      812,
			Output:    "out/demographics_map.html",
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Command:   "fetch zctas",
			Status:    model.RunStatusFailed,
			Error:     "census: zctas: fetcher: status 503 from api.census.gov after retries",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-59 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "COMMAND")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "render")
	assert.Contains(t, output, "812")
	assert.Contains(t, output, "out/demographics_map.html")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "census: zctas: fetcher: status 503 fr...")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
