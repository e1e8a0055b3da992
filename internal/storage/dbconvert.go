package storage

import (
	"fmt"
	"time"

	"intake/internal/models"
)

// timeLayout is how SQLite stores timestamps; it sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime converts a timestamp to its stored UTC text form.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime converts a stored timestamp back to UTC.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// prepareLead fills defaults on a lead about to be inserted.
func prepareLead(lead *models.Lead) {
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	} else {
		lead.CreatedAt = lead.CreatedAt.UTC()
	}
}

// page clamps pagination arguments to a valid window over n items.
func page(n, limit, offset int) (start, end int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return n, n
	}
	end = n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
