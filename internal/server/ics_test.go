package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpawlik/gridcal/internal/events"
)

func TestBuildICS(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	feed := BuildICS([]events.DisplayEvent{
		{
			ID:    "evt_1",
			Title: "Standup",
			Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	}, now)

	assert.True(t, strings.HasPrefix(feed, "BEGIN:VCALENDAR"))
	assert.Contains(t, feed, "METHOD:PUBLISH")
	assert.Contains(t, feed, "UID:evt_1")
	assert.Contains(t, feed, "SUMMARY:Standup")
	assert.Contains(t, feed, "DTSTART:20260302T090000Z")
	assert.Contains(t, feed, "DTEND:20260302T093000Z")
	assert.Contains(t, feed, "END:VCALENDAR")
}

func TestBuildICS_Empty(t *testing.T) {
	feed := BuildICS(nil, time.Now())
	assert.Contains(t, feed, "BEGIN:VCALENDAR")
	assert.NotContains(t, feed, "BEGIN:VEVENT")
}

func TestViewServer_ICSFeed(t *testing.T) {
	h := newViewHarness(t)
	h.store.ReplaceAll([]events.DisplayEvent{
		{
			ID:    "evt_1",
			Title: "Standup",
			Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	})

	rec := h.do(t, http.MethodGet, "/api/events.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))
	assert.Contains(t, rec.Body.String(), "SUMMARY:Standup")
}
