package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

func setFlags(t *testing.T, anchor, zone string, count int) {
	t.Helper()
	previewAnchor, previewZone, previewCount, previewHorizon = anchor, zone, count, 12
}

func TestRunPreviewAcrossDST(t *testing.T) {
	setFlags(t, "2024-03-08 09:00", "America/New_York", 4)

	var out bytes.Buffer
	require.NoError(t, runPreview(&out, "FREQ=DAILY;INTERVAL=1"))

	assert.Equal(t, "Every day at 09:00 (America/New_York)\n\n"+
		"  1. Fri 2024-03-08 09:00  2024-03-08T14:00:00Z\n"+
		"  2. Sat 2024-03-09 09:00  2024-03-09T14:00:00Z\n"+
		"  3. Sun 2024-03-10 09:00  2024-03-10T13:00:00Z\n"+
		"  4. Mon 2024-03-11 09:00  2024-03-11T13:00:00Z\n", out.String())
}

func TestRunPreviewRejectsBadInput(t *testing.T) {
	var out bytes.Buffer

	setFlags(t, "2024-03-08 09:00", "Mars/Olympus", 4)
	err := runPreview(&out, "FREQ=DAILY")
	assert.True(t, apperr.Is(err, apperr.ErrTimeZone))

	setFlags(t, "tomorrow", "UTC", 4)
	err = runPreview(&out, "FREQ=DAILY")
	assert.Equal(t, "start", apperr.FieldOf(err))

	setFlags(t, "2024-03-08 09:00", "UTC", 0)
	err = runPreview(&out, "FREQ=DAILY")
	assert.True(t, apperr.Is(err, apperr.ErrUnboundedPreview))

	setFlags(t, "2024-03-08 09:00", "UTC", 4)
	err = runPreview(&out, "FREQ=YEARLY")
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}
