package exifdate

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExiftoolReader(t *testing.T) {
	if _, err := exec.LookPath("exiftool"); err != nil {
		t.Skip("exiftool not installed")
	}

	path := writeJPEG(t, t.TempDir(), "a.jpg", map[string]string{
		DateTimeOriginal: "2016:03:04 05:06:07",
		DateTime:         "2020:01:01 00:00:00",
	})

	r, err := NewExiftoolReader()
	require.NoError(t, err)
	defer r.Close()

	fields, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "2016:03:04 05:06:07", fields[DateTimeOriginal])
	assert.Equal(t, "2020:01:01 00:00:00", fields[DateTime])

	m, err := NewResolver(r, discardLogger()).Lookup(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "2016-03-04", m.Date)
}
