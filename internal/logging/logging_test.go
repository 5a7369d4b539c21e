package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", &buf)

	logger.WithField("file", "a.jpg").Debug("resolved")

	assert.Contains(t, buf.String(), "file=a.jpg")
	assert.Contains(t, buf.String(), "resolved")
}
