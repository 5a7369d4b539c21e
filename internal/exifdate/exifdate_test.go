package exifdate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "2023:06:14 18:02:11", want: "2023-06-14", ok: true},
		{raw: "  2019:01:05 09:00:00+02:00", want: "2019-01-05", ok: true},
		{raw: "2020-02-14T10:00:00Z", want: "2020-02-14", ok: true},
		{raw: "0000:00:00 00:00:00", ok: false},
		{raw: "2023:02:30 00:00:00", ok: false},
		{raw: "unknown", ok: false},
		{raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessorDate(t *testing.T) {
	fields := Fields{
		DateTime:         "2024:01:01 00:00:00",
		DateTimeOriginal: "2019:04:18 12:00:00",
	}

	got, ok := Accessor{Name: DateTimeOriginal}.Date(fields)
	assert.True(t, ok)
	assert.Equal(t, "2019-04-18", got)

	_, ok = Accessor{Name: DateTimeDigitized}.Date(fields)
	assert.False(t, ok)
}

func TestDefaultAccessorOrder(t *testing.T) {
	names := make([]string, 0, len(DefaultAccessors))
	for _, a := range DefaultAccessors {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{DateTimeOriginal, DateTimeDigitized, DateTime}, names)
}

func TestParseIdentify(t *testing.T) {
	out := []byte(`Image:
  Filename: images/IMG_1071.jpg
  Format: JPEG (Joint Photographic Experts Group JFIF format)
  Properties:
    date:create: 2024-11-02T12:12:14+00:00
    exif:DateTime: 2024:11:02 12:12:14
    exif:DateTimeDigitized: 2019:01:05 10:20:30
    exif:DateTimeOriginal: 2019:01:05 10:20:30
    exif:Make: Apple
    exif:DateTime: 1999:01:01 00:00:00
`)

	fields := ParseIdentify(out)

	assert.Equal(t, "2019:01:05 10:20:30", fields[DateTimeOriginal])
	assert.Equal(t, "2019:01:05 10:20:30", fields[DateTimeDigitized])
	assert.Equal(t, "2024:11:02 12:12:14", fields[DateTime])
	assert.Equal(t, "Apple", fields["Make"])
	assert.NotContains(t, fields, "create")
}
