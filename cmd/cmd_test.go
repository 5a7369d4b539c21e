package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/choiway/contactsheet/internal/config"
	"github.com/choiway/contactsheet/internal/document"
	"github.com/choiway/contactsheet/internal/exifdate"
	"github.com/choiway/contactsheet/internal/gallery"
	"github.com/choiway/contactsheet/internal/index"
	"github.com/choiway/contactsheet/internal/logging"
	"github.com/choiway/contactsheet/internal/metadata"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := Execute(context.Background())
	return out.String(), err
}

// workspace switches into a fresh directory holding a config file that
// points everything at paths inside it.
func workspace(t *testing.T) string {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.MkdirAll("images", 0o755))
	cfgYAML := `log_level: error
photos:
  dir: images
  cache: photo_metadata.json
  reader: exif
document:
  input: book.md
  output: out/book.pdf
thumbnails:
  dir: thumbs
`
	require.NoError(t, os.WriteFile("test.yaml", []byte(cfgYAML), 0o644))
	return dir
}

// exifJPEG is just enough of a JPEG for an EXIF reader: SOI, an APP1 with
// DateTimeOriginal in IFD0, EOI.
func exifJPEG(date string) []byte {
	le := binary.LittleEndian
	val := append([]byte(date), 0)

	var tiff bytes.Buffer
	tiff.WriteString("II")
	_ = binary.Write(&tiff, le, uint16(42))
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint16(1))
	_ = binary.Write(&tiff, le, uint16(0x9003))
	_ = binary.Write(&tiff, le, uint16(2)) // ASCII
	_ = binary.Write(&tiff, le, uint32(len(val)))
	_ = binary.Write(&tiff, le, uint32(8+2+12+4))
	_ = binary.Write(&tiff, le, uint32(0))
	tiff.Write(val)

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(2+6+tiff.Len()))
	out.WriteString("Exif\x00\x00")
	out.Write(tiff.Bytes())
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

func TestVersion(t *testing.T) {
	workspace(t)
	out, err := execute(t, "version", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Equal(t, "contactsheet dev\n", out)
}

func TestInvalidConfig(t *testing.T) {
	workspace(t)
	require.NoError(t, os.WriteFile("bad.yaml", []byte("server:\n  date_source: sometimes\n"), 0o644))

	_, err := execute(t, "serve", "--config", "bad.yaml")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "version", "--config", "missing.yaml")
	assert.Error(t, err)
}

func TestMetadataCommand(t *testing.T) {
	workspace(t)
	require.NoError(t, os.WriteFile("images/IMG_0001.JPG", exifJPEG("2021:06:30 08:15:00"), 0o644))
	require.NoError(t, os.WriteFile("images/IMG_0002.jpg", []byte("no exif here"), 0o644))
	require.NoError(t, os.WriteFile("images/clip.mov", []byte("video"), 0o644))

	out, err := execute(t, "metadata", "--config", "test.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Scanning images for photos...")
	assert.Contains(t, out, "Found 2 photos to process")
	assert.Contains(t, out, "[1/2] Processing IMG_0001.JPG...")
	assert.Contains(t, out, "Date: 2021-06-30")
	assert.Contains(t, out, "No EXIF date found")
	assert.Contains(t, out, "Metadata written to photo_metadata.json")
	assert.Contains(t, out, "Total photos processed: 1")

	cache, err := metadata.LoadCache("photo_metadata.json")
	require.NoError(t, err)
	assert.Equal(t, metadata.Cache{"IMG_0001.JPG": "2021-06-30"}, cache)
}

func TestMetadataFlagsOverrideConfig(t *testing.T) {
	workspace(t)
	require.NoError(t, os.MkdirAll("other", 0o755))
	require.NoError(t, os.WriteFile("other/a.jpeg", exifJPEG("2015:02:03 00:00:00"), 0o644))

	_, err := execute(t, "metadata", "--config", "test.yaml", "--dir", "other", "-o", "alt.json")
	require.NoError(t, err)

	cache, err := metadata.LoadCache("alt.json")
	require.NoError(t, err)
	assert.Equal(t, metadata.Cache{"a.jpeg": "2015-02-03"}, cache)
	assert.NoFileExists(t, "photo_metadata.json")
}

func TestInitAndRuns(t *testing.T) {
	workspace(t)

	_, err := execute(t, "runs", "--config", "test.yaml")
	assert.ErrorIs(t, err, errNoIndex)

	out, err := execute(t, "init", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Index ready at "+config.DefaultIndexPath())
	assert.Contains(t, out, "Wrote contactsheet.yaml")
	assert.FileExists(t, config.DefaultIndexPath())

	written, err := os.ReadFile(config.LocalConfigName)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBytes(), written)

	out, err = execute(t, "init", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Keeping existing contactsheet.yaml")

	require.NoError(t, os.WriteFile("images/a.jpg", exifJPEG("2020:01:01 00:00:00"), 0o644))
	_, err = execute(t, "metadata", "--config", "test.yaml")
	require.NoError(t, err)

	out, err = execute(t, "runs", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "images")

	_, err = execute(t, "metadata", "--config", "test.yaml", "--no-index")
	require.NoError(t, err)
	out, err = execute(t, "runs", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("completed")))
}

func TestMetadataIgnoresUnusableEnvIndex(t *testing.T) {
	tests := map[string]string{
		"other database": "mysql://u:p@localhost/app",
		"unreachable":    "postgres://u:p@127.0.0.1:1/db?connect_timeout=2",
	}

	for name, dsn := range tests {
		t.Run(name, func(t *testing.T) {
			dir := workspace(t)
			t.Setenv("DATABASE_URL", dsn)
			require.NoError(t, os.WriteFile("images/a.jpg", exifJPEG("2019:05:06 07:08:09"), 0o644))

			_, err := execute(t, "metadata", "--config", "test.yaml")
			require.NoError(t, err)

			cache, err := metadata.LoadCache("photo_metadata.json")
			require.NoError(t, err)
			assert.Equal(t, metadata.Cache{"a.jpg": "2019-05-06"}, cache)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.NotContains(t, e.Name(), ":")
			}
		})
	}
}

func TestMetadataExplicitIndexMustOpen(t *testing.T) {
	workspace(t)
	cfgYAML := "log_level: error\nphotos:\n  dir: images\n  reader: exif\nindex:\n  dsn: mysql://u:p@localhost/app\n"
	require.NoError(t, os.WriteFile("explicit.yaml", []byte(cfgYAML), 0o644))

	_, err := execute(t, "metadata", "--config", "explicit.yaml")
	assert.ErrorIs(t, err, index.ErrUnsupportedDSN)
	assert.NoFileExists(t, "photo_metadata.json")
}

func TestRunsUnknownID(t *testing.T) {
	workspace(t)
	_, err := execute(t, "init", "--config", "test.yaml")
	require.NoError(t, err)

	_, err = execute(t, "runs", "--config", "test.yaml", "no-such-run")
	assert.ErrorIs(t, err, index.ErrUnknownRun)
}

func TestRunsColumnsAlignWithColor(t *testing.T) {
	workspace(t)
	noColor := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = noColor })

	_, err := execute(t, "init", "--config", "test.yaml")
	require.NoError(t, err)
	_, err = execute(t, "metadata", "--config", "test.yaml")
	require.NoError(t, err)

	out, err := execute(t, "runs", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")

	ansi := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	lines := strings.Split(strings.TrimSpace(ansi.ReplaceAllString(out, "")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "DIR"), strings.Index(lines[1], "images"))
	assert.Equal(t, strings.Index(lines[0], "STATUS"), strings.Index(lines[1], "completed"))
}

func TestLiveDateSourceUsesLiveReader(t *testing.T) {
	workspace(t)
	_, err := execute(t, "version", "--config", "test.yaml")
	require.NoError(t, err)
	cfg.Server.DateSource = "live"
	cfg.Photos.Reader = "identify"

	source, closer, err := dateSource()
	require.NoError(t, err)
	defer closer.Close()

	live, ok := source.(gallery.LiveSource)
	require.True(t, ok)
	assert.Equal(t, exifdate.ExifReader{}, live.Resolver.Reader)
}

type fakePrinter struct{}

func (fakePrinter) PrintPDF(_ context.Context, html string, _ document.Page, _ string) ([]byte, error) {
	return []byte("%PDF-1.7 xx"), nil
}

func TestPDFCommand(t *testing.T) {
	workspace(t)
	orig := newPrinter
	newPrinter = func(config.Document) document.Printer { return fakePrinter{} }
	t.Cleanup(func() { newPrinter = orig })

	require.NoError(t, os.WriteFile("book.md", []byte("# Book\n\n## One\n\n## Two\n"), 0o644))

	out, err := execute(t, "pdf", "--config", "test.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "PDF created successfully: out/book.pdf\n")
	assert.Contains(t, out, "File size: 11.0 B\n")
	assert.FileExists(t, "out/book.pdf")

	_, err = execute(t, "pdf", "--config", "test.yaml", "-i", "missing.md")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestThumbsCommand(t *testing.T) {
	workspace(t)
	f, err := os.Create("images/wide.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 32))))
	require.NoError(t, f.Close())

	out, err := execute(t, "thumbs", "--config", "test.yaml", "--max-width", "16")
	require.NoError(t, err)
	assert.Equal(t, "Thumbnails written: 1, skipped: 0, failed: 0\n", out)

	tf, err := os.Open("thumbs/wide.png")
	require.NoError(t, err)
	defer tf.Close()
	img, err := png.DecodeConfig(tf)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 8, img.Height)
}

func TestDateSourceMissingCache(t *testing.T) {
	workspace(t)
	_, err := execute(t, "version", "--config", "test.yaml")
	require.NoError(t, err)

	source, closer, err := dateSource()
	require.NoError(t, err)
	defer closer.Close()

	cs, ok := source.(gallery.CacheSource)
	require.True(t, ok)
	assert.Empty(t, cs.Cache)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	logger = logging.Discard()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	logger = logging.Discard()

	srv := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler()}
	err := serve(context.Background(), srv)
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed), fmt.Sprint(err))
}

func TestDisplayHost(t *testing.T) {
	assert.Equal(t, "localhost:8000", displayHost(":8000"))
	assert.Equal(t, "0.0.0.0:9000", displayHost("0.0.0.0:9000"))
}
