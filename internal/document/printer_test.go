package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a local Chrome or Chromium.
func TestRodPrinter(t *testing.T) {
	bin := os.Getenv("CONTACTSHEET_BROWSER_BIN")
	if bin == "" {
		t.Skip("CONTACTSHEET_BROWSER_BIN not set")
	}

	logger, _ := logtest.NewNullLogger()
	output := filepath.Join(t.TempDir(), "guide.pdf")
	r := NewRenderer(Options{Input: writeManuscript(t), Output: output}, RodPrinter{Bin: bin, NoSandbox: true}, logger)

	res, err := r.Render(context.Background())
	require.NoError(t, err)
	assert.Positive(t, res.Size)
	// cover, contents, then one page per chapter
	assert.GreaterOrEqual(t, res.Pages, 4)
}
