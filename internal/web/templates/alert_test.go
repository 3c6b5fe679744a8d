package templates

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failAfter accepts n writes and fails every write after that.
type failAfter struct {
	n   int
	buf bytes.Buffer
}

var errWrite = errors.New("connection reset")

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errWrite
	}
	f.n--
	return f.buf.Write(p)
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert(`bad <input>`, "Try again", "VAL001").Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, `bad &lt;input&gt;`)
	assert.Contains(t, html, `<p class="alert-action">Try again</p>`)
	assert.Contains(t, html, `Code: VAL001`)
}

func TestErrorAlert_OmitsEmptyParts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("boom", "", "").Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "alert-action")
	assert.NotContains(t, buf.String(), "alert-code")
}

func TestImportSummary(t *testing.T) {
	var buf bytes.Buffer
	err := ImportSummary(1, 2, 3, []string{`row 2: <script>`}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Imported 1, skipped 2 of 3 rows.")
	assert.Contains(t, html, `<li>row 2: &lt;script&gt;</li>`)
}

func TestRender_ReturnsFirstWriteError(t *testing.T) {
	tests := []struct {
		name string
		fn   func(w *failAfter) error
	}{
		{"alert", func(w *failAfter) error {
			return ErrorAlert("m", "a", "c").Render(context.Background(), w)
		}},
		{"summary", func(w *failAfter) error {
			return ImportSummary(1, 0, 1, []string{"x", "y"}).Render(context.Background(), w)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &failAfter{n: 2}
			assert.ErrorIs(t, tt.fn(w), errWrite)
			assert.NotContains(t, w.buf.String(), "</div>", "writes stop after the first failure")
		})
	}
}
