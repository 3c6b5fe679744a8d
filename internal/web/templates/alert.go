// Package templates holds the HTML fragments the API returns to HTMX
// clients.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// fragment writes HTML pieces and keeps the first write error; later
// writes are skipped once one fails.
type fragment struct {
	w   io.Writer
	err error
}

func (f *fragment) raw(s string) {
	if f.err == nil {
		_, f.err = io.WriteString(f.w, s)
	}
}

// text writes s HTML-escaped.
func (f *fragment) text(s string) {
	f.raw(templ.EscapeString(s))
}

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		f := &fragment{w: w}
		f.raw(`<div class="alert alert-error" role="alert"><p class="alert-message">`)
		f.text(message)
		f.raw(`</p>`)
		if action != "" {
			f.raw(`<p class="alert-action">`)
			f.text(action)
			f.raw(`</p>`)
		}
		if code != "" {
			f.raw(`<p class="alert-code">Code: `)
			f.text(code)
			f.raw(`</p>`)
		}
		f.raw(`</div>`)
		return f.err
	})
}

// ImportSummary renders the result line shown after an HTMX import.
func ImportSummary(imported, skipped, total int, errors []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		f := &fragment{w: w}
		f.raw(`<div class="import-summary"><p>Imported ` + strconv.Itoa(imported) +
			`, skipped ` + strconv.Itoa(skipped) +
			` of ` + strconv.Itoa(total) + ` rows.</p>`)
		if len(errors) > 0 {
			f.raw(`<ul class="import-errors">`)
			for _, e := range errors {
				f.raw(`<li>`)
				f.text(e)
				f.raw(`</li>`)
			}
			f.raw(`</ul>`)
		}
		f.raw(`</div>`)
		return f.err
	})
}
