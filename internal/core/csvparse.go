package core

// csvparse.go tokenizes an uploaded CSV into a header row and row maps.
//
// Rules:
//   - the first non-blank line is the header; header cells are trimmed
//   - a " toggles the in-quotes state; commas and newlines inside a
//     quoted span are literal text, and text after a closing quote stays
//     in the same field
//   - "" inside a quoted span is a literal quote, so exported files
//     re-import losslessly
//   - an unterminated quote runs to the end of the input
//   - every field is trimmed of surrounding whitespace
//   - blank lines are skipped entirely
//   - a row with fewer values than headers gets "" for the missing ones;
//     values past the last header are dropped
//   - when a header name repeats, the first occurrence's value wins

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVRow is one data row keyed by header name.
type CSVRow struct {
	Line   int // 1-based line number in the source file
	Values map[string]string
}

// ParsedCSV is the tokenized content of one upload.
type ParsedCSV struct {
	Headers []string
	Rows    []CSVRow
}

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file: no header row found")

// Parse reads CSV text. Input should already be cleaned with CleanReader
// when it comes from an upload.
func Parse(r io.Reader) (*ParsedCSV, error) {
	tok := newTokenizer(r)

	out := &ParsedCSV{}
	for {
		rec, line, err := tok.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if isBlankRecord(rec) {
			continue
		}

		if out.Headers == nil {
			out.Headers = trimAll(rec)
			continue
		}

		out.Rows = append(out.Rows, CSVRow{
			Line:   line,
			Values: rowValues(out.Headers, rec),
		})
	}

	if out.Headers == nil {
		return nil, ErrEmptyFile
	}
	return out, nil
}

// tokenizer splits input into records of raw (untrimmed) fields.
type tokenizer struct {
	r    *bufio.Reader
	line int // line the reader is currently on
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{r: bufio.NewReader(r), line: 1}
}

// next returns the next record and the line it starts on. It returns
// io.EOF once the input is exhausted.
func (t *tokenizer) next() ([]string, int, error) {
	start := t.line
	var (
		rec      []string
		field    strings.Builder
		inQuotes bool
		sawAny   bool
	)

	for {
		c, _, err := t.r.ReadRune()
		if err == io.EOF {
			if !sawAny {
				return nil, start, io.EOF
			}
			return append(rec, field.String()), start, nil
		}
		if err != nil {
			return nil, start, err
		}
		sawAny = true

		switch {
		case c == '"' && inQuotes:
			if nc, _, err := t.r.ReadRune(); err == nil {
				if nc == '"' {
					field.WriteRune('"')
					continue
				}
				t.r.UnreadRune()
			}
			inQuotes = false
		case c == '"':
			inQuotes = true
		case c == '\r':
			if nc, _, err := t.r.ReadRune(); err == nil && nc != '\n' {
				t.r.UnreadRune()
			}
			t.line++
			if !inQuotes {
				return append(rec, field.String()), start, nil
			}
			field.WriteRune('\n')
		case c == '\n':
			t.line++
			if !inQuotes {
				return append(rec, field.String()), start, nil
			}
			field.WriteRune('\n')
		case c == ',' && !inQuotes:
			rec = append(rec, field.String())
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) (*ParsedCSV, error) {
	return Parse(strings.NewReader(s))
}

func rowValues(headers, rec []string) map[string]string {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if _, seen := values[h]; seen {
			continue
		}
		v := ""
		if i < len(rec) {
			v = strings.TrimSpace(rec[i])
		}
		values[h] = v
	}
	return values
}

// isBlankRecord reports whether a record came from an empty or
// whitespace-only line.
func isBlankRecord(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
