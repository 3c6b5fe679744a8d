package core

// streaming.go cleans raw upload bytes before they reach the CSV tokenizer.
//
// Spreadsheet exports from Windows tools often start with a UTF-8 BOM, and
// hand-edited files sometimes carry Latin-1 bytes. Both are handled on the
// fly so an upload is never buffered twice:
//
//   - a leading BOM (0xEF 0xBB 0xBF) is dropped
//   - invalid UTF-8 bytes become '?'
//
// Use CleanReader to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CleanReader returns a reader that skips a leading BOM and replaces
// invalid UTF-8 with '?'.
func CleanReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{src: br}
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?'.
// A multi-byte rune split across reads is held back until it completes.
type utf8Sanitizer struct {
	src     *bufio.Reader
	carry   []byte
	srcDone bool
	err     error
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.carry) < len(p) && !s.srcDone {
		chunk := make([]byte, len(p))
		n, err := s.src.Read(chunk)
		s.carry = append(s.carry, chunk[:n]...)
		if err != nil {
			s.srcDone = true
			if err != io.EOF {
				s.err = err
			}
		}
		if n > 0 {
			break
		}
	}

	if len(s.carry) == 0 && s.srcDone {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}

	out := 0
	i := 0
	for i < len(s.carry) && out < len(p) {
		b := s.carry[i]
		if b < utf8.RuneSelf {
			p[out] = b
			out++
			i++
			continue
		}
		if !s.srcDone && !utf8.FullRune(s.carry[i:]) {
			// Wait for the rest of the rune.
			break
		}
		r, size := utf8.DecodeRune(s.carry[i:])
		if r == utf8.RuneError && size == 1 {
			p[out] = '?'
			out++
			i++
			continue
		}
		if out+size > len(p) {
			break
		}
		copy(p[out:], s.carry[i:i+size])
		out += size
		i += size
	}

	s.carry = append(s.carry[:0], s.carry[i:]...)

	if out == 0 && len(s.carry) > 0 && len(p) < utf8.UTFMax {
		// Caller buffer too small for the pending rune.
		p[0] = '?'
		s.carry = s.carry[1:]
		return 1, nil
	}
	return out, nil
}
