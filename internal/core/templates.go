package core

import (
	"bytes"
	"fmt"
)

// CSVTemplate returns a downloadable import template for et: the canonical
// field names as the header row plus the definition's sample rows.
func CSVTemplate(et EntityType) (filename string, body []byte, err error) {
	def, err := MustGet(et)
	if err != nil {
		return "", nil, err
	}

	header := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		header[i] = f.Name
	}

	samples := make([][]string, len(def.Samples))
	for i, s := range def.Samples {
		row := make([]string, len(header))
		copy(row, s)
		samples[i] = row
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, header, samples); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s-template.csv", et), buf.Bytes(), nil
}
