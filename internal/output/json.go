package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// jsonWriter collects records and writes them on Close: a lone record as an
// object, several as an array.
type jsonWriter struct {
	w       *bufio.Writer
	indent  string
	records []any
}

func newJSONWriter(w io.Writer, indent string) *jsonWriter {
	return &jsonWriter{w: bufio.NewWriter(w), indent: indent}
}

func (w *jsonWriter) Write(record any) error {
	w.records = append(w.records, record)
	return nil
}

func (w *jsonWriter) Close() error {
	if len(w.records) == 0 {
		return nil
	}

	var v any = w.records
	if len(w.records) == 1 {
		v = w.records[0]
	}

	enc := json.NewEncoder(w.w)
	enc.SetIndent("", w.indent)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.records = nil
	return w.w.Flush()
}

// jsonlWriter writes each record as one line as soon as it arrives.
type jsonlWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func newJSONLWriter(w io.Writer) *jsonlWriter {
	bw := bufio.NewWriter(w)
	return &jsonlWriter{w: bw, enc: json.NewEncoder(bw)}
}

func (w *jsonlWriter) Write(record any) error {
	if err := w.enc.Encode(record); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *jsonlWriter) Close() error {
	return w.w.Flush()
}
