package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlWriter emits one YAML document per record.
type yamlWriter struct {
	w   *bufio.Writer
	enc *yaml.Encoder
}

func newYAMLWriter(w io.Writer) *yamlWriter {
	bw := bufio.NewWriter(w)
	enc := yaml.NewEncoder(bw)
	enc.SetIndent(2)
	return &yamlWriter{w: bw, enc: enc}
}

func (w *yamlWriter) Write(record any) error {
	return w.enc.Encode(record)
}

func (w *yamlWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}
