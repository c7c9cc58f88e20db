package spec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is one YAML document of a spec file. Err is set when the document
// could not be read or is not a mapping; such documents carry no Raw content.
type Document struct {
	Source string
	Index  int
	Raw    map[string]any
	Err    error
}

// ID names the document in diagnostics.
func (d Document) ID() string {
	if d.Index == 0 {
		return d.Source
	}
	return fmt.Sprintf("%s#%d", d.Source, d.Index)
}

// Load reads every path in order. Unreadable files and YAML syntax errors do
// not stop the run; they surface as documents carrying Err.
func Load(paths []string) []Document {
	var out []Document
	for _, path := range paths {
		out = append(out, LoadFile(path)...)
	}
	return out
}

func LoadFile(path string) []Document {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Document{{Source: path, Err: fmt.Errorf("read spec: %w", err)}}
	}
	return Parse(path, data)
}

// Parse splits data into its YAML documents. Empty documents are dropped.
// Decoding stops at the first syntax error, which is reported as the last
// document of the file.
func Parse(source string, data []byte) []Document {
	var out []Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for index := 0; ; index++ {
		var raw any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			return append(out, Document{Source: source, Index: index, Err: fmt.Errorf("parse spec: %w", err)})
		}
		if raw == nil {
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			out = append(out, Document{Source: source, Index: index, Err: fmt.Errorf("parse spec: document is a %T, not a mapping", raw)})
			continue
		}
		out = append(out, Document{Source: source, Index: index, Raw: m})
	}
}
