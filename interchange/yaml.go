package interchange

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ezachrisen/dmn"
)

// DecodeYAML reads a Document in YAML form and builds a graph from it.
// Unknown fields are rejected.
func DecodeYAML(r io.Reader, opts ...dmn.GraphOption) (*dmn.Graph, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrap(err, "decoding YAML model")
	}
	return d.Build(opts...)
}

// EncodeYAML writes g as a Document in YAML form.
func EncodeYAML(w io.Writer, g *dmn.Graph) error {
	if g == nil {
		return errors.New("attempt to encode nil graph")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromGraph(g)); err != nil {
		return errors.Wrap(err, "encoding YAML model")
	}
	return enc.Close()
}
