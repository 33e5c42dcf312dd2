package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	mu          sync.RWMutex
	serializers = make(Serializers)
)

type Serializers map[string]Serializer

// Serializer is the interface that wraps the basic serialization methods
type Serializer interface {

	// Decode decodes the input into the output
	Decode(input []byte, output any) error

	// Encode encodes the input into the output
	Encode(input any, output io.Writer) error
}

func init() {
	Register("json", JSONSerializer{Indent: "  "})
	Register("yaml", YAMLSerializer{Indent: 2})
	Register("yml", YAMLSerializer{Indent: 2})
}

// Register registers a serializer under a format name
func Register(format string, serializer Serializer) {
	mu.Lock()
	defer mu.Unlock()
	serializers[strings.ToLower(format)] = serializer
}

// Lookup returns the serializer registered for format
func Lookup(format string) (Serializer, error) {
	mu.RLock()
	defer mu.RUnlock()

	if s, ok := serializers[strings.ToLower(format)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no serializer found for format %q", format)
}

// Formats lists the registered format names
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()

	formats := make([]string, 0, len(serializers))
	for f := range serializers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func Encode(format string, model any, output io.Writer) error {
	s, err := Lookup(format)
	if err != nil {
		return err
	}
	return s.Encode(model, output)
}

func Decode(format string, input []byte, model any) error {
	s, err := Lookup(format)
	if err != nil {
		return err
	}
	return s.Decode(input, model)
}

type JSONSerializer struct {
	Indent string
}

func (s JSONSerializer) Decode(input []byte, output any) error {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	return dec.Decode(output)
}

func (s JSONSerializer) Encode(input any, output io.Writer) error {
	enc := json.NewEncoder(output)
	if s.Indent != "" {
		enc.SetIndent("", s.Indent)
	}
	return enc.Encode(input)
}

// YAMLSerializer goes through JSON first so that json tags and
// encoding.TextMarshaler implementations shape the YAML document.
type YAMLSerializer struct {
	Indent int
}

func (s YAMLSerializer) Decode(input []byte, output any) error {
	var doc any
	if err := yaml.Unmarshal(input, &doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, output)
}

func (s YAMLSerializer) Encode(input any, output io.Writer) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	// Flow style is inherited from the JSON source; reset it for block output.
	clearStyle(&doc)

	enc := yaml.NewEncoder(output)
	if s.Indent > 0 {
		enc.SetIndent(s.Indent)
	}
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func clearStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle {
		n.Style = 0
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}
