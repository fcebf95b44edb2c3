package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format identifies the serialization of a syntax tree.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the tree format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("unsupported tree file extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path))
}

// LoadFile reads and unpacks the syntax tree stored at path.
func LoadFile(path string) (Node, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	return Load(data, format, path)
}

// Load decodes data in the given format and unpacks it into a tree. The
// filename is only used in CUE error positions.
func Load(data []byte, format Format, filename string) (Node, error) {
	v, err := decode(data, format, filename)
	if err != nil {
		return nil, err
	}
	return Unpack(v)
}

func decode(data []byte, format Format, filename string) (any, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding YAML tree: %w", err)
		}
		return v, nil
	case FormatCUE:
		ctx := cuecontext.New()
		val := ctx.CompileBytes(data, cue.Filename(filename))
		if err := val.Err(); err != nil {
			return nil, fmt.Errorf("compiling CUE tree: %w", err)
		}
		if err := val.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("CUE tree is not concrete: %w", err)
		}
		// Round-trip through JSON so CUE numbers land as json.Number.
		buf, err := val.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("exporting CUE tree: %w", err)
		}
		return decodeJSON(buf)
	}
	return nil, fmt.Errorf("unknown tree format %q", format)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON tree: %w", err)
	}
	return v, nil
}
