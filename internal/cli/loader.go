package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/deps"
	"github.com/roach88/jamc/internal/ir"
)

// ManifestFile is the manifest looked up next to the tree when --manifest is
// not given.
const ManifestFile = "jamc.yaml"

// Manifest is the project configuration read from jamc.yaml.
type Manifest struct {
	YieldPoint bool        `yaml:"yield_point"`
	Exports    []ir.Export `yaml:"exports"`
	Install    Install     `yaml:"install"`
}

// Install configures the dependency resolver used for require calls.
type Install struct {
	Enabled bool     `yaml:"enabled"`
	Dir     string   `yaml:"dir"`     // holds node_modules; relative to the manifest
	Command []string `yaml:"command"` // default: npm install
}

// LoadError represents an error that occurred while loading the inputs of a
// command.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadTree reads the syntax tree at path. A file that exists but does not
// decode into a tree is returned as a Grammar CompileError; a missing or
// unreadable file is a LoadError.
func LoadTree(path string) (ast.Node, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("tree file not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing tree file: %v", err), Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}
	if _, err := ast.FormatOf(path); err != nil {
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: err.Error(), Err: err}
	}

	tree, err := ast.LoadFile(path)
	if err != nil {
		return nil, compiler.TreeError(err)
	}
	return tree, nil
}

// LoadManifest reads a manifest. Unknown fields are rejected. When path is
// empty, jamc.yaml in dir is used if present and an empty manifest otherwise.
func LoadManifest(path, dir string) (*Manifest, string, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, ManifestFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &Manifest{}, "", nil
		}
		return nil, "", &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("reading manifest: %v", err), Err: err}
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, "", &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("parsing manifest %s: %v", path, err), Err: err}
	}
	if err := m.validate(); err != nil {
		return nil, "", &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("invalid manifest %s: %v", path, err), Err: err}
	}
	return &m, path, nil
}

func (m *Manifest) validate() error {
	for i, e := range m.Exports {
		if e.Function == "" {
			return fmt.Errorf("exports[%d]: function is required", i)
		}
		switch e.Side {
		case ir.SideLocal, ir.SideRemote:
		case "":
			m.Exports[i].Side = ir.SideLocal
		default:
			return fmt.Errorf("exports[%d]: side must be %q or %q", i, ir.SideLocal, ir.SideRemote)
		}
		if e.Level == "" {
			m.Exports[i].Level = ir.NoLevel
		}
	}
	return nil
}

// Resolver builds the dependency resolver the manifest asks for. Relative
// install directories are resolved against base.
func (m *Manifest) Resolver(base string, logger *slog.Logger) deps.Resolver {
	if !m.Install.Enabled {
		return deps.Disabled{}
	}
	dir := m.Install.Dir
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	return &deps.NPM{
		Dir:     dir,
		Command: m.Install.Command,
		Runner:  deps.ExecRunner{Stderr: os.Stderr},
		Logger:  logger,
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeNotFound          = "E005" // Path not found
	ErrCodeWriteFailed       = "E007" // File write error
	ErrCodeUnsupportedFormat = "E008" // Tree file extension not recognised
	ErrCodeManifest          = "E009" // Manifest unreadable or invalid
	ErrCodeStore             = "E010" // Compilation history unavailable

	// Compile errors, one per kind
	ErrCodeGrammar      = "E101"
	ErrCodeUndefined    = "E102"
	ErrCodeIllegal      = "E103"
	ErrCodeExport       = "E104"
	ErrCodeAggregation  = "E105"
	ErrCodeDependency   = "E106"
	ErrCodeRunNotFound  = "E111"
	ErrCodeTestsFailing = "E_TEST_FAILED"
)

// MapKindToErrorCode maps a compile error kind to an error code.
func MapKindToErrorCode(kind compiler.Kind) string {
	switch kind {
	case compiler.KindGrammar:
		return ErrCodeGrammar
	case compiler.KindUndefinedSymbol:
		return ErrCodeUndefined
	case compiler.KindIllegalOperation:
		return ErrCodeIllegal
	case compiler.KindExportValidation:
		return ErrCodeExport
	case compiler.KindUnsupportedAggregation:
		return ErrCodeAggregation
	case compiler.KindDependencyResolution:
		return ErrCodeDependency
	default:
		return ErrCodeGeneric
	}
}
