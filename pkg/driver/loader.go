package driver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"minilisp/interpreter-go/pkg/ast"
)

// Module is a decoded AST document together with where it came from.
type Module struct {
	Path string
	AST  *ast.Module
}

// Program is everything needed for one run: setup modules evaluated in order,
// then the entry module, all against a single interpreter.
type Program struct {
	Name    string
	Setup   []*Module
	Entry   *Module
	Options RunOptions
}

// Modules returns setup modules followed by the entry.
func (p *Program) Modules() []*Module {
	out := make([]*Module, 0, len(p.Setup)+1)
	out = append(out, p.Setup...)
	if p.Entry != nil {
		out = append(out, p.Entry)
	}
	return out
}

// Loader reads AST documents and caches them by absolute path, so a module
// listed under several targets is decoded once.
type Loader struct {
	cache map[string]*Module
}

func NewLoader() *Loader {
	return &Loader{cache: make(map[string]*Module)}
}

// LoadModule reads a .json, .yml or .yaml AST document.
func (l *Loader) LoadModule(path string) (*Module, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve %s: %w", path, err)
	}
	if mod, ok := l.cache[absPath]; ok {
		return mod, nil
	}
	mod, err := LoadModule(absPath)
	if err != nil {
		return nil, err
	}
	l.cache[absPath] = mod
	return mod, nil
}

// LoadModule reads a single module without caching.
func LoadModule(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	var mod *ast.Module
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		mod, err = ast.DecodeModule(data)
	case ".yml", ".yaml":
		mod, err = decodeYAMLModule(data)
	default:
		return nil, fmt.Errorf("loader: %s: unsupported module extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return &Module{Path: path, AST: mod}, nil
}

func decodeYAMLModule(data []byte) (*ast.Module, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, fmt.Errorf("decode module yaml: %w", err)
	}
	return ast.ModuleFromDocument(raw)
}

// LoadFile builds a single-module program using default options.
func (l *Loader) LoadFile(path string) (*Program, error) {
	entry, err := l.LoadModule(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Program{Name: name, Entry: entry, Options: RunOptions{Memoize: true}}, nil
}

// LoadTarget resolves a manifest target into a program. An empty name selects
// the default target.
func (l *Loader) LoadTarget(manifest *Manifest, name string) (*Program, error) {
	if manifest == nil {
		return nil, fmt.Errorf("loader: manifest is nil")
	}
	var target *TargetSpec
	if name == "" {
		var err error
		if target, err = manifest.DefaultTarget(); err != nil {
			return nil, err
		}
	} else {
		var ok bool
		if target, ok = manifest.FindTarget(name); !ok {
			return nil, fmt.Errorf("loader: manifest %s has no target %q", manifest.Path, name)
		}
	}
	program := &Program{Name: target.Name, Options: manifest.Options}
	for _, setup := range target.Setup {
		mod, err := l.LoadModule(resolvePath(manifest.Dir(), setup))
		if err != nil {
			return nil, err
		}
		program.Setup = append(program.Setup, mod)
	}
	entry, err := l.LoadModule(resolvePath(manifest.Dir(), target.Main))
	if err != nil {
		return nil, err
	}
	program.Entry = entry
	return program, nil
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, filepath.FromSlash(path))
}
