package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the project file looked up by the CLI.
const ManifestFileName = "minilisp.yml"

// Manifest represents the parsed contents of minilisp.yml.
type Manifest struct {
	Path        string
	Name        string
	Targets     map[string]*TargetSpec
	TargetOrder []string
	Options     RunOptions
	Corpora     map[string]*CorpusSpec
}

// TargetSpec names an entry module and the modules evaluated before it.
type TargetSpec struct {
	Name  string
	Main  string
	Setup []string
}

// RunOptions are interpreter defaults; CLI flags override them.
type RunOptions struct {
	Memoize bool
	Trace   bool
}

// CorpusSpec describes a git repository of AST programs.
type CorpusSpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
}

// Version is the directory segment used when caching the corpus.
func (c *CorpusSpec) Version() string {
	switch {
	case c.Rev != "":
		return c.Rev
	case c.Tag != "":
		return c.Tag
	case c.Branch != "":
		return c.Branch
	default:
		return "HEAD"
	}
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var ErrNoTargets = errors.New("manifest: no targets defined")

// LoadManifest parses minilisp.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks upward from dir looking for minilisp.yml.
func FindManifest(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(current, ManifestFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("manifest: %s not found from %s", ManifestFileName, dir)
		}
		current = parent
	}
}

// Dir is the directory target paths are resolved against.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// DefaultTarget returns "main" when present, otherwise the first target in
// manifest order.
func (m *Manifest) DefaultTarget() (*TargetSpec, error) {
	if m == nil || len(m.TargetOrder) == 0 {
		return nil, ErrNoTargets
	}
	if target, ok := m.Targets["main"]; ok {
		return target, nil
	}
	return m.Targets[m.TargetOrder[0]], nil
}

// FindTarget looks up a target by name.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	if m == nil {
		return nil, false
	}
	target, ok := m.Targets[strings.TrimSpace(name)]
	return target, ok && target != nil
}

// CorpusNames returns corpus keys in sorted order.
func (m *Manifest) CorpusNames() []string {
	names := make([]string, 0, len(m.Corpora))
	for name := range m.Corpora {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-\.]*$`)

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	} else if !namePattern.MatchString(m.Name) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("name %q must be alphanumeric with - _ .", m.Name))
	}
	if len(m.TargetOrder) == 0 {
		errs.Issues = append(errs.Issues, "at least one target must be defined")
	}
	for _, name := range m.TargetOrder {
		target := m.Targets[name]
		if target.Main == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q requires a main module", name))
		} else if !isModuleFile(target.Main) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q main %q must be a .json, .yml or .yaml file", name, target.Main))
		}
		for idx, setup := range target.Setup {
			if !isModuleFile(setup) {
				errs.Issues = append(errs.Issues, fmt.Sprintf("targets.%s.setup[%d]: %q must be a .json, .yml or .yaml file", name, idx, setup))
			}
		}
	}
	for _, name := range m.CorpusNames() {
		corpus := m.Corpora[name]
		if !namePattern.MatchString(name) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("corpora.%s: invalid name", name))
		}
		if corpus.Git == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("corpora.%s: git must be provided", name))
		}
		pins := 0
		for _, pin := range []string{corpus.Rev, corpus.Tag, corpus.Branch} {
			if pin != "" {
				pins++
			}
		}
		if pins > 1 {
			errs.Issues = append(errs.Issues, fmt.Sprintf("corpora.%s: only one of rev, tag, branch may be set", name))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func isModuleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yml", ".yaml":
		return true
	default:
		return false
	}
}

type manifestFile struct {
	Name    string      `yaml:"name"`
	Targets targetMap   `yaml:"targets"`
	Options optionsYAML `yaml:"options"`
	Corpora corpusMap   `yaml:"corpora"`
}

type optionsYAML struct {
	Memoize *bool `yaml:"memoize"`
	Trace   bool  `yaml:"trace"`
}

type targetYAML struct {
	Main  string     `yaml:"main"`
	Setup stringList `yaml:"setup"`
}

type targetMap struct {
	items []targetMapEntry
}

type targetMapEntry struct {
	name string
	spec *targetYAML
}

func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		tm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: targets must be a mapping")
	}
	items := make([]targetMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: targets must not use empty keys")
		}
		entry := new(targetYAML)
		valueNode := value.Content[i+1]
		if valueNode.Kind == yaml.ScalarNode {
			// `name: path/to/main.json` shorthand.
			entry.Main = valueNode.Value
		} else if err := valueNode.Decode(entry); err != nil {
			return fmt.Errorf("manifest: target %q: %w", key, err)
		}
		items = append(items, targetMapEntry{name: key, spec: entry})
	}
	tm.items = items
	return nil
}

type corpusMap map[string]*CorpusSpec

func (cm *corpusMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		*cm = make(corpusMap)
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: corpora must be a mapping")
	}
	result := make(corpusMap, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: corpus names must be non-empty")
		}
		valNode := value.Content[i+1]
		var corpus CorpusSpec
		switch valNode.Kind {
		case yaml.ScalarNode:
			corpus.Git = valNode.Value
		case yaml.MappingNode:
			var raw struct {
				Git    string `yaml:"git"`
				Rev    string `yaml:"rev"`
				Tag    string `yaml:"tag"`
				Branch string `yaml:"branch"`
			}
			if err := valNode.Decode(&raw); err != nil {
				return fmt.Errorf("manifest: corpus %q: %w", key, err)
			}
			corpus = CorpusSpec{Git: raw.Git, Rev: raw.Rev, Tag: raw.Tag, Branch: raw.Branch}
		default:
			return fmt.Errorf("manifest: corpus %q must be a git url or mapping", key)
		}
		corpus.Git = strings.TrimSpace(corpus.Git)
		corpus.Rev = strings.TrimSpace(corpus.Rev)
		corpus.Tag = strings.TrimSpace(corpus.Tag)
		corpus.Branch = strings.TrimSpace(corpus.Branch)
		result[key] = &corpus
	}
	*cm = result
	return nil
}

type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			str = strings.TrimSpace(str)
			if str == "" {
				continue
			}
			items = append(items, str)
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (mf manifestFile) toManifest(path string) *Manifest {
	result := &Manifest{
		Path:        path,
		Name:        strings.TrimSpace(mf.Name),
		Targets:     make(map[string]*TargetSpec, len(mf.Targets.items)),
		TargetOrder: make([]string, 0, len(mf.Targets.items)),
		Options:     RunOptions{Memoize: true, Trace: mf.Options.Trace},
		Corpora:     map[string]*CorpusSpec(mf.Corpora),
	}
	if mf.Options.Memoize != nil {
		result.Options.Memoize = *mf.Options.Memoize
	}
	if result.Corpora == nil {
		result.Corpora = map[string]*CorpusSpec{}
	}
	for _, item := range mf.Targets.items {
		if item.spec == nil {
			continue
		}
		if _, exists := result.Targets[item.name]; exists {
			continue
		}
		setup := make([]string, 0, len(item.spec.Setup))
		setup = append(setup, item.spec.Setup...)
		result.Targets[item.name] = &TargetSpec{
			Name:  item.name,
			Main:  strings.TrimSpace(item.spec.Main),
			Setup: setup,
		}
		result.TargetOrder = append(result.TargetOrder, item.name)
	}
	return result
}
