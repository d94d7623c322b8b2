package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kr/pretty"

	"minilisp/interpreter-go/pkg/driver"
	"minilisp/interpreter-go/pkg/interpreter"
)

const cliToolVersion = "minilisp 0.1.0-dev"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "fetch":
		return runFetch(args[1:])
	default:
		return runEntry(args)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  minilisp run [--trace] [--dump] [--no-memo] [target|file]")
	fmt.Fprintln(w, "  minilisp fetch")
	fmt.Fprintln(w, "  minilisp version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Files end in .json, .yml or .yaml and hold a Module AST.")
	fmt.Fprintf(w, "Without a file, targets come from %s in the current directory or a parent.\n", driver.ManifestFileName)
}

type runFlags struct {
	trace  bool
	dump   bool
	noMemo bool
	entry  string
}

func parseRunFlags(args []string) (runFlags, error) {
	var flags runFlags
	for _, arg := range args {
		switch arg {
		case "--trace":
			flags.trace = true
		case "--dump":
			flags.dump = true
		case "--no-memo":
			flags.noMemo = true
		default:
			if strings.HasPrefix(arg, "-") {
				return flags, fmt.Errorf("unknown flag %s", arg)
			}
			if flags.entry != "" {
				return flags, fmt.Errorf("unexpected arguments: %s", arg)
			}
			flags.entry = arg
		}
	}
	return flags, nil
}

func runEntry(args []string) int {
	flags, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	program, err := loadProgram(flags.entry)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	opts := interpreter.OptionsFor(program)
	opts.Stdout = stdout
	if flags.noMemo {
		opts.DisableMemo = true
	}
	if flags.trace || program.Options.Trace {
		opts.Trace = log.New(stderr, "trace: ", 0)
	}
	interp := interpreter.NewWithOptions(opts)

	_, _, evalErr := interp.EvaluateProgram(program)
	if flags.dump {
		pretty.Fprintf(stderr, "%# v\n", interp.Snapshot())
	}
	if evalErr != nil {
		fmt.Fprintf(stderr, "error: %v\n", evalErr)
		return 1
	}
	return 0
}

// loadProgram picks the module file named by entry, a manifest target named by
// entry, or the manifest's default target when entry is empty.
func loadProgram(entry string) (*driver.Program, error) {
	loader := driver.NewLoader()
	if entry != "" && looksLikeModuleFile(entry) {
		return loader.LoadFile(entry)
	}

	manifest, err := loadManifestFrom(".")
	if err != nil {
		if entry == "" {
			return nil, fmt.Errorf("minilisp run requires a target or module file: %w", err)
		}
		return nil, err
	}
	return loader.LoadTarget(manifest, entry)
}

func looksLikeModuleFile(arg string) bool {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json", ".yml", ".yaml":
		return filepath.Base(arg) != driver.ManifestFileName
	}
	return strings.ContainsAny(arg, `/\`)
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	manifestPath, err := driver.FindManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func runFetch(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(stderr, "error: minilisp fetch does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}
	manifest, err := loadManifestFrom(".")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	home, err := resolveMinilispHome()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if len(manifest.Corpora) == 0 {
		fmt.Fprintln(stdout, "no corpora to fetch")
		return 0
	}

	fetcher := newGitFetcher(filepath.Join(home, "corpora"))
	failed := false
	for _, name := range manifest.CorpusNames() {
		checkout, err := fetcher.Fetch(name, manifest.Corpora[name])
		if err != nil {
			fmt.Fprintf(stderr, "error: corpus %s: %v\n", name, err)
			failed = true
			continue
		}
		fmt.Fprintf(stdout, "%s %s -> %s\n", name, checkout.Version, checkout.Dir)
	}
	if failed {
		return 1
	}
	return 0
}

var errHomeUnset = errors.New("cannot determine home directory")

func resolveMinilispHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("MINILISP_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve MINILISP_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil || userHome == "" {
		return "", fmt.Errorf("%w: %v", errHomeUnset, err)
	}
	return filepath.Join(userHome, ".minilisp"), nil
}
