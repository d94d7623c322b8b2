package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"minilisp/interpreter-go/pkg/driver"
)

// corpusCheckout describes a pinned working tree under the corpora cache.
type corpusCheckout struct {
	Version string
	Commit  string
	Dir     string
}

type gitFetcher struct {
	cacheDir string
}

func newGitFetcher(cacheDir string) *gitFetcher {
	if cacheDir == "" {
		return nil
	}
	return &gitFetcher{cacheDir: cacheDir}
}

func (g *gitFetcher) Fetch(name string, spec *driver.CorpusSpec) (*corpusCheckout, error) {
	if g == nil {
		return nil, errors.New("git fetcher unavailable")
	}
	if spec == nil || strings.TrimSpace(spec.Git) == "" {
		return nil, fmt.Errorf("corpus %q: git URL required", name)
	}
	baseDir := filepath.Join(g.cacheDir, sanitizePathSegment(name))
	version, commit, err := ensureGitCheckout(baseDir, spec)
	if err != nil {
		return nil, err
	}
	return &corpusCheckout{
		Version: version,
		Commit:  commit,
		Dir:     filepath.Join(baseDir, sanitizePathSegment(version)),
	}, nil
}

// mirrorDirName holds the bare clone that every pinned export of a corpus is
// read from. Later fetches update it instead of cloning again.
const mirrorDirName = ".mirror"

var mirrorRefSpecs = []config.RefSpec{
	"+refs/heads/*:refs/remotes/origin/*",
	"+refs/tags/*:refs/tags/*",
}

func ensureGitCheckout(baseDir string, spec *driver.CorpusSpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}
	if spec.Rev != "" {
		if _, err := os.Stat(filepath.Join(baseDir, sanitizePathSegment(spec.Rev))); err == nil {
			return spec.Rev, spec.Rev, nil
		}
	}

	url := strings.TrimSpace(spec.Git)
	repo, cloned, err := openMirror(filepath.Join(baseDir, mirrorDirName), url)
	if err != nil {
		return "", "", err
	}
	revision, descriptor := gitRevisionFromSpec(spec)
	if !cloned && !(spec.Rev != "" && hasCommit(repo, spec.Rev)) {
		if err := updateMirror(repo, url); err != nil {
			return "", "", err
		}
	}

	hash, err := resolveMirrorRevision(repo, revision)
	if err != nil {
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}
	commit := hash.String()
	version := gitPinnedVersion(descriptor, commit)
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		return version, commit, nil
	}
	if err := exportCommit(repo, *hash, baseDir, targetDir); err != nil {
		return "", "", err
	}
	return version, commit, nil
}

// openMirror opens the corpus mirror, cloning it when it is missing or was
// cloned from a different URL. cloned reports whether a fresh clone was made.
func openMirror(dir, url string) (*git.Repository, bool, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		remote, remoteErr := repo.Remote(git.DefaultRemoteName)
		if remoteErr == nil && len(remote.Config().URLs) > 0 && remote.Config().URLs[0] == url {
			return repo, false, nil
		}
	} else if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, false, fmt.Errorf("open mirror %s: %w", dir, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, false, err
	}
	repo, err = git.PlainClone(dir, true, &git.CloneOptions{URL: url, Tags: git.AllTags})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, false, fmt.Errorf("git clone %s: %w", url, err)
	}
	return repo, true, nil
}

func updateMirror(repo *git.Repository, url string) error {
	err := repo.Fetch(&git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   mirrorRefSpecs,
		Tags:       git.AllTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("git fetch %s: %w", url, err)
	}
	return nil
}

func hasCommit(repo *git.Repository, rev string) bool {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return false
	}
	_, err = repo.CommitObject(*hash)
	return err == nil
}

// resolveMirrorRevision reads HEAD through the remote-tracking ref, since a
// bare mirror's local branch stops moving after the first clone.
func resolveMirrorRevision(repo *git.Repository, revision plumbing.Revision) (*plumbing.Hash, error) {
	if revision == plumbing.Revision(plumbing.HEAD) {
		head, err := repo.Reference(plumbing.HEAD, false)
		if err == nil && head.Type() == plumbing.SymbolicReference {
			tracking := plumbing.NewRemoteReferenceName(git.DefaultRemoteName, head.Target().Short())
			if ref, err := repo.Reference(tracking, true); err == nil {
				hash := ref.Hash()
				return &hash, nil
			}
		}
	}
	return repo.ResolveRevision(revision)
}

// exportCommit writes the files of one commit into targetDir. The tree is
// staged in a temporary directory and renamed into place.
func exportCommit(repo *git.Repository, hash plumbing.Hash, baseDir, targetDir string) error {
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return fmt.Errorf("load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("load tree of %s: %w", hash, err)
	}
	tmpDir, err := os.MkdirTemp(baseDir, "export-*")
	if err != nil {
		return err
	}
	err = tree.Files().ForEach(func(f *object.File) error {
		path := filepath.Join(tmpDir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		contents, err := f.Contents()
		if err != nil {
			return err
		}
		perm := os.FileMode(0o644)
		if f.Mode == filemode.Executable {
			perm = 0o755
		}
		return os.WriteFile(path, []byte(contents), perm)
	})
	if err == nil {
		err = os.Chmod(tmpDir, 0o755)
	}
	if err == nil {
		err = os.Rename(tmpDir, targetDir)
	}
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("export %s: %w", hash, err)
	}
	return nil
}

func gitPinnedVersion(descriptor, commit string) string {
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

// gitRevisionFromSpec falls back to the remote's HEAD when nothing is pinned.
func gitRevisionFromSpec(spec *driver.CorpusSpec) (plumbing.Revision, string) {
	switch {
	case spec.Rev != "":
		return plumbing.Revision(spec.Rev), spec.Rev
	case spec.Tag != "":
		return plumbing.Revision("refs/tags/" + spec.Tag), spec.Tag
	case spec.Branch != "":
		return plumbing.Revision("refs/remotes/origin/" + spec.Branch), spec.Branch
	default:
		return plumbing.Revision("HEAD"), ""
	}
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
