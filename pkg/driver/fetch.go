package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// FetchedDependency records where one dependency's sources ended up.
type FetchedDependency struct {
	Name     string
	Version  string
	Dir      string
	Source   string // "git+<url>@<commit>" or "path:<dir>"
	Checksum string
}

// Fetcher materialises manifest dependencies on disk. Git dependencies are
// cloned into <cacheDir>/pkg/src/<name>/<version>; path dependencies are
// used where they live.
type Fetcher struct {
	cacheDir     string
	manifestRoot string
}

func NewFetcher(cacheDir, manifestRoot string) *Fetcher {
	return &Fetcher{cacheDir: cacheDir, manifestRoot: manifestRoot}
}

// FetchAll resolves every dependency of the manifest in name order.
func (f *Fetcher) FetchAll(manifest *Manifest) ([]*FetchedDependency, error) {
	if manifest == nil {
		return nil, nil
	}
	names := make([]string, 0, len(manifest.Dependencies))
	for name := range manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*FetchedDependency, 0, len(names))
	for _, name := range names {
		dep, err := f.Fetch(name, manifest.Dependencies[name])
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

// Fetch resolves a single dependency descriptor.
func (f *Fetcher) Fetch(name string, spec *DependencySpec) (*FetchedDependency, error) {
	if spec == nil {
		return nil, fmt.Errorf("dependency %q has no descriptor", name)
	}
	switch {
	case spec.Path != "":
		return f.fetchPath(name, spec)
	case spec.Git != "":
		return f.fetchGit(name, spec)
	default:
		return nil, fmt.Errorf("dependency %q: registry sources are not supported yet; use git or path", name)
	}
}

func (f *Fetcher) fetchPath(name string, spec *DependencySpec) (*FetchedDependency, error) {
	dir := spec.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(f.manifestRoot, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: resolve path %q: %w", name, spec.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: stat %s: %w", name, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: expected directory at %s", name, abs)
	}

	version := "0.0.0-dev"
	manifestPath := filepath.Join(abs, "package.yml")
	if _, err := os.Stat(manifestPath); err == nil {
		depManifest, err := LoadManifest(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: load manifest %s: %w", name, manifestPath, err)
		}
		if depManifest.Version != "" {
			version = depManifest.Version
		}
	}

	return &FetchedDependency{
		Name:    sanitizeSegment(name),
		Version: version,
		Dir:     abs,
		Source:  "path:" + abs,
	}, nil
}

func (f *Fetcher) fetchGit(name string, spec *DependencySpec) (*FetchedDependency, error) {
	if f.cacheDir == "" {
		return nil, fmt.Errorf("dependency %q: no cache directory configured", name)
	}
	baseDir := filepath.Join(f.cacheDir, "pkg", "src", sanitizeSegment(name))
	version, commit, err := ensureGitCheckout(baseDir, spec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}

	checkoutDir := filepath.Join(baseDir, sanitizePathSegment(version))
	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: checksum %s: %w", name, checkoutDir, err)
	}

	return &FetchedDependency{
		Name:     sanitizeSegment(name),
		Version:  version,
		Dir:      checkoutDir,
		Source:   fmt.Sprintf("git+%s@%s", spec.Git, commit),
		Checksum: checksum,
	}, nil
}

// ensureGitCheckout clones the repository into a temp directory, resolves
// the pinned revision, checks it out, and moves the tree into its cache
// slot. An existing checkout for an explicit rev is reused without network
// access.
func ensureGitCheckout(baseDir string, spec *DependencySpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}

	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		existing := filepath.Join(baseDir, sanitizePathSegment(rev))
		if _, err := os.Stat(existing); err == nil {
			return rev, rev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL:               spec.Git,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func gitRevisionFromSpec(spec *DependencySpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git dependencies require rev, tag, or branch")
}

func gitPinnedVersion(descriptor, commit string) string {
	descriptor = strings.TrimSpace(descriptor)
	commit = strings.TrimSpace(commit)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return descriptor + "@" + commit
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
	if b.Len() == 0 {
		return "head"
	}
	return b.String()
}

func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.Base(p)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
