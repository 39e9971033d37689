package driver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPathDependency(t *testing.T) {
	depDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(depDir, "package.yml"),
		[]byte("name: shapes\nversion: \"0.3.1\"\n"), 0o644))

	appDir := t.TempDir()
	fetcher := NewFetcher(t.TempDir(), appDir)
	dep, err := fetcher.Fetch("shapes", &DependencySpec{Path: depDir})
	require.NoError(t, err)

	assert.Equal(t, "shapes", dep.Name)
	assert.Equal(t, "0.3.1", dep.Version)
	assert.Equal(t, depDir, dep.Dir)
	assert.Equal(t, "path:"+depDir, dep.Source)
}

func TestFetchRelativePathDependency(t *testing.T) {
	base := t.TempDir()
	depDir := filepath.Join(base, "util")
	require.NoError(t, os.MkdirAll(depDir, 0o755))

	fetcher := NewFetcher(t.TempDir(), base)
	dep, err := fetcher.Fetch("util", &DependencySpec{Path: "util"})
	require.NoError(t, err)
	assert.Equal(t, depDir, dep.Dir)
	// No manifest in the dependency tree; version falls back.
	assert.Equal(t, "0.0.0-dev", dep.Version)
}

func TestFetchPathDependencyMissing(t *testing.T) {
	fetcher := NewFetcher(t.TempDir(), t.TempDir())
	_, err := fetcher.Fetch("ghost", &DependencySpec{Path: "no/such/dir"})
	require.Error(t, err)
}

func TestFetchGitDependencyFromLocalRepo(t *testing.T) {
	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "lib.oath"), []byte("fn id(x) { x }\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("lib.oath")
	require.NoError(t, err)
	commit, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	cacheDir := t.TempDir()
	fetcher := NewFetcher(cacheDir, t.TempDir())
	dep, err := fetcher.Fetch("shape-lib", &DependencySpec{Git: repoDir, Rev: commit.String()})
	require.NoError(t, err)

	assert.Equal(t, "shape_lib", dep.Name)
	assert.Equal(t, commit.String(), dep.Version)
	assert.Contains(t, dep.Source, "git+"+repoDir)
	assert.NotEmpty(t, dep.Checksum)
	_, statErr := os.Stat(filepath.Join(dep.Dir, "lib.oath"))
	assert.NoError(t, statErr)

	// A second fetch for the same rev reuses the cached checkout.
	again, err := fetcher.Fetch("shape-lib", &DependencySpec{Git: repoDir, Rev: commit.String()})
	require.NoError(t, err)
	assert.Equal(t, dep.Dir, again.Dir)
}

func TestFetchGitRequiresPin(t *testing.T) {
	fetcher := NewFetcher(t.TempDir(), t.TempDir())
	_, err := fetcher.Fetch("lib", &DependencySpec{Git: "https://example.com/lib.git"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rev, tag, or branch")
}

func TestFetchRejectsRegistryDescriptors(t *testing.T) {
	fetcher := NewFetcher(t.TempDir(), t.TempDir())
	_, err := fetcher.Fetch("lib", &DependencySpec{Version: "1.0"})
	require.Error(t, err)
}

func TestGitPinnedVersion(t *testing.T) {
	assert.Equal(t, "abc123", gitPinnedVersion("", "abc123"))
	assert.Equal(t, "abc123", gitPinnedVersion("abc123", "abc123"))
	assert.Equal(t, "v1.0.0@abc123", gitPinnedVersion("v1.0.0", "abc123"))
	assert.Equal(t, "v1.0.0", gitPinnedVersion("v1.0.0", ""))
}

func TestSanitizePathSegment(t *testing.T) {
	assert.Equal(t, "v1.0.0", sanitizePathSegment("v1.0.0"))
	assert.Equal(t, "feature_x_y", sanitizePathSegment("feature/x y"))
	assert.Equal(t, "head", sanitizePathSegment(""))
}
