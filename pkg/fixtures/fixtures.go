// Package fixtures loads OpenAPI specs and supporting files for live
// evaluation scenarios. Fixtures come either from local files next to the
// suite definitions or from pinned git sources, which are cloned once into a
// per-user cache and reused across runs.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skillkit/skilleval/pkg/logger"
)

// Source pins a fixture to a git repository at a specific commit.
type Source struct {
	Repository string    `yaml:"repository"`
	Commit     string    `yaml:"commit"`
	SpecPath   string    `yaml:"spec_path"`
	Issue      *IssueRef `yaml:"issue"`
}

// IssueRef names a GitHub issue to include as fixture context.
type IssueRef struct {
	Repo   string `yaml:"repo"`
	Number int    `yaml:"number"`
}

// Fixture is the loaded input for one live scenario.
type Fixture struct {
	Spec  string
	Files map[string]string // relative path -> content
}

// Loader resolves fixtures relative to a fixtures directory, caching git
// clones under the user cache directory.
type Loader struct {
	fixturesDir string
	cacheDir    string
	httpClient  *http.Client
}

// Option configures a Loader.
type Option func(*Loader)

// WithCacheDir overrides the clone cache location.
func WithCacheDir(dir string) Option {
	return func(l *Loader) { l.cacheDir = dir }
}

// NewLoader creates a Loader rooted at fixturesDir.
func NewLoader(fixturesDir string, opts ...Option) (*Loader, error) {
	l := &Loader{
		fixturesDir: fixturesDir,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve user cache directory")
		}
		l.cacheDir = filepath.Join(base, "skilleval", "repos")
	}
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory %s", l.cacheDir)
	}
	return l, nil
}

// LoadFile loads a fixture from a local spec file, along with any sibling
// files in the same directory.
func (l *Loader) LoadFile(specFile string) (*Fixture, error) {
	specPath := filepath.Join(l.fixturesDir, specFile)
	spec, err := os.ReadFile(specPath)
	if err != nil {
		return nil, errors.Wrapf(err, "spec file not found: %s", specFile)
	}

	fixture := &Fixture{Spec: string(spec), Files: make(map[string]string)}

	siblings, err := os.ReadDir(filepath.Dir(specPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read fixture directory")
	}
	for _, entry := range siblings {
		if entry.IsDir() || entry.Name() == filepath.Base(specPath) {
			continue
		}
		path := filepath.Join(filepath.Dir(specPath), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(l.fixturesDir, path)
		if err != nil {
			continue
		}
		fixture.Files[filepath.ToSlash(rel)] = string(data)
	}
	return fixture, nil
}

// LoadGit loads a fixture from a pinned git source. fixtureDir, when
// non-empty, names a local directory of additional files to include.
func (l *Loader) LoadGit(ctx context.Context, src Source, fixtureDir string) (*Fixture, error) {
	if src.Repository == "" || src.Commit == "" {
		return nil, errors.New("git source missing repository or commit")
	}
	specPath := src.SpecPath
	if specPath == "" {
		specPath = "openapi.yaml"
	}

	repoDir, err := l.ensureRepoCloned(ctx, src.Repository, src.Commit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to clone fixture repo")
	}

	spec, err := os.ReadFile(filepath.Join(repoDir, specPath))
	if err != nil {
		return nil, errors.Wrapf(err, "spec not found in repo: %s", specPath)
	}

	fixture := &Fixture{Spec: string(spec), Files: make(map[string]string)}

	if fixtureDir != "" {
		dir := filepath.Join(l.fixturesDir, fixtureDir)
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
				if err != nil {
					continue
				}
				fixture.Files[fixtureDir+"/"+entry.Name()] = string(data)
			}
		}
	}

	if src.Issue != nil {
		if issue := l.fetchGitHubIssue(ctx, src.Issue.Repo, src.Issue.Number); issue != "" {
			issueDir := fixtureDir
			if issueDir == "" {
				issueDir = "fixtures"
			}
			fixture.Files[issueDir+"/issue.md"] = issue
		}
	}
	return fixture, nil
}

// ensureRepoCloned clones the repo at the pinned commit into the cache, or
// reuses an existing clone already at that commit.
func (l *Loader) ensureRepoCloned(ctx context.Context, repoURL, commit string) (string, error) {
	repoDir := filepath.Join(l.cacheDir, cloneDirName(repoURL, commit))

	if _, err := os.Stat(repoDir); err == nil {
		out, err := gitOutput(ctx, repoDir, "rev-parse", "HEAD")
		if err == nil && strings.HasPrefix(out, shortCommit(commit)) {
			return repoDir, nil
		}
		// wrong commit or corrupted clone
		if err := os.RemoveAll(repoDir); err != nil {
			return "", errors.Wrap(err, "failed to remove stale clone")
		}
	}

	logger.G(ctx).WithField("repo", repoURL).WithField("commit", commit).Debug("cloning fixture repo")

	if _, err := gitOutput(ctx, "", "clone", "--depth", "1", repoURL, repoDir); err != nil {
		return "", err
	}
	if _, err := gitOutput(ctx, repoDir, "fetch", "--depth", "1", "origin", commit); err != nil {
		return "", err
	}
	if _, err := gitOutput(ctx, repoDir, "checkout", commit); err != nil {
		return "", err
	}
	return repoDir, nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func cloneDirName(repoURL, commit string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	name := parts[len(parts)-1]
	owner := "repo"
	if len(parts) >= 2 {
		owner = parts[len(parts)-2]
	}
	return owner + "-" + name + "-" + shortCommit(commit)
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

// fetchGitHubIssue renders a GitHub issue as markdown fixture content. The
// gh CLI is preferred for its ambient auth; the unauthenticated API is the
// fallback. Failures are non-fatal since issue context is supplementary.
func (l *Loader) fetchGitHubIssue(ctx context.Context, repo string, number int) string {
	if repo == "" || number == 0 {
		return ""
	}

	endpoint := fmt.Sprintf("repos/%s/issues/%d", repo, number)
	if out, err := exec.CommandContext(ctx, "gh", "api", endpoint).Output(); err == nil {
		if issue := formatIssueMarkdown(out); issue != "" {
			return issue
		}
	}

	url := "https://api.github.com/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return formatIssueMarkdown(body)
}

func formatIssueMarkdown(data []byte) string {
	var issue struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		State     string `json:"state"`
		HTMLURL   string `json:"html_url"`
		CreatedAt string `json:"created_at"`
		User      struct {
			Login string `json:"login"`
		} `json:"user"`
		RepositoryURL string `json:"repository_url"`
	}
	if err := json.Unmarshal(data, &issue); err != nil || issue.Title == "" {
		return ""
	}

	created := issue.CreatedAt
	if len(created) > 10 {
		created = created[:10]
	}
	repo := strings.TrimPrefix(issue.RepositoryURL, "https://api.github.com/repos/")

	var b strings.Builder
	b.WriteString("# GitHub Issue: " + issue.Title + "\n\n")
	b.WriteString("**Repository:** " + repo + "\n")
	b.WriteString("**Author:** " + issue.User.Login + "\n")
	b.WriteString("**Created:** " + created + "\n")
	b.WriteString("**State:** " + issue.State + "\n")
	b.WriteString("**URL:** " + issue.HTMLURL + "\n\n---\n\n")
	b.WriteString(issue.Body + "\n")
	return b.String()
}

// ClearCache removes all cached clones.
func (l *Loader) ClearCache() error {
	if err := os.RemoveAll(l.cacheDir); err != nil {
		return errors.Wrap(err, "failed to clear fixture cache")
	}
	return os.MkdirAll(l.cacheDir, 0o755)
}
