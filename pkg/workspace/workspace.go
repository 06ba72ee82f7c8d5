// Package workspace manages isolated scratch directories for live skill
// evaluations. A workspace is seeded with an OpenAPI spec and optional
// configuration, its initial state is snapshotted by content hash, and after
// the evaluated tool has run the harness can ask which files were created or
// changed.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Workspace is an isolated directory seeded for one evaluation.
type Workspace struct {
	baseDir string
	initial map[string]string // relative path -> content hash
}

// New creates a workspace rooted at a fresh temp directory.
func New() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "skilleval-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create workspace directory")
	}
	return &Workspace{baseDir: dir}, nil
}

// NewAt creates a workspace rooted at an existing directory.
func NewAt(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create workspace directory %s", dir)
	}
	return &Workspace{baseDir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.baseDir }

// SpecPath is the conventional location of the OpenAPI spec.
func (w *Workspace) SpecPath() string { return filepath.Join(w.baseDir, "openapi.yaml") }

// WorkflowPath is the speakeasy workflow configuration location.
func (w *Workspace) WorkflowPath() string {
	return filepath.Join(w.baseDir, ".speakeasy", "workflow.yaml")
}

// GenYAMLPath is the generation configuration location.
func (w *Workspace) GenYAMLPath() string { return filepath.Join(w.baseDir, "gen.yaml") }

// OverlayDir is where overlay documents are placed.
func (w *Workspace) OverlayDir() string { return filepath.Join(w.baseDir, "overlays") }

// SDKOutputDir is the conventional SDK output location.
func (w *Workspace) SDKOutputDir() string { return filepath.Join(w.baseDir, "sdk") }

// Setup seeds the workspace with the spec and optional configuration, then
// snapshots the initial state for later diffing.
func (w *Workspace) Setup(spec, genYAML string, overlays map[string]string) error {
	if err := os.WriteFile(w.SpecPath(), []byte(spec), 0o644); err != nil {
		return errors.Wrap(err, "failed to write spec")
	}

	if genYAML != "" {
		if err := os.WriteFile(w.GenYAMLPath(), []byte(genYAML), 0o644); err != nil {
			return errors.Wrap(err, "failed to write gen.yaml")
		}
	}

	if len(overlays) > 0 {
		if err := os.MkdirAll(w.OverlayDir(), 0o755); err != nil {
			return errors.Wrap(err, "failed to create overlay directory")
		}
		for name, content := range overlays {
			if err := os.WriteFile(filepath.Join(w.OverlayDir(), name), []byte(content), 0o644); err != nil {
				return errors.Wrapf(err, "failed to write overlay %s", name)
			}
		}
	}

	snapshot, err := w.snapshot()
	if err != nil {
		return err
	}
	w.initial = snapshot
	return nil
}

// snapshot hashes every regular file in the workspace, keyed by path
// relative to the workspace root.
func (w *Workspace) snapshot() (map[string]string, error) {
	state := make(map[string]string)
	err := filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(w.baseDir, path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		state[filepath.ToSlash(rel)] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot workspace")
	}
	return state, nil
}

// CreatedFiles returns files present now but absent from the initial
// snapshot, sorted.
func (w *Workspace) CreatedFiles() ([]string, error) {
	current, err := w.snapshot()
	if err != nil {
		return nil, err
	}

	var created []string
	for path := range current {
		if _, ok := w.initial[path]; !ok {
			created = append(created, path)
		}
	}
	sort.Strings(created)
	return created, nil
}

// ChangedFiles returns files whose content differs from the initial
// snapshot, sorted. Created files are not included.
func (w *Workspace) ChangedFiles() ([]string, error) {
	current, err := w.snapshot()
	if err != nil {
		return nil, err
	}

	var changed []string
	for path, hash := range current {
		if orig, ok := w.initial[path]; ok && orig != hash {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// Cleanup removes the workspace directory.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.baseDir)
}
