package fshello

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

var (
	ErrEmptyRoot  = errors.New("root directory cannot be empty")
	ErrRootNotDir = errors.New("root is not a directory")
)

// NewRootFs returns a read-only view of the local directory root.
// Lookups outside root report fs.ErrNotExist.
func NewRootFs(root string) (afero.Fs, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	osfs := afero.NewOsFs()
	info, err := osfs.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, abs)
	}
	return afero.NewReadOnlyFs(afero.NewBasePathFs(osfs, abs)), nil
}
