package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kdomanski/iso9660"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

// ISO is a read-only store over an ISO 9660 image
type ISO struct {
	storage.ReadOnly
	*storage.Tree
}

// OpenISO indexes an ISO 9660 image
func OpenISO(image []byte) (*ISO, error) {
	img, err := iso9660.OpenImage(bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	root, err := img.RootDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	tree := storage.NewTree()
	if err := indexISO(tree, paths.Root, root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return &ISO{Tree: tree}, nil
}

func indexISO(tree *storage.Tree, dir string, node *iso9660.File) error {
	children, err := node.GetChildren()
	if err != nil {
		return err
	}

	for _, child := range children {
		name := isoName(child)
		if name == "\x00" || name == "\x01" || paths.ValidateName(name) != nil {
			continue
		}
		p := paths.Join(dir, name)

		if child.IsDir() {
			tree.AddDir(p, child.ModTime())
			if err := indexISO(tree, p, child); err != nil {
				return err
			}
			continue
		}
		tree.AddFile(p, child.Size(), child.ModTime(), child)
	}
	return nil
}

// isoName strips the ";1" version suffix and the trailing dot plain ISO
// 9660 identifiers carry when Rock Ridge names are absent.
func isoName(f *iso9660.File) string {
	name := f.Name()
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	if !f.IsDir() {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

func (i *ISO) Format() Format {
	return FormatISO
}

func (i *ISO) ReadFile(ctx context.Context, path string) ([]byte, error) {
	source, err := i.Source(path)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(source.(*iso9660.File).Reader())
	if err != nil {
		return nil, &storage.OpError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
