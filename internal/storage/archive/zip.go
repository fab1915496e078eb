package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

// ZIP is a read-only store over a ZIP image
type ZIP struct {
	storage.ReadOnly
	*storage.Tree
}

// OpenZIP indexes a ZIP image
func OpenZIP(image []byte) (*ZIP, error) {
	reader, err := zip.NewReader(bytes.NewReader(image), int64(len(image)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	tree := storage.NewTree()
	for _, file := range reader.File {
		// Clean anchors every name at the root, so "../" entries cannot escape
		treePath := paths.Clean(strings.TrimSuffix(file.Name, "/"))
		if treePath == paths.Root {
			continue
		}

		if file.FileInfo().IsDir() {
			tree.AddDir(treePath, file.Modified)
			continue
		}
		tree.AddFile(treePath, int64(file.UncompressedSize64), file.Modified, file)
	}

	return &ZIP{Tree: tree}, nil
}

func (z *ZIP) Format() Format {
	return FormatZIP
}

func (z *ZIP) ReadFile(ctx context.Context, path string) ([]byte, error) {
	source, err := z.Source(path)
	if err != nil {
		return nil, err
	}

	rc, err := source.(*zip.File).Open()
	if err != nil {
		return nil, &storage.OpError{Op: "read", Path: path, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &storage.OpError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
