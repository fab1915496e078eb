// Package archive provides read-only stores over ISO 9660 and ZIP images.
//
// Images are parsed from memory. The directory structure is indexed when the
// store is opened; file content is decompressed or copied out on each read.
package archive

import (
	"errors"
	"path"
	"strings"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
)

// Format identifies an archive container
type Format string

const (
	FormatISO Format = "iso"
	FormatZIP Format = "zip"
)

// ErrUnreadable is returned when an image cannot be parsed
var ErrUnreadable = errors.New("archive: unreadable image")

// Store is a read-only archive store
type Store interface {
	storage.Store
	Format() Format
}

// FormatFor picks the container format from the image path. ".iso" in any
// case selects ISO 9660; everything else is treated as ZIP.
func FormatFor(imagePath string) Format {
	if strings.EqualFold(path.Ext(imagePath), ".iso") {
		return FormatISO
	}
	return FormatZIP
}

// Open parses image according to format
func Open(format Format, image []byte) (Store, error) {
	if format == FormatISO {
		return OpenISO(image)
	}
	return OpenZIP(image)
}
