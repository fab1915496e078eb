package paths

import (
	"fmt"
	"path"
	"strings"
)

// Root is the top of the virtual tree.
const Root = "/"

// Standard desktop directories
const (
	System    = "/System"
	Users     = "/Users"
	Home      = "/Users/Public"
	Desktop   = "/Users/Public/Desktop"
	Documents = "/Users/Public/Documents"
	Pictures  = "/Users/Public/Pictures"
	Temp      = "/Users/Public/Temp"
)

// StandardDirectories returns the directories a fresh tree is seeded with
func StandardDirectories() []string {
	return []string{
		System,
		Home,
		Desktop,
		Documents,
		Pictures,
		Temp,
	}
}

// Clean returns the canonical absolute form of p.
// Relative input is anchored at the root.
func Clean(p string) string {
	if p == "" {
		return Root
	}
	return path.Clean("/" + p)
}

// IsAbs reports whether p is an absolute tree path
func IsAbs(p string) bool {
	return strings.HasPrefix(p, "/")
}

// Dir returns the parent directory of p. The parent of the root is the root.
func Dir(p string) string {
	return path.Dir(Clean(p))
}

// Base returns the last element of p
func Base(p string) string {
	return path.Base(Clean(p))
}

// Join joins a directory and a name into a clean absolute path
func Join(dir string, elem ...string) string {
	return Clean(path.Join(append([]string{dir}, elem...)...))
}

// IsWithin reports whether p equals parent or is nested beneath it.
// Unlike a plain string prefix check, "/mnt/x2" is not within "/mnt/x".
func IsWithin(p, parent string) bool {
	p, parent = Clean(p), Clean(parent)
	if parent == Root || p == parent {
		return true
	}
	return strings.HasPrefix(p, parent+"/")
}

// Rel returns p relative to parent as an absolute path rooted at "/".
// It assumes IsWithin(p, parent).
func Rel(p, parent string) string {
	p, parent = Clean(p), Clean(parent)
	if parent == Root {
		return p
	}
	return Clean(strings.TrimPrefix(p, parent))
}

// Segments splits p into its non-empty elements
func Segments(p string) []string {
	var segments []string
	for _, s := range strings.Split(Clean(p), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// SplitExt splits a file name into stem and extension. Dotfiles such as
// ".profile" have no extension.
func SplitExt(name string) (stem, ext string) {
	ext = path.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// ValidateName checks that name is usable as a single path element
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("name %q is reserved", name)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("name %q cannot contain a path separator", name)
	}
	return nil
}
