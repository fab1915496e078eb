// Package paths provides the standard desktop layout and the POSIX path
// helpers used throughout the virtual file tree.
//
// Every path visible in the tree is absolute, slash separated and cleaned.
// Host separators never appear here, so the helpers are built on package
// path rather than path/filepath.
//
// # Directory Structure
//
//	/
//	├── System/            (read-only system assets)
//	└── Users/
//	    └── Public/
//	        ├── Desktop/
//	        ├── Documents/
//	        ├── Pictures/
//	        └── Temp/      (drop target for dragged-in files)
//
// # Usage
//
//	import "github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
//
//	dir := paths.Dir("/Users/Public/Desktop/a.txt") // /Users/Public/Desktop
//	if paths.IsWithin("/mnt/x/sub", "/mnt/x") {
//	    // nested under the mount point
//	}
package paths
