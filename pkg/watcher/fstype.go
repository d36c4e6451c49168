package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// FilesystemType is a best-effort classification of the filesystem backing
// a watched path. Network filesystems deliver inotify events unreliably (or
// not at all), so the watcher falls back to polling on them.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
)

// String returns a human-readable name for the filesystem type.
func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	default:
		return "unknown"
	}
}

// detectFilesystemTypeFunc is a seam for tests to force a classification.
var detectFilesystemTypeFunc = DetectFilesystemType

// DetectFilesystemType classifies the filesystem holding path by scanning
// the mount table. Returns FSTypeUnknown when the path is empty or the
// table is unavailable (non-Linux platforms, restricted environments).
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}
	return detectFromMounts(abs, "/proc/mounts")
}

func detectFromMounts(absPath, mountsFile string) FilesystemType {
	data, err := os.ReadFile(mountsFile)
	if err != nil {
		return FSTypeUnknown
	}

	// The mount point that is the longest prefix of the path decides
	// the classification.
	bestLen := -1
	bestType := ""
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if !pathHasPrefix(absPath, mountPoint) {
			continue
		}
		if len(mountPoint) > bestLen {
			bestLen = len(mountPoint)
			bestType = fsType
		}
	}

	if bestLen < 0 {
		return FSTypeUnknown
	}
	return classifyFSName(bestType)
}

func classifyFSName(name string) FilesystemType {
	switch n := strings.ToLower(name); {
	case strings.HasPrefix(n, "nfs"):
		return FSTypeNFS
	case n == "cifs" || strings.HasPrefix(n, "smb"):
		return FSTypeSMB
	case strings.Contains(n, "sshfs"):
		return FSTypeSSHFS
	default:
		return FSTypeLocal
	}
}

func pathHasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS:
		return true
	default:
		return false
	}
}
