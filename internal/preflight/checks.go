package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"ocrcache/internal/recognition"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace fails when the filesystem holding path has less than
// minFree bytes available to unprivileged users.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s (%s free)", path, formatBytes(free))
	if free < minFree {
		return Result{Name: name, Detail: detail + fmt.Sprintf(", need at least %s", formatBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckEngine verifies that the configured recognition engine is compiled in.
func CheckEngine(_ context.Context, name string) Result {
	const label = "Recognition engine"
	engine, err := recognition.Lookup(name)
	if err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	return Result{Name: label, Passed: true, Detail: engine.Name()}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
