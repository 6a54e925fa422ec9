package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// lockFile is the process-level advisory writer lock described in §5: the
// store file is locked by a lockfile containing this process's PID and
// acquisition time; a lock older than graceAge is considered stale and is
// broken with a warning rather than blocking forever.
type lockFile struct {
	path string
}

func acquireLock(path string, graceAge time.Duration) (*lockFile, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n%d\n", os.Getpid(), time.Now().Unix())
			f.Close()
			return &lockFile{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		stale, breakErr := isStaleLock(path, graceAge)
		if breakErr != nil {
			return nil, breakErr
		}
		if !stale {
			return nil, fmt.Errorf("store: index is locked by another process (%s); remove it if no other pui process is running", path)
		}
		// Stale lock: break it (with a warning, per §5) and retry once.
		fmt.Fprintf(os.Stderr, "warning: breaking stale index lock %s\n", path)
		os.Remove(path)
	}
	return nil, fmt.Errorf("store: could not acquire writer lock at %s", path)
}

func isStaleLock(path string, graceAge time.Duration) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return true, nil // malformed lock, treat as stale
	}
	ts, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		return true, nil
	}
	acquired := time.Unix(ts, 0)
	return time.Since(acquired) > graceAge, nil
}

func (l *lockFile) Release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}
