package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var ErrLocked = errors.New("lock held by another process")

const lockPollInterval = 50 * time.Millisecond

// FileLock is an exclusive flock on a file, used to keep a single server
// per data directory. The holder's pid is written into the file.
type FileLock struct {
	path string
	file *os.File
}

// AcquireFileLock blocks until the lock is free.
func AcquireFileLock(path string) (*FileLock, error) {
	file, err := openLockFile(path)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return claim(path, file)
}

// AcquireFileLockWithTimeout polls for the lock. On timeout the error wraps
// both ErrLocked and os.ErrDeadlineExceeded and names the holding pid.
func AcquireFileLockWithTimeout(path string, timeout time.Duration) (*FileLock, error) {
	if timeout <= 0 {
		return AcquireFileLock(path)
	}
	file, err := openLockFile(path)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return claim(path, file)
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EAGAIN) {
			_ = file.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %s (pid %s): %w", ErrLocked, path, holderPID(path), os.ErrDeadlineExceeded)
		}
		time.Sleep(lockPollInterval)
	}
}

func openLockFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return file, nil
}

func claim(path string, file *os.File) (*FileLock, error) {
	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	return &FileLock{path: path, file: file}, nil
}

func holderPID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	if pid := strings.TrimSpace(string(data)); pid != "" {
		return pid
	}
	return "unknown"
}

func (l *FileLock) Path() string {
	return l.path
}

func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	_ = file.Truncate(0)
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_UN); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
