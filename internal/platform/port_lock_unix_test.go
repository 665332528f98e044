//go:build unix

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquirePortLock_ContentionAndRelease(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	appID := "rcd-test-" + strconv.Itoa(os.Getpid())

	lock1, err := AcquirePortLock(appID, "/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}

	lock2, err := AcquirePortLock(appID, "/dev/ttyUSB0")
	if !errors.Is(err, ErrPortInUse) {
		t.Fatalf("expected %v, got %v", ErrPortInUse, err)
	}
	if lock2 != nil {
		t.Fatalf("expected second lock to be nil, got %#v", lock2)
	}

	other, err := AcquirePortLock(appID, "/dev/ttyUSB1")
	if err != nil {
		t.Fatalf("expected a different port to lock independently: %v", err)
	}
	if err := other.Release(); err != nil {
		t.Fatalf("release other lock: %v", err)
	}

	if err := lock1.Release(); err != nil {
		t.Fatalf("release first lock: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("expected second release to be a no-op, got %v", err)
	}

	lock3, err := AcquirePortLock(appID, "/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("acquire lock after release: %v", err)
	}
	if err := lock3.Release(); err != nil {
		t.Fatalf("release third lock: %v", err)
	}
}

func TestUnixPortLockPathPrefersXDGRuntimeDir(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	path, err := unixPortLockPath("rcd", "dev_ttyUSB0")
	if err != nil {
		t.Fatalf("resolve lock path: %v", err)
	}

	if want := filepath.Join(runtimeDir, "rcd", "dev_ttyUSB0.lock"); path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
}

func TestUnixPortLockPathFallsBackToTemp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	path, err := unixPortLockPath("rcd", "dev_ttyUSB0")
	if err != nil {
		t.Fatalf("resolve lock path: %v", err)
	}

	wantFragment := "rcd-" + strconv.Itoa(os.Getuid())
	if !strings.Contains(path, wantFragment) {
		t.Fatalf("expected path to contain %q, got %q", wantFragment, path)
	}
}
