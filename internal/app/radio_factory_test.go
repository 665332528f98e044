package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/radioconsole/rcd/internal/config"
	"github.com/radioconsole/rcd/internal/domain"
	"github.com/radioconsole/rcd/internal/platform"
)

func TestEngineConfigFromAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Daemon.Name = "Radio 2"
	cfg.Daemon.Desc = "Mutual aid"
	cfg.Control.RxOnly = true
	cfg.Control.SB9600.SerialPort = "/dev/ttyUSB1"
	cfg.Control.SB9600.UseLEDsForRx = true
	cfg.Control.SB9600.SoftkeyBindings = map[string]string{"btn_top_1": "SCAN"}
	cfg.TextLookups.Zone = []domain.TextLookup{{Match: "Z1", Replacement: "Zone One"}}

	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := EngineConfig(cfg, resolved)

	if got.Name != "Radio 2" || got.Description != "Mutual aid" || got.Port != "/dev/ttyUSB1" {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if !got.RxOnly || !got.UseLEDsForRx {
		t.Fatalf("expected flags carried over, got %+v", got)
	}
	if len(got.Softkeys) != 1 || got.Softkeys[0] != domain.SoftkeySCAN {
		t.Fatalf("expected bound softkeys, got %v", got.Softkeys)
	}
	if len(got.ZoneLookups) != 1 || got.Binding != resolved.Binding {
		t.Fatalf("expected lookups and binding carried over, got %+v", got)
	}
}

func TestSerialOpenerReleasesLockOnOpenFailure(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	open := SerialOpener("/dev/rcd-missing-port", slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 2; i++ {
		_, err := open(context.Background())
		if err == nil {
			t.Fatalf("expected open of a missing port to fail")
		}
		if errors.Is(err, platform.ErrPortInUse) {
			t.Fatalf("attempt %d: expected lock released after failed open, got %v", i, err)
		}
	}
}
