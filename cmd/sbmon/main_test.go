package main

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseMonitorOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    monitorOptions
		wantErr bool
	}{
		{name: "defaults", args: nil, want: monitorOptions{}},
		{name: "port and duration", args: []string{"-p", "/dev/ttyUSB1", "--listen-for", "30s"}, want: monitorOptions{Port: "/dev/ttyUSB1", ListenFor: 30 * time.Second}},
		{name: "config and verbose", args: []string{"--config", "rcd.yaml", "-v"}, want: monitorOptions{ConfigFile: "rcd.yaml", Verbose: true}},
		{name: "negative duration", args: []string{"-l", "-1s"}, wantErr: true},
		{name: "unexpected positional", args: []string{"extra"}, wantErr: true},
	}

	for _, tc := range tests {
		got, err := parseMonitorOptions(tc.args, io.Discard)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got nil", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestPreviewHex(t *testing.T) {
	short := "00 00 01 08 7C"
	if got := previewHex(" " + short + " "); got != short {
		t.Fatalf("expected %q, got %q", short, got)
	}

	long := strings.Repeat("AB ", 40)
	got := previewHex(long)
	if len(got) != maxHexPreviewLen+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated preview, got %q", got)
	}
}
