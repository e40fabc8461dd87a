package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"exit code 0 no message", cli.Exit("", 0), 0, ""},
		{"operation failed", cli.Exit("operation_failed: server reported camera_image_failed", 1), 1, "operation_failed: server reported camera_image_failed"},
		{"not initialized", cli.Exit("not_initialized: no server behind shared memory key 12347", 4), 4, "not_initialized: no server behind shared memory key 12347"},
		{"bare exit status", cli.Exit("", 5), 5, ""},
		{"wrapped exit coder", errors.Join(errors.New("context"), cli.Exit("storage failed", 6)), 6, "storage failed"},
		{"regular error", errors.New("boom"), 1, "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := exitStatus(tt.err)
			if code != tt.wantCode {
				t.Errorf("exitStatus() code = %d, want %d", code, tt.wantCode)
			}
			if msg != tt.wantMsg {
				t.Errorf("exitStatus() msg = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	want := []string{"probe", "step", "reset", "load", "bodies", "camera", "contacts", "overlap", "shapes", "lines", "capture", "version"}
	if len(app.Commands) != len(want) {
		t.Fatalf("len(Commands) = %d, want %d", len(app.Commands), len(want))
	}
	for i, name := range want {
		if app.Commands[i].Name != name {
			t.Errorf("Commands[%d] = %s, want %s", i, app.Commands[i].Name, name)
		}
	}
}
