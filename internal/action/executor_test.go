package action

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func scriptPlugin(t *testing.T, body string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return &Plugin{
		Manifest:   Manifest{Name: "test", Executable: "run.sh", Actions: []string{"test"}},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		wantErr string
		check   func(t *testing.T, resp *Response)
	}{
		{
			name:   "success",
			script: `echo '{"success":true,"data":{"message":"hello"}}'`,
			check: func(t *testing.T, resp *Response) {
				var data map[string]string
				json.Unmarshal(resp.Data, &data)
				if data["message"] != "hello" {
					t.Errorf("unexpected data %s", resp.Data)
				}
			},
		},
		{
			name:   "reads request from stdin",
			script: "INPUT=$(cat)\necho \"{\\\"success\\\":true,\\\"data\\\":$INPUT}\"",
			check: func(t *testing.T, resp *Response) {
				var req Request
				if err := json.Unmarshal(resp.Data, &req); err != nil {
					t.Fatalf("echoed request: %v", err)
				}
				if req.Action != "keyboard" || req.Combo != "special_move" || string(req.Params) != `{"keys":["cmd","w"]}` {
					t.Errorf("unexpected echoed request %+v", req)
				}
			},
		},
		{
			name:    "reported failure",
			script:  `echo '{"success":false,"error":"no such key"}'`,
			wantErr: "no such key",
		},
		{
			name:    "non-zero exit",
			script:  "echo boom >&2\nexit 3",
			wantErr: "boom",
		},
		{
			name:    "invalid response",
			script:  "echo not json",
			wantErr: "parse plugin test response",
		},
		{
			name:    "timeout",
			script:  "exec sleep 5",
			timeout: 100 * time.Millisecond,
			wantErr: "timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scriptPlugin(t, tt.script)
			req := Request{Action: "keyboard", Combo: "special_move", Params: json.RawMessage(`{"keys":["cmd","w"]}`)}

			resp, err := NewExecutor(tt.timeout).Execute(context.Background(), p, req)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !resp.Success {
				t.Error("expected success")
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	if e := NewExecutor(0); e.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", e.timeout, DefaultTimeout)
	}
}
