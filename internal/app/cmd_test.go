package app

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/pushmyself/internal/model"
)

func TestNewRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCommand(io.Discard)

	got := map[string]bool{}
	for _, c := range root.Commands() {
		got[c.Name()] = true
	}
	for _, name := range []string{"serve", "migrate", "sync", "healthcheck"} {
		if !got[name] {
			t.Errorf("subcommand %q is not registered", name)
		}
	}
	if root.RunE == nil {
		t.Error("root command should default to serve")
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	err := Run(io.Discard, []string{"worker"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("error = %v, want unknown command", err)
	}
}

func TestRun_Healthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := Run(io.Discard, []string{"healthcheck", "--url", srv.URL})
			if (err != nil) != tt.wantErr {
				t.Errorf("healthcheck error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_Healthcheck_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := Run(io.Discard, []string{"healthcheck", "--url", url}); err == nil {
		t.Error("expected error when server is not reachable")
	}
}

func TestRun_Migrate_RequiresDatabaseURL(t *testing.T) {
	setTestEnv(t)

	err := Run(io.Discard, []string{"migrate"})
	if err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %v, should mention DATABASE_URL", err)
	}
}

func TestRun_Sync_Offline_ReturnsOfflineError(t *testing.T) {
	setTestEnv(t)

	var logs bytes.Buffer
	err := Run(&logs, []string{"sync"})
	if err == nil {
		t.Fatal("expected error when offline")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeOffline {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeOffline)
	}
}

func TestRun_InvalidConfig_FailsInitialization(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	err := Run(io.Discard, []string{"sync"})
	if err == nil || !strings.Contains(err.Error(), "initialization failed") {
		t.Errorf("error = %v, want initialization failure", err)
	}
}

func TestRun_Migrate_RejectsNegativeDown(t *testing.T) {
	setTestEnv(t)

	err := Run(io.Discard, []string{"migrate", "--down", "-1"})
	if err == nil || !strings.Contains(err.Error(), "--down") {
		t.Errorf("error = %v, want --down validation error", err)
	}
}
