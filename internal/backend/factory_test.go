package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ledgerbot/internal/config"
	"ledgerbot/internal/core"
)

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name    string
		config  func(t *testing.T) Config
		wantErr string
	}{
		{
			name:   "memory",
			config: func(*testing.T) Config { return Config{Type: MemoryBackend} },
		},
		{
			name: "sqlite",
			config: func(t *testing.T) Config {
				return Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}
			},
		},
		{
			name:    "sqlite without path",
			config:  func(*testing.T) Config { return Config{Type: SQLiteBackend} },
			wantErr: "SQLite database path is required",
		},
		{
			name:    "postgres without dsn",
			config:  func(*testing.T) Config { return Config{Type: PostgresBackend} },
			wantErr: "Postgres DSN is required",
		},
		{
			name:    "unknown type",
			config:  func(*testing.T) Config { return Config{Type: "sheets"} },
			wantErr: "invalid backend type: sheets (valid: memory, sqlite, postgres)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(nil).CreateBackend(ctx, tt.config(t))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			b, err := res.Store.EnsureBalance(ctx, "u1")
			if err != nil {
				t.Fatalf("EnsureBalance: %v", err)
			}
			if b.Bank != (core.Money{}) || b.Cash != (core.Money{}) {
				t.Errorf("new balance = %+v", b)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	got, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresDSN: "postgres://localhost/ledger"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != PostgresBackend || got.PostgresDSN != "postgres://localhost/ledger" {
		t.Errorf("config = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "memory,sqlite,postgres" {
		t.Errorf("types = %s", got)
	}
}
