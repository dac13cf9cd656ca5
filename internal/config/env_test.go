package config

import "testing"

func TestApplyEnvGates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		env           map[string]string
		wantScheduler bool
		wantAPI       bool
		wantErr       bool
	}{
		{
			name:          "no overrides keeps file values",
			env:           map[string]string{},
			wantScheduler: true,
			wantAPI:       false,
		},
		{
			name:          "scheduler-only instance",
			env:           map[string]string{EnvScheduler: "1", EnvAPI: "0"},
			wantScheduler: true,
			wantAPI:       false,
		},
		{
			name:          "api-only instance",
			env:           map[string]string{EnvScheduler: "false", EnvAPI: "true"},
			wantScheduler: false,
			wantAPI:       true,
		},
		{
			name:    "garbage value rejected",
			env:     map[string]string{EnvScheduler: "maybe"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{}
			cfg.Scheduler.Enabled = true
			cfg.API.Enabled = false

			lookup := func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}
			err := applyEnv(cfg, lookup)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyEnv error: %v", err)
			}
			if cfg.Scheduler.Enabled != tt.wantScheduler {
				t.Fatalf("scheduler.enabled = %v, want %v", cfg.Scheduler.Enabled, tt.wantScheduler)
			}
			if cfg.API.Enabled != tt.wantAPI {
				t.Fatalf("api.enabled = %v, want %v", cfg.API.Enabled, tt.wantAPI)
			}
		})
	}
}
