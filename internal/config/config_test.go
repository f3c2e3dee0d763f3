package config

import (
	"strings"
	"testing"

	"github.com/gateway-fm/cubench/internal/sandbox"
)

func validConfig() *Config {
	return &Config{
		ArtifactPath:  DefaultArtifactPath,
		ProgramLabel:  DefaultProgramLabel,
		Iterations:    DefaultIterations,
		ComputeBudget: sandbox.DefaultComputeBudget,
		DatabasePath:  DefaultDatabasePath,
		ListenAddr:    DefaultListenAddr,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing artifact path",
			mutate:  func(c *Config) { c.ArtifactPath = "" },
			wantErr: "artifact path",
		},
		{
			name:    "zero iterations",
			mutate:  func(c *Config) { c.Iterations = 0 },
			wantErr: "iterations",
		},
		{
			name:    "iterations above cap",
			mutate:  func(c *Config) { c.Iterations = MaxIterations + 1 },
			wantErr: "iterations",
		},
		{
			name:    "zero compute budget",
			mutate:  func(c *Config) { c.ComputeBudget = 0 },
			wantErr: "compute budget",
		},
		{
			name:    "malformed program id",
			mutate:  func(c *Config) { c.ProgramID = "not-base58-0OIl" },
			wantErr: "program id",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Delay = -1 },
			wantErr: "delay",
		},
		{
			name:   "explicit valid program id",
			mutate: func(c *Config) { c.ProgramID = sandbox.DerivePubkey("x").String() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveProgramIDDerived(t *testing.T) {
	cfg := validConfig()

	id, err := cfg.ResolveProgramID()
	if err != nil {
		t.Fatalf("ResolveProgramID() error = %v", err)
	}
	if id != sandbox.DerivePubkey(DefaultProgramLabel) {
		t.Error("derived id does not match the program label derivation")
	}

	// Same label, same id: runs must target a stable program identifier.
	again, _ := cfg.ResolveProgramID()
	if id != again {
		t.Error("derived id not stable across calls")
	}
}

func TestResolveProgramIDExplicit(t *testing.T) {
	want := sandbox.DerivePubkey("explicit")
	cfg := validConfig()
	cfg.ProgramID = want.String()

	id, err := cfg.ResolveProgramID()
	if err != nil {
		t.Fatalf("ResolveProgramID() error = %v", err)
	}
	if id != want {
		t.Errorf("ResolveProgramID() = %s, want %s", id, want)
	}
}
