// Package config handles configuration loading and validation.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gateway-fm/cubench/internal/sandbox"
)

// Config holds benchmark harness configuration.
type Config struct {
	ArtifactPath    string        // path to the compiled program artifact
	ProgramID       string        // base58 program identifier; empty = derived from ProgramLabel
	ProgramLabel    string        // label for deterministic program id derivation
	Iterations      int           // repetitions per instruction variant
	ComputeBudget   uint64        // per-transaction compute budget
	FundingLamports uint64        // payer funding at bootstrap
	Delay           time.Duration // pause between submissions
	ZeroFillAvg     bool          // legacy averaging semantics
	DatabasePath    string        // SQLite database file
	ListenAddr      string        // HTTP listen address
	Serve           bool          // keep the HTTP server up after the run
	Verbose         bool          // debug logging
}

// Defaults
const (
	DefaultArtifactPath = "./artifacts/poseidon_bench.wasm"
	DefaultProgramLabel = "cubench/poseidon-bench"
	DefaultIterations   = 5
	DefaultDatabasePath = "./data/cubench.db"
	DefaultListenAddr   = ":3001"
	MaxIterations       = 1000
)

// Load reads configuration from environment variables and command-line
// flags. Flags take precedence over environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ArtifactPath: DefaultArtifactPath,
		ProgramLabel: DefaultProgramLabel,
		Iterations:   DefaultIterations,
		DatabasePath: DefaultDatabasePath,
		ListenAddr:   DefaultListenAddr,
	}

	if v := os.Getenv("ARTIFACT_PATH"); v != "" {
		cfg.ArtifactPath = v
	}
	if v := os.Getenv("PROGRAM_ID"); v != "" {
		cfg.ProgramID = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Iterations = n
		}
	}

	var (
		artifact   = flag.String("artifact", cfg.ArtifactPath, "Path to the compiled program artifact")
		programID  = flag.String("program-id", cfg.ProgramID, "Base58 program identifier (default: derived)")
		iterations = flag.Int("iterations", cfg.Iterations, "Repetitions per instruction variant")
		budget     = flag.Uint64("budget", sandbox.DefaultComputeBudget, "Per-transaction compute budget")
		funding    = flag.Uint64("funding", 0, "Payer funding in lamports (0 = default)")
		delay      = flag.Duration("delay", 0, "Pause between submissions")
		zerofill   = flag.Bool("zerofill-avg", false, "Replicate legacy zero-fill averaging semantics")
		dbPath     = flag.String("db", cfg.DatabasePath, "SQLite database path")
		listenAddr = flag.String("listen", cfg.ListenAddr, "HTTP listen address")
		serve      = flag.Bool("serve", false, "Keep the HTTP/WebSocket server running after the run")
		verbose    = flag.Bool("v", false, "Enable debug logging")
	)

	flag.Parse()

	cfg.ArtifactPath = *artifact
	cfg.ProgramID = *programID
	cfg.Iterations = *iterations
	cfg.ComputeBudget = *budget
	cfg.FundingLamports = *funding
	cfg.Delay = *delay
	cfg.ZeroFillAvg = *zerofill
	cfg.DatabasePath = *dbPath
	cfg.ListenAddr = *listenAddr
	cfg.Serve = *serve
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ArtifactPath == "" {
		return fmt.Errorf("artifact path is required")
	}
	if c.Iterations <= 0 || c.Iterations > MaxIterations {
		return fmt.Errorf("iterations must be between 1 and %d, got %d", MaxIterations, c.Iterations)
	}
	if c.ComputeBudget == 0 {
		return fmt.Errorf("compute budget must be positive")
	}
	if c.ProgramID != "" {
		if _, err := sandbox.PubkeyFromBase58(c.ProgramID); err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	return nil
}

// ResolveProgramID returns the configured program identifier, deriving a
// deterministic one from the program label when none was given.
func (c *Config) ResolveProgramID() (sandbox.Pubkey, error) {
	if c.ProgramID == "" {
		return sandbox.DerivePubkey(c.ProgramLabel), nil
	}
	return sandbox.PubkeyFromBase58(c.ProgramID)
}
