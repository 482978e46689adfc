package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	AdminTokenHash string
	// CoprocessorKey seals ciphertext handles in the software co-processor.
	CoprocessorKey []byte
	// AttestationSeed derives the Ed25519 key signing decryption results.
	AttestationSeed []byte
}

// AttestationKey expands the configured seed into the signing key.
func (c Config) AttestationKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(c.AttestationSeed)
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values and reporting missing or invalid entries in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:coscheduler.db?_foreign_keys=on",
	}

	missing := make([]string, 0, 3)
	invalid := make([]string, 0, 3)

	if portValue := strings.TrimSpace(os.Getenv("COSCHED_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "COSCHED_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("COSCHED_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if hash := strings.TrimSpace(os.Getenv("COSCHED_ADMIN_TOKEN_HASH")); hash == "" {
		missing = append(missing, "COSCHED_ADMIN_TOKEN_HASH")
	} else {
		cfg.AdminTokenHash = hash
	}

	if keyValue := strings.TrimSpace(os.Getenv("COSCHED_COPROCESSOR_KEY")); keyValue == "" {
		missing = append(missing, "COSCHED_COPROCESSOR_KEY")
	} else {
		key, err := hex.DecodeString(keyValue)
		if err != nil || len(key) != 32 {
			invalid = append(invalid, "COSCHED_COPROCESSOR_KEY")
		} else {
			cfg.CoprocessorKey = key
		}
	}

	if seedValue := strings.TrimSpace(os.Getenv("COSCHED_ATTESTATION_SEED")); seedValue == "" {
		missing = append(missing, "COSCHED_ATTESTATION_SEED")
	} else {
		seed, err := hex.DecodeString(seedValue)
		if err != nil || len(seed) != ed25519.SeedSize {
			invalid = append(invalid, "COSCHED_ATTESTATION_SEED")
		} else {
			cfg.AttestationSeed = seed
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
