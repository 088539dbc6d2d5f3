package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DBDriver   string
	DBDSN      string
	ReplicaDSN string // empty = reuse DBDSN

	// RulesetIDs restricts processing; empty means every registered one.
	RulesetIDs      []int
	ProcessConverts bool
	DryRun          bool
	WriteMetadata   bool

	// Workers bounds batch-run parallelism.
	Workers int

	HTTPAddr    string
	CORSOrigins []string

	APIUser     string
	APIPassHash string // bcrypt
	HMACSecret  string
}

func FromEnv() Config {
	return Config{
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		ReplicaDSN:      envOr("DB_REPLICA_DSN", ""),
		RulesetIDs:      intCSV(os.Getenv("RULESET_IDS")),
		ProcessConverts: envBool("PROCESS_CONVERTS", true),
		DryRun:          envBool("DRY_RUN", false),
		WriteMetadata:   envBool("WRITE_METADATA", false),
		Workers:         envInt("WORKERS", 4),
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
		APIUser:         envOr("API_USER", "admin"),
		APIPassHash:     envOr("API_PASS_HASH", ""),
		HMACSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intCSV(v string) []int {
	var out []int
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
