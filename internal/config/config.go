package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the mock platform services.
type Config struct {
	// Repository scope settings
	RepoOwner     string
	RepoName      string
	DefaultBranch string

	// Bare repository backing the code-host tools
	BareRepoPath string

	// Refs excluded from listings and rejected as inputs
	HiddenBranches []string

	// Static data directories (one record collection file per entity kind)
	GitHubDataDir string
	LinearDataDir string

	// Tool catalog settings
	ReadOnly bool

	// Git subprocess settings
	GitTimeout time.Duration

	// Grading settings
	TestTimeout time.Duration

	// Frontend settings (0 disables the inspection frontend)
	FrontendPort int
	AdminSecret  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		RepoOwner:      os.Getenv("REPO_OWNER"),
		RepoName:       os.Getenv("REPO_NAME"),
		DefaultBranch:  getEnv("DEFAULT_BRANCH", "main"),
		BareRepoPath:   os.Getenv("BARE_REPO_PATH"),
		HiddenBranches: splitList(os.Getenv("HIDDEN_BRANCHES")),
		GitHubDataDir:  os.Getenv("GITHUB_DATA_DIR"),
		LinearDataDir:  os.Getenv("LINEAR_DATA_DIR"),
		ReadOnly:       getEnvBool("MCP_READ_ONLY", false),
		GitTimeout:     time.Duration(getEnvInt("GIT_TIMEOUT_SECONDS", 30)) * time.Second,
		TestTimeout:    time.Duration(getEnvInt("TEST_TIMEOUT_SECONDS", 120)) * time.Second,
		FrontendPort:   getEnvInt("PLATFORM_FRONTEND_PORT", 0),
		AdminSecret:    os.Getenv("PLATFORM_ADMIN_SECRET"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	if c.RepoOwner == "" {
		return fmt.Errorf("REPO_OWNER is required")
	}
	if c.RepoName == "" {
		return fmt.Errorf("REPO_NAME is required")
	}
	if c.GitTimeout <= 0 {
		return fmt.Errorf("GIT_TIMEOUT_SECONDS must be greater than 0")
	}
	if c.TestTimeout <= 0 {
		return fmt.Errorf("TEST_TIMEOUT_SECONDS must be greater than 0")
	}
	if c.FrontendPort > 0 && c.AdminSecret == "" {
		return fmt.Errorf("PLATFORM_ADMIN_SECRET is required when PLATFORM_FRONTEND_PORT is set")
	}
	return nil
}

// splitList parses a comma-separated environment value into trimmed entries.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	entries := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			entries = append(entries, trimmed)
		}
	}
	return entries
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets environment variable as bool with a default value
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}
