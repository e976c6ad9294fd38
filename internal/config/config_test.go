package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// setTestHome points HOME at a temp directory and sets the API key so that
// Load() passes validation without touching the developer's real config.
func setTestHome(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	// Clear DATABASE_URL so individual postgres_* values are exercised
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	return tmpDir
}

// TestLoadDefaults tests that default configuration values are loaded correctly
func TestLoadDefaults(t *testing.T) {
	// Reset Viper singleton to avoid interference from other tests
	viper.Reset()
	setTestHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderGemini {
		t.Errorf("expected default Provider %q, got %q", ProviderGemini, cfg.Provider)
	}

	if cfg.ModelName != "gemini-2.5-flash" {
		t.Errorf("expected default ModelName 'gemini-2.5-flash', got %q", cfg.ModelName)
	}

	if cfg.Temperature != 0.2 {
		t.Errorf("expected default Temperature 0.2, got %f", cfg.Temperature)
	}

	if cfg.MaxTokens != 2048 {
		t.Errorf("expected default MaxTokens 2048, got %d", cfg.MaxTokens)
	}

	if cfg.EmbedderModel != DefaultGeminiEmbedderModel {
		t.Errorf("expected default EmbedderModel %q, got %q", DefaultGeminiEmbedderModel, cfg.EmbedderModel)
	}

	if cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("expected default ChunkSize %d, got %d", DefaultChunkSize, cfg.ChunkSize)
	}

	if cfg.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("expected default ChunkOverlap %d, got %d", DefaultChunkOverlap, cfg.ChunkOverlap)
	}

	if cfg.TopK != DefaultTopK {
		t.Errorf("expected default TopK %d, got %d", DefaultTopK, cfg.TopK)
	}

	if cfg.SearchMode != SearchModeSimilarity {
		t.Errorf("expected default SearchMode %q, got %q", SearchModeSimilarity, cfg.SearchMode)
	}

	if cfg.MemoryBackend != MemoryBackendInProcess {
		t.Errorf("expected default MemoryBackend %q, got %q", MemoryBackendInProcess, cfg.MemoryBackend)
	}

	if cfg.SessionTTLSeconds != DefaultSessionTTLSeconds {
		t.Errorf("expected default SessionTTLSeconds %d, got %d", DefaultSessionTTLSeconds, cfg.SessionTTLSeconds)
	}

	if cfg.MaxHistoryLength != DefaultMaxHistoryLength {
		t.Errorf("expected default MaxHistoryLength %d, got %d", DefaultMaxHistoryLength, cfg.MaxHistoryLength)
	}

	if cfg.PostgresHost != "localhost" {
		t.Errorf("expected default PostgresHost 'localhost', got %q", cfg.PostgresHost)
	}

	if cfg.PostgresPort != 5432 {
		t.Errorf("expected default PostgresPort 5432, got %d", cfg.PostgresPort)
	}

	if cfg.PostgresUser != "kyna" {
		t.Errorf("expected default PostgresUser 'kyna', got %q", cfg.PostgresUser)
	}

	if cfg.PostgresDBName != "kyna" {
		t.Errorf("expected default PostgresDBName 'kyna', got %q", cfg.PostgresDBName)
	}

	if cfg.ServeAddr != "localhost:8080" {
		t.Errorf("expected default ServeAddr 'localhost:8080', got %q", cfg.ServeAddr)
	}
}

// TestLoadConfigFile tests loading configuration from a file
func TestLoadConfigFile(t *testing.T) {
	// Reset Viper singleton to avoid interference from other tests
	viper.Reset()
	tmpDir := setTestHome(t)

	// Create .kyna directory
	kynaDir := filepath.Join(tmpDir, ".kyna")
	if err := os.MkdirAll(kynaDir, 0o750); err != nil {
		t.Fatalf("failed to create kyna dir: %v", err)
	}

	configContent := `model_name: gemini-2.5-pro
temperature: 0.9
max_tokens: 4096
top_k: 6
chunk_size: 800
chunk_overlap: 100
search_mode: similarity_score_threshold
score_threshold: 0.65
postgres_host: test-host
postgres_port: 5433
postgres_db_name: test_db
`
	configPath := filepath.Join(kynaDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ModelName != "gemini-2.5-pro" {
		t.Errorf("expected ModelName 'gemini-2.5-pro', got %q", cfg.ModelName)
	}

	if cfg.Temperature != 0.9 {
		t.Errorf("expected Temperature 0.9, got %f", cfg.Temperature)
	}

	if cfg.MaxTokens != 4096 {
		t.Errorf("expected MaxTokens 4096, got %d", cfg.MaxTokens)
	}

	if cfg.TopK != 6 {
		t.Errorf("expected TopK 6, got %d", cfg.TopK)
	}

	if cfg.ChunkSize != 800 {
		t.Errorf("expected ChunkSize 800, got %d", cfg.ChunkSize)
	}

	if cfg.ChunkOverlap != 100 {
		t.Errorf("expected ChunkOverlap 100, got %d", cfg.ChunkOverlap)
	}

	if cfg.SearchMode != SearchModeThreshold {
		t.Errorf("expected SearchMode %q, got %q", SearchModeThreshold, cfg.SearchMode)
	}

	if cfg.ScoreThreshold != 0.65 {
		t.Errorf("expected ScoreThreshold 0.65, got %f", cfg.ScoreThreshold)
	}

	if cfg.PostgresHost != "test-host" {
		t.Errorf("expected PostgresHost 'test-host', got %q", cfg.PostgresHost)
	}

	if cfg.PostgresPort != 5433 {
		t.Errorf("expected PostgresPort 5433, got %d", cfg.PostgresPort)
	}

	if cfg.PostgresDBName != "test_db" {
		t.Errorf("expected PostgresDBName 'test_db', got %q", cfg.PostgresDBName)
	}
}

// TestSentinelErrors tests that sentinel errors work with errors.Is()
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"ErrConfigNil", ErrConfigNil, ErrConfigNil},
		{"ErrMissingAPIKey", ErrMissingAPIKey, ErrMissingAPIKey},
		{"ErrInvalidModelName", ErrInvalidModelName, ErrInvalidModelName},
		{"ErrInvalidTemperature", ErrInvalidTemperature, ErrInvalidTemperature},
		{"ErrInvalidChunking", ErrInvalidChunking, ErrInvalidChunking},
		{"ErrInvalidSearchMode", ErrInvalidSearchMode, ErrInvalidSearchMode},
		{"ErrInvalidMemoryBackend", ErrInvalidMemoryBackend, ErrInvalidMemoryBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.sentinel)
			}
		})
	}
}

// TestConfigDirectoryCreation tests that config directory is created with correct permissions
func TestConfigDirectoryCreation(t *testing.T) {
	viper.Reset()
	tmpDir := setTestHome(t)

	_, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check that .kyna directory was created
	kynaDir := filepath.Join(tmpDir, ".kyna")
	info, err := os.Stat(kynaDir)
	if err != nil {
		t.Fatalf("config directory not created: %v", err)
	}

	if !info.IsDir() {
		t.Error("expected .kyna to be a directory")
	}

	// Check permissions (0750 = drwxr-x---)
	perm := info.Mode().Perm()
	expectedPerm := os.FileMode(0o750)
	if perm != expectedPerm {
		t.Errorf("expected permissions %o, got %o", expectedPerm, perm)
	}
}

// TestEnvironmentVariableOverride tests that bound KYNA_* env vars override the config file.
func TestEnvironmentVariableOverride(t *testing.T) {
	viper.Reset()
	tmpDir := setTestHome(t)

	kynaDir := filepath.Join(tmpDir, ".kyna")
	if err := os.MkdirAll(kynaDir, 0o750); err != nil {
		t.Fatalf("failed to create kyna dir: %v", err)
	}

	configContent := `model_name: gemini-2.5-pro
temperature: 0.5
serve_addr: localhost:9999
`
	configPath := filepath.Join(kynaDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("KYNA_MODEL_NAME", "gemini-2.5-flash")
	t.Setenv("KYNA_SERVE_ADDR", "0.0.0.0:8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Bound env vars take priority over the config file
	if cfg.ModelName != "gemini-2.5-flash" {
		t.Errorf("expected ModelName from env 'gemini-2.5-flash', got %q", cfg.ModelName)
	}

	if cfg.ServeAddr != "0.0.0.0:8081" {
		t.Errorf("expected ServeAddr from env '0.0.0.0:8081', got %q", cfg.ServeAddr)
	}

	// Unbound values still come from the config file
	if cfg.Temperature != 0.5 {
		t.Errorf("expected Temperature from config 0.5, got %f", cfg.Temperature)
	}
}

// TestLoadInvalidYAML tests loading configuration with invalid YAML
func TestLoadInvalidYAML(t *testing.T) {
	viper.Reset()
	tmpDir := setTestHome(t)

	kynaDir := filepath.Join(tmpDir, ".kyna")
	if err := os.MkdirAll(kynaDir, 0o750); err != nil {
		t.Fatalf("failed to create kyna dir: %v", err)
	}

	invalidYAML := `model_name: gemini-2.5-pro
temperature: invalid_value
  indentation: broken
max_tokens: not_a_number
`
	configPath := filepath.Join(kynaDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0o600); err != nil {
		t.Fatalf("failed to write invalid config file: %v", err)
	}

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid YAML, got none")
	}
}

// TestFullModelName tests provider-qualified model name generation
func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini default", ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"openai", ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"already qualified", ProviderGemini, "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFullEmbedderName tests provider-qualified embedder name generation
func TestFullEmbedderName(t *testing.T) {
	cfg := &Config{Provider: ProviderGemini, EmbedderModel: DefaultGeminiEmbedderModel}
	want := "googleai/" + DefaultGeminiEmbedderModel
	if got := cfg.FullEmbedderName(); got != want {
		t.Errorf("FullEmbedderName() = %q, want %q", got, want)
	}
}

// TestConfig_MarshalJSON_MasksSensitiveFields verifies that sensitive fields are masked
func TestConfig_MarshalJSON_MasksSensitiveFields(t *testing.T) {
	cfg := Config{
		ModelName:        "gemini-2.5-flash",
		PostgresPassword: "supersecretpassword123",
		RedisPassword:    "anothersecretvalue456",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "kyna",
		PostgresDBName:   "kyna",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	jsonStr := string(data)

	// CRITICAL: Verify original secrets are NOT in output (security requirement)
	if strings.Contains(jsonStr, "supersecretpassword123") {
		t.Error("SECURITY: sensitive field PostgresPassword not masked - raw password found in JSON")
	}
	if strings.Contains(jsonStr, "anothersecretvalue456") {
		t.Error("SECURITY: sensitive field RedisPassword not masked - raw password found in JSON")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	maskedPwd, ok := result["postgres_password"].(string)
	if !ok {
		t.Fatal("postgres_password should be a string in JSON output")
	}

	if !strings.Contains(maskedPwd, "████████") {
		t.Errorf("masked password should contain '████████', got: %s", maskedPwd)
	}

	// Verify non-sensitive fields are NOT masked
	if !strings.Contains(jsonStr, "localhost") {
		t.Error("non-sensitive field PostgresHost should not be masked")
	}

	if !strings.Contains(jsonStr, "gemini-2.5-flash") {
		t.Error("non-sensitive field ModelName should not be masked")
	}
}

// TestConfig_MarshalJSON_ShortPassword verifies short passwords are fully masked
func TestConfig_MarshalJSON_ShortPassword(t *testing.T) {
	cfg := Config{
		PostgresPassword: "abc", // 3 chars - should be fully masked
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	jsonStr := string(data)

	if strings.Contains(jsonStr, `"postgres_password":"abc"`) {
		t.Error("short password should be fully masked")
	}

	if !strings.Contains(jsonStr, `"postgres_password":"████████"`) {
		t.Errorf("expected fully masked password '████████', got: %s", jsonStr)
	}
}

// TestConfig_String_MasksSensitiveFields verifies String() also masks sensitive fields
func TestConfig_String_MasksSensitiveFields(t *testing.T) {
	cfg := Config{
		PostgresPassword: "topsecretpassword",
	}

	str := cfg.String()

	if strings.Contains(str, "topsecretpassword") {
		t.Error("Config.String() should mask sensitive fields")
	}
}

// TestMaskSecret verifies the masking behavior at the length boundary.
func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"short fully masked", "abc", "████████"},
		{"boundary fully masked", "12345678", "████████"},
		{"long shows edges", "my_long_secret_key_123", "my<████████>23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.input); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
