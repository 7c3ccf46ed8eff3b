package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
aws:
  region: eu-west-1
  model_id: anthropic.claude-v2
corpus:
  bucket: my-corpus
  prefix: docs/
index:
  path: /var/lib/ragcore/index.bin
  metadata_path: /var/lib/ragcore/metadata.json
embedding:
  provider: bedrock
  model: amazon.titan-embed-text-v1
  dimensions: 1536
cluster:
  endpoint: https://search.example.com
  index: rag-chunks
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"AWS_REGION", "BEDROCK_MODEL_ID",
		"RAG_BUCKET", "RAG_PREFIX", "RAG_INDEX_PATH", "RAG_METADATA_PATH",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"OPENSEARCH_ENDPOINT", "OPENSEARCH_INDEX",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"AWS_REGION":           "eu-west-1",
		"BEDROCK_MODEL_ID":     "anthropic.claude-v2",
		"RAG_BUCKET":           "my-corpus",
		"RAG_PREFIX":           "docs/",
		"RAG_INDEX_PATH":       "/var/lib/ragcore/index.bin",
		"RAG_METADATA_PATH":    "/var/lib/ragcore/metadata.json",
		"EMBEDDING_PROVIDER":   "bedrock",
		"EMBEDDING_MODEL":      "amazon.titan-embed-text-v1",
		"EMBEDDING_DIMENSIONS": "1536",
		"OPENSEARCH_ENDPOINT":  "https://search.example.com",
		"OPENSEARCH_INDEX":     "rag-chunks",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
aws:
  region: us-west-2
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading. It should NOT be overwritten.
	t.Setenv("AWS_REGION", "us-east-1")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("AWS_REGION"); got != "us-east-1" {
		t.Errorf("AWS_REGION: expected env override %q, got %q", "us-east-1", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestIntStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want string
	}{
		{0, ""},
		{1536, "1536"},
		{8080, "8080"},
	}
	for _, tt := range tests {
		if got := intStr(tt.in); got != tt.want {
			t.Errorf("intStr(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
