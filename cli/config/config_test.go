package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `shared_memory:
  key: 12347
  transport: sysv
verbose: true

poll:
  interval: 200us
  timeout: 3s

storage:
  dataset: physlink
  backend: s3
  path: lab-bucket/captures
  region: eu-west-1
  endpoint: http://localhost:9000
  s3_path_style: true

policy:
  name: buffered
  buffer_records: 32
  buffer_bytes: 1048576

adapter:
  type: webhook
  url: https://hooks.example.com/physlink
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SharedMemory.Key != 12347 {
		t.Errorf("SharedMemory.Key = %d, want 12347", cfg.SharedMemory.Key)
	}
	assertEqual(t, "shared_memory.transport", cfg.SharedMemory.Transport, "sysv")
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.Poll.Interval.Duration != 200*time.Microsecond {
		t.Errorf("Poll.Interval = %v, want 200µs", cfg.Poll.Interval.Duration)
	}
	if cfg.Poll.Timeout.Duration != 3*time.Second {
		t.Errorf("Poll.Timeout = %v, want 3s", cfg.Poll.Timeout.Duration)
	}

	assertEqual(t, "storage.backend", cfg.Storage.Backend, "s3")
	assertEqual(t, "storage.path", cfg.Storage.Path, "lab-bucket/captures")
	assertEqual(t, "storage.region", cfg.Storage.Region, "eu-west-1")
	if !cfg.Storage.S3PathStyle {
		t.Error("Storage.S3PathStyle = false, want true")
	}

	assertEqual(t, "policy.name", cfg.Policy.Name, "buffered")
	if cfg.Policy.BufferRecords != 32 || cfg.Policy.BufferBytes != 1048576 {
		t.Errorf("Policy buffers = %d/%d, want 32/1048576", cfg.Policy.BufferRecords, cfg.Policy.BufferBytes)
	}

	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.headers.Authorization", cfg.Adapter.Headers["Authorization"], "Bearer token123")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("Adapter.Timeout = %v, want 10s", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("Adapter.Retries = %v, want 3", cfg.Adapter.Retries)
	}
}

func TestLoad_EmptyAndCommentOnly(t *testing.T) {
	for _, content := range []string{"", "   \n\n", "# only a comment\n"} {
		cfg, err := Load(writeTemp(t, content))
		if err != nil {
			t.Fatalf("Load(%q) error = %v", content, err)
		}
		if cfg.SharedMemory.Key != 0 || cfg.Storage.Backend != "" {
			t.Errorf("Load(%q) = %+v, want zero config", content, cfg)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid yaml", "shared_memory: [unclosed", "invalid YAML"},
		{"unknown key", "verbose: true\nbogus_key: 1\n", "bogus_key"},
		{"unknown nested key", "storage:\n  backend: fs\n  unknown_field: bad\n", "unknown_field"},
		{"bad transport", "shared_memory:\n  transport: pipe\n", "shared_memory.transport"},
		{"bad backend", "storage:\n  backend: gcs\n", "storage.backend"},
		{"bad policy", "policy:\n  name: streaming\n", "policy.name"},
		{"adapter without url", "adapter:\n  type: redis\n", "adapter.url"},
		{"negative retries", "adapter:\n  type: webhook\n  url: http://x\n  retries: -1\n", "adapter.retries"},
		{"bad duration", "poll:\n  timeout: soon\n", "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load() error = %v, want not found", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PHYSLINK_TEST_KEY", "4242")
	t.Setenv("PHYSLINK_TEST_REDIS", "redis://cache:6379/1")

	cfg, err := Load(writeTemp(t, `shared_memory:
  key: ${PHYSLINK_TEST_KEY}
  transport: ${PHYSLINK_TEST_TRANSPORT:-memory}
adapter:
  type: redis
  url: ${PHYSLINK_TEST_REDIS}
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SharedMemory.Key != 4242 {
		t.Errorf("SharedMemory.Key = %d, want 4242", cfg.SharedMemory.Key)
	}
	assertEqual(t, "shared_memory.transport", cfg.SharedMemory.Transport, "memory")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "redis://cache:6379/1")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "")
}

func TestLoad_RetriesZeroDistinctFromUnset(t *testing.T) {
	cfg, err := Load(writeTemp(t, "adapter:\n  type: webhook\n  url: http://x\n  retries: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 0 {
		t.Errorf("Retries = %v, want explicit 0", cfg.Adapter.Retries)
	}

	cfg, err = Load(writeTemp(t, "adapter:\n  type: webhook\n  url: http://x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Adapter.Retries != nil {
		t.Errorf("Retries = %d, want nil", *cfg.Adapter.Retries)
	}
}

func TestLoadDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault() without file error = %v", err)
	}
	if cfg == nil || cfg.SharedMemory.Key != 0 {
		t.Errorf("LoadDefault() = %+v, want empty config", cfg)
	}

	if err := os.WriteFile(DefaultPath, []byte("shared_memory:\n  key: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SharedMemory.Key != 9 {
		t.Errorf("SharedMemory.Key = %d, want 9", cfg.SharedMemory.Key)
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "physlink.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}
