package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("PHYSLINK_KEY", "12347")
	t.Setenv("PHYSLINK_EMPTY", "")
	t.Setenv("PHYSLINK_HOST", "cache")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set", "key: ${PHYSLINK_KEY}", "key: 12347"},
		{"unset", "key: ${PHYSLINK_UNSET_12345}", "key: "},
		{"default when unset", "transport: ${PHYSLINK_UNSET_12345:-sysv}", "transport: sysv"},
		{"default ignored when set", "key: ${PHYSLINK_KEY:-1}", "key: 12347"},
		{"default when empty", "key: ${PHYSLINK_EMPTY:-7}", "key: 7"},
		{"multiple", "redis://${PHYSLINK_HOST}:${PHYSLINK_UNSET_12345:-6379}/0", "redis://cache:6379/0"},
		{"no vars", "no variables here", "no variables here"},
		{"bare dollar untouched", "cost: $5 and $PHYSLINK_KEY", "cost: $5 and $PHYSLINK_KEY"},
		{"nested in yaml", "adapter:\n  url: http://${PHYSLINK_HOST}/hook", "adapter:\n  url: http://cache/hook"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
