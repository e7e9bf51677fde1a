package memory

import "testing"

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestResolveLimit(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantSource string
		wantLimit  int64
		wantRatio  float64
	}{
		{
			name:       "nothing set",
			env:        map[string]string{},
			wantSource: "none",
		},
		{
			name:       "container limit with default ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  850,
			wantRatio:  DefaultMemoryRatio,
		},
		{
			name:       "container limit with custom ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "0.5"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  500,
			wantRatio:  0.5,
		},
		{
			name:       "out of range ratio falls back",
			env:        map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "1.5"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  850,
			wantRatio:  DefaultMemoryRatio,
		},
		{
			name:       "unparseable ratio falls back",
			env:        map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "half"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  850,
			wantRatio:  DefaultMemoryRatio,
		},
		{
			name:       "invalid container limit",
			env:        map[string]string{"MEMORY_LIMIT": "lots"},
			wantSource: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveLimit(envMap(tt.env))

			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.wantLimit)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Configured != (tt.wantLimit > 0) {
				t.Errorf("Configured = %v, want %v", got.Configured, tt.wantLimit > 0)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
