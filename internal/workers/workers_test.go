package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      1,
			minExpect:  1,
			maxExpect:  1,
		},
		{
			name:       "Very low multiplier",
			multiplier: 0.01,
			minExpect:  1,
			maxExpect:  1 + int(float64(availableCPU)*0.01),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{name: "Valid override", envValue: "8", expected: 8},
		{name: "Override with limit", envValue: "20", limit: 10, expected: 10},
		{name: "Override below limit", envValue: "5", limit: 10, expected: 5},
		{name: "Non-numeric falls back", envValue: "invalid", expected: -1},
		{name: "Zero falls back", envValue: "0", expected: -1},
		{name: "Negative falls back", envValue: "-5", expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.envValue)

			got := Count(1.0, tt.limit)

			if tt.expected < 0 {
				if got != runtime.GOMAXPROCS(0) {
					t.Errorf("Count with invalid override = %d, want default %d", got, runtime.GOMAXPROCS(0))
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, OverrideEnv, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForInputs(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	ioWorkers := 2 * runtime.GOMAXPROCS(0)

	tests := []struct {
		name   string
		inputs int
		want   int
	}{
		{name: "zero inputs still one worker", inputs: 0, want: 1},
		{name: "single input", inputs: 1, want: 1},
		{name: "bounded by hardware", inputs: ioWorkers + 100, want: ioWorkers},
		{name: "bounded by inputs", inputs: 2, want: min(2, ioWorkers)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForInputs(tt.inputs); got != tt.want {
				t.Errorf("ForInputs(%d) = %d, want %d", tt.inputs, got, tt.want)
			}
		})
	}
}

func TestForInputsOverrideCappedByInputs(t *testing.T) {
	t.Setenv(OverrideEnv, "64")

	if got := ForInputs(3); got != 3 {
		t.Errorf("ForInputs(3) with override 64 = %d, want 3", got)
	}
}
