package debug

import (
	"math/rand"
	"os"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pbtConfig() *quick.Config {
	maxCount := 500
	if v := os.Getenv("PBT_MAX_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxCount = n
		}
	}
	return &quick.Config{MaxCount: maxCount}
}

// envFlag is a value an operator might put in a DIDCHAIN_DEBUG* variable.
type envFlag string

func (envFlag) Generate(r *rand.Rand, _ int) reflect.Value {
	values := []string{"", "1", "0", "t", "F", "true", "FALSE", "yes", "on", " true"}
	return reflect.ValueOf(envFlag(values[r.Intn(len(values))]))
}

// Fault injection always turns debug mode on, and only valid flags count.
func TestInit_PBT_FaultsImplyDebug(t *testing.T) {
	property := func(debugFlag, faultsFlag envFlag) bool {
		t.Setenv("DIDCHAIN_DEBUG", string(debugFlag))
		t.Setenv("DIDCHAIN_DEBUG_FAULTS", string(faultsFlag))
		Init()

		faults := parseBool(string(faultsFlag), false)
		return Active.Faults == faults &&
			Active.Enabled == (parseBool(string(debugFlag), false) || faults) &&
			IsEnabled() == Active.Enabled
	}
	require.NoError(t, quick.Check(property, pbtConfig()))
}

// A set, non-empty variable wins over the default; anything else falls back.
func TestGetEnvOrDefault_PBT(t *testing.T) {
	const key = "DIDCHAIN_PBT_ENV"

	property := func(value, fallback string) bool {
		if strings.ContainsAny(value, "\x00=") {
			return true
		}
		t.Setenv(key, value)
		got := getEnvOrDefault(key, fallback)
		if value == "" {
			return got == fallback
		}
		return got == value
	}
	require.NoError(t, quick.Check(property, pbtConfig()))

	require.NoError(t, os.Unsetenv(key))
	assert.Equal(t, "text", getEnvOrDefault(key, "text"))
}

func TestInit_FaultsImplyDebug(t *testing.T) {
	tests := []struct {
		name        string
		debug       string
		faults      string
		wantEnabled bool
		wantFaults  bool
	}{
		{"nothing set", "", "", false, false},
		{"debug only", "true", "", true, false},
		{"faults only", "", "1", true, true},
		{"invalid debug falls back to default", "yes", "", false, false},
		{"debug off but faults on", "false", "true", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DIDCHAIN_DEBUG", tt.debug)
			t.Setenv("DIDCHAIN_DEBUG_FAULTS", tt.faults)
			t.Setenv("DIDCHAIN_DEBUG_LOG_FORMAT", "json")

			Init()

			assert.Equal(t, tt.wantEnabled, Active.Enabled)
			assert.Equal(t, tt.wantFaults, Active.Faults)
			assert.Equal(t, "json", Active.LogFormat)
		})
	}
}
