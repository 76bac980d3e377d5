package ratelimit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryCoversAllClasses(t *testing.T) {
	registry := DefaultRegistry()

	expected := map[string]int{
		ClassAI:      5,
		ClassUpload:  10,
		ClassWrite:   30,
		ClassRead:    60,
		ClassAdmin:   20,
		ClassWebhook: 100,
	}

	require.Len(t, registry.Tiers(), len(expected))
	for class, max := range expected {
		tier, ok := registry.Get(class)
		require.True(t, ok, "missing tier %s", class)
		require.Equal(t, max, tier.MaxOperations)
		require.Equal(t, time.Minute, tier.Window)
	}
}

func TestRegistryAppliesOverrides(t *testing.T) {
	registry, err := NewRegistry(map[string]TierOverride{
		ClassAI:   {MaxOperations: 2},
		ClassRead: {Window: 30 * time.Second},
	})
	require.NoError(t, err)

	ai, _ := registry.Get(ClassAI)
	require.Equal(t, 2, ai.MaxOperations)
	require.Equal(t, time.Minute, ai.Window)

	read, _ := registry.Get(ClassRead)
	require.Equal(t, 60, read.MaxOperations)
	require.Equal(t, 30*time.Second, read.Window)
}

func TestRegistryRejectsUnknownClass(t *testing.T) {
	_, err := NewRegistry(map[string]TierOverride{
		"premium": {MaxOperations: 1000},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "premium")
}

func TestRegistryRejectsInvalidOverride(t *testing.T) {
	_, err := NewRegistry(map[string]TierOverride{
		ClassAI: {Window: 100 * time.Millisecond},
	})
	require.Error(t, err)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	policy := []byte(`
tiers:
  ai:
    max_operations: 3
    window: 30s
  webhook:
    max_operations: 500
`)
	require.NoError(t, os.WriteFile(path, policy, 0o600))

	overrides, err := LoadPolicyFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, overrides[ClassAI].MaxOperations)
	require.Equal(t, 30*time.Second, overrides[ClassAI].Window)
	require.Equal(t, 500, overrides[ClassWebhook].MaxOperations)

	registry, err := NewRegistry(overrides)
	require.NoError(t, err)

	ai, _ := registry.Get(ClassAI)
	require.Equal(t, 3, ai.MaxOperations)
	require.Equal(t, 30*time.Second, ai.Window)
}

func TestLoadPolicyFileMissing(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestMergeOverrides(t *testing.T) {
	base := map[string]TierOverride{
		ClassAI:   {MaxOperations: 3, Window: 30 * time.Second},
		ClassRead: {MaxOperations: 10},
	}
	extra := map[string]TierOverride{
		ClassAI:    {MaxOperations: 7},
		ClassWrite: {Window: 2 * time.Minute},
	}

	merged := MergeOverrides(base, extra)

	// Extra's max wins, base's window survives.
	require.Equal(t, 7, merged[ClassAI].MaxOperations)
	require.Equal(t, 30*time.Second, merged[ClassAI].Window)

	// Classes present on only one side pass through.
	require.Equal(t, 10, merged[ClassRead].MaxOperations)
	require.Equal(t, 2*time.Minute, merged[ClassWrite].Window)

	// Inputs are untouched.
	require.Equal(t, 3, base[ClassAI].MaxOperations)
}
