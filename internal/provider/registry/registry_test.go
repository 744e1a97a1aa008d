package registry

import (
	"context"
	"log/slog"
	"testing"

	"cabinet/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopRegistration() ProviderRegistration {
	return ProviderRegistration{
		ConfigCheck: func(map[string]any) error { return nil },
		Initializer: func(context.Context, map[string]any, *slog.Logger) (storage.Storage, error) {
			return nil, nil
		},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	RegisterProvider("Fake-Registry", noopRegistration())
	t.Cleanup(func() { Unregister("fake-registry") })

	assert.True(t, IsSupported("FAKE-registry"))
	assert.Contains(t, GetSupportedProviders(), "fake-registry")

	_, ok := GetRegistration("fake-registry")
	assert.True(t, ok)
	_, ok = GetRegistration("missing")
	assert.False(t, ok)
}

func TestRegisterPanics(t *testing.T) {
	RegisterProvider("dup", noopRegistration())
	t.Cleanup(func() { Unregister("dup") })

	assert.Panics(t, func() { RegisterProvider("DUP", noopRegistration()) })
	assert.Panics(t, func() { RegisterProvider("no-check", ProviderRegistration{Initializer: noopRegistration().Initializer}) })
	assert.Panics(t, func() { RegisterProvider("no-init", ProviderRegistration{ConfigCheck: noopRegistration().ConfigCheck}) })
}

func TestSupportedProvidersSorted(t *testing.T) {
	RegisterProvider("zz-last", noopRegistration())
	RegisterProvider("aa-first", noopRegistration())
	t.Cleanup(func() {
		Unregister("zz-last")
		Unregister("aa-first")
	})

	got := GetSupportedProviders()
	require.GreaterOrEqual(t, len(got), 2)
	assert.IsNonDecreasing(t, got)
}
