package messages

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	catalog := New(nil)

	rendered := catalog.Render(KeyAffiliateSuccess, map[string]string{
		"affiliate_url": "https://s.click.aliexpress.com/e/_abc123",
	})

	require.Contains(t, rendered, "https://s.click.aliexpress.com/e/_abc123")
	require.NotContains(t, rendered, "{affiliate_url}")
}

func TestRenderUnknownKey(t *testing.T) {
	catalog := New(nil)

	rendered := catalog.Render("no_such_key", nil)
	require.Equal(t, "Message not found: no_such_key", rendered)
}

func TestRenderLeavesUnmatchedPlaceholders(t *testing.T) {
	catalog := New(nil)
	require.NoError(t, catalog.Set(t.Context(), "custom", "Hello {name}, you have {count} left."))

	rendered := catalog.Render("custom", map[string]string{"name": "Dana"})
	require.Equal(t, "Hello Dana, you have {count} left.", rendered)
}

func TestSetOverridesDefault(t *testing.T) {
	catalog := New(nil)

	before, ok := catalog.Lookup(KeyRateLimit)
	require.True(t, ok)

	require.NoError(t, catalog.Set(t.Context(), KeyRateLimit, "Slow down, {retry_after} left."))

	after, ok := catalog.Lookup(KeyRateLimit)
	require.True(t, ok)
	require.NotEqual(t, before, after)
	require.Equal(t, "Slow down, {retry_after} left.", after)
}

func TestEntriesMarksOverrides(t *testing.T) {
	catalog := New(nil)
	require.NoError(t, catalog.Set(t.Context(), KeyHelp, "custom help"))
	require.NoError(t, catalog.Set(t.Context(), "zz_extra", "extra template"))

	entries := catalog.Entries()
	require.Len(t, entries, len(DefaultKeys())+1)

	byKey := map[string]Entry{}
	for _, entry := range entries {
		byKey[entry.Key] = entry
	}

	require.True(t, byKey[KeyHelp].Overridden)
	require.Equal(t, "custom help", byKey[KeyHelp].Template)
	require.False(t, byKey[KeyStart].Overridden)
	require.True(t, byKey["zz_extra"].Overridden)

	// Extra overrides sort after the default keys
	require.Equal(t, "zz_extra", entries[len(entries)-1].Key)
}

func TestDefaultKeysAllResolve(t *testing.T) {
	catalog := New(nil)
	for _, key := range DefaultKeys() {
		template, ok := catalog.Lookup(key)
		require.True(t, ok, "key %s should have a default", key)
		require.NotEmpty(t, template)
	}
}
