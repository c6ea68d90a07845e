//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bargainbliss/linkbot/internal/config"
)

func TestTemplateCRUD(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	defer store.Close() // nolint:errcheck // test cleanup

	missing, err := store.GetTemplate(ctx, "rate_limit")
	require.NoError(t, err)
	require.Nil(t, missing)

	now := time.Now().UTC()
	require.NoError(t, store.UpsertTemplate(ctx, "rate_limit", "Easy there, {retry_after} to go.", now))

	record, err := store.GetTemplate(ctx, "rate_limit")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "Easy there, {retry_after} to go.", record.Template)

	require.NoError(t, store.UpsertTemplate(ctx, "help", "Send me a product link.", now))

	records, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "help", records[0].Key)

	require.NoError(t, store.DeleteTemplate(ctx, "rate_limit"))
	gone, err := store.GetTemplate(ctx, "rate_limit")
	require.NoError(t, err)
	require.Nil(t, gone)
}
