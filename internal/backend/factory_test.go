package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashledger/internal/config"
	"cashledger/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = "/tmp/x.db"

	got, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, got.Type)
	assert.Equal(t, "/tmp/x.db", got.SQLiteDBPath)

	cfg.DataBackend = "postgres"
	_, err = FromAppConfig(cfg)
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.ElementsMatch(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "ledger.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			require.NoError(t, err)
			require.NotNil(t, res.Store)
			t.Cleanup(func() { _ = res.Cleanup() })

			require.NoError(t, res.Store.SetBudget(ctx, "a@example.com", core.Money{Cents: 5000}))
			got, err := res.Store.GetBudget(ctx, "a@example.com")
			require.NoError(t, err)
			assert.True(t, got.Set)
			assert.Equal(t, int64(5000), got.Ceiling.Cents)
		})
	}

	_, err := f.CreateBackend(ctx, Config{Type: "nope"})
	assert.Error(t, err)
}
