package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"venomshop/backend/internal/store"
	"venomshop/backend/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	databaseURL := os.Getenv("VENOM_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set VENOM_TEST_DATABASE_URL to run postgres integration test")
	}

	storetest.Run(t, func(t *testing.T) store.Repository {
		ctx := context.Background()
		s, err := New(ctx, databaseURL)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Close()
		})
		_, err = s.db.ExecContext(ctx, `TRUNCATE transactions, items RESTART IDENTITY`)
		require.NoError(t, err)
		return s
	})
}
