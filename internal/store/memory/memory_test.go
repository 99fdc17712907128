package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/store"
	"venomshop/backend/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return New()
	})
}

func TestNewSeededHasBothKinds(t *testing.T) {
	var s *Store
	require.NotPanics(t, func() { s = NewSeeded() })
	ctx := context.Background()

	shop, err := s.ListItems(ctx, domain.KindShopProduct)
	require.NoError(t, err)
	assert.Len(t, shop, 3)

	laser, err := s.ListItems(ctx, domain.KindLaserMaterial)
	require.NoError(t, err)
	require.Len(t, laser, 3)
	assert.Equal(t, "Acrylic 3mm", laser[0].Name)
	assert.Equal(t, domain.SideBack, laser[0].Side)

	entries, err := s.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, len(shop)+len(laser))
	for _, entry := range entries {
		assert.Equal(t, domain.TxPurchase, entry.Type)
	}
}
