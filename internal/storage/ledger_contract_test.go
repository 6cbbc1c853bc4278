package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLedgerContract exercises the behavior every driver must share.
func testLedgerContract(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	sales, err := st.Ledger(KindSales)
	require.NoError(t, err)
	listings, err := st.Ledger(KindListings)
	require.NoError(t, err)

	ok, err := sales.Contains(ctx, "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sales.Record(ctx, "0xabc"))
	require.NoError(t, sales.Record(ctx, "0xabc"), "re-recording must be a no-op")

	ok, err = sales.Contains(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)

	// Kinds are independent.
	ok, err = listings.Contains(ctx, "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.ErrorIs(t, sales.Record(ctx, "  "), ErrInvalidInput)
	_, err = sales.Contains(ctx, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = st.Ledger(Kind("offers"))
	require.ErrorIs(t, err, ErrInvalidInput)
}
