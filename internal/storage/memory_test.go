package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "nftbot/pkg/logx"
)

func TestMemoryLedgerContract(t *testing.T) {
	testLedgerContract(t, NewMemory())
}

func TestMemoryLedgerWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	l := m.MemoryLedger(KindSales)
	require.NoError(t, l.Record(ctx, "a"))
	require.NoError(t, l.Record(ctx, "a"))
	require.NoError(t, l.Record(ctx, "b"))
	assert.Equal(t, 2, l.Writes())
	assert.Len(t, l.IDs(), 2)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "tinydb"}, logx.Logger{})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpenDefaultsToFile(t *testing.T) {
	st, err := Open(context.Background(), Config{Path: t.TempDir()}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, ok := st.(*fileStore)
	assert.True(t, ok)
}
