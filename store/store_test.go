package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nfmint/nfm/ledger"
	"github.com/nfmint/nfm/store"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *store.BadgerStore {
	db, err := store.OpenBadger(context.Background(), t.TempDir())
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProperties(t *testing.T) {
	require := require.New(t)
	db := testStore(t)

	val, err := db.ReadProperty([]byte("missing"))
	require.Nil(err)
	require.Nil(val)

	err = db.WriteProperty([]byte("key"), []byte("val"))
	require.Nil(err)
	val, err = db.ReadProperty([]byte("key"))
	require.Nil(err)
	require.Equal([]byte("val"), val)
}

func TestTokenRoundTrip(t *testing.T) {
	require := require.New(t)
	db := testStore(t)

	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	now := time.Now()
	tk := &ledger.Token{
		ID:         0,
		Owner:      owner,
		URI:        "ipfs://QmToken",
		CreatedAt:  now,
		AcquiredAt: now,
	}
	evt := &ledger.Event{Kind: ledger.EventMinted, TokenID: 0, From: owner, To: owner, URI: tk.URI, CreatedAt: now}
	err := db.WriteMintedToken(tk, evt)
	require.Nil(err)

	out, err := db.ReadToken(0)
	require.Nil(err)
	require.Equal(tk.ID, out.ID)
	require.Equal(tk.Owner, out.Owner)
	require.Equal(tk.URI, out.URI)

	out, err = db.ReadToken(1)
	require.Nil(err)
	require.Nil(out)

	next, err := db.ReadProperty([]byte(ledger.PropertyNextTokenID))
	require.Nil(err)
	require.Len(next, 8)

	count, err := db.CountOwnerTokens(owner)
	require.Nil(err)
	require.Equal(uint64(1), count)

	// re-minting an existing id is a broken counter, not an error
	require.Panics(func() {
		db.WriteMintedToken(tk, evt)
	})
}

func TestListOwnerTokensLimit(t *testing.T) {
	require := require.New(t)
	db := testStore(t)

	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	for i := uint64(0); i < 4; i++ {
		now := time.Now().Add(time.Duration(i) * time.Millisecond)
		tk := &ledger.Token{ID: i, Owner: owner, URI: "ipfs://QmToken", CreatedAt: now, AcquiredAt: now}
		evt := &ledger.Event{Kind: ledger.EventMinted, TokenID: i, From: owner, To: owner, CreatedAt: now}
		require.Nil(db.WriteMintedToken(tk, evt))
	}

	tokens, err := db.ListOwnerTokens(owner, 2)
	require.Nil(err)
	require.Len(tokens, 2)
	require.Equal(uint64(0), tokens[0].ID)
	require.Equal(uint64(1), tokens[1].ID)

	tokens, err = db.ListOwnerTokens(owner, 0)
	require.Nil(err)
	require.Len(tokens, 4)
}
