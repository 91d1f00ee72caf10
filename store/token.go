package store

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nfmint/nfm/ledger"
)

const (
	prefixTokenPayload = "LEDGER:TOKEN:PAYLOAD:"
	prefixTokenOwner   = "LEDGER:TOKEN:OWNER:"
)

func (bs *BadgerStore) WriteMintedToken(t *ledger.Token, evt *ledger.Event) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		old, err := bs.readToken(txn, t.ID)
		if err != nil {
			return err
		} else if old != nil {
			panic(t.ID)
		}

		key := append([]byte(prefixTokenPayload), idToBytes(t.ID)...)
		err = txn.Set(key, msgpackMarshalPanic(t))
		if err != nil {
			return err
		}
		err = txn.Set(buildOwnerTimedKey(t), []byte{1})
		if err != nil {
			return err
		}
		err = txn.Set([]byte(ledger.PropertyNextTokenID), idToBytes(t.ID+1))
		if err != nil {
			return err
		}
		return bs.writeEvent(txn, evt)
	})
}

func (bs *BadgerStore) ReadToken(id uint64) (*ledger.Token, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return bs.readToken(txn, id)
}

func (bs *BadgerStore) WriteTokenTransfer(t *ledger.Token, from common.Address, evt *ledger.Event) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		old, err := bs.readToken(txn, t.ID)
		if err != nil {
			return err
		}
		if old == nil || old.Owner != from {
			panic(t.ID)
		}

		err = txn.Delete(buildOwnerTimedKey(old))
		if err != nil {
			return err
		}
		key := append([]byte(prefixTokenPayload), idToBytes(t.ID)...)
		err = txn.Set(key, msgpackMarshalPanic(t))
		if err != nil {
			return err
		}
		err = txn.Set(buildOwnerTimedKey(t), []byte{1})
		if err != nil {
			return err
		}
		key = append([]byte(prefixTokenApproval), idToBytes(t.ID)...)
		err = txn.Delete(key)
		if err != nil {
			return err
		}
		return bs.writeEvent(txn, evt)
	})
}

func (bs *BadgerStore) CountOwnerTokens(owner common.Address) (uint64, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = append([]byte(prefixTokenOwner), owner.Bytes()...)
	it := txn.NewIterator(opts)
	defer it.Close()

	var count uint64
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		count += 1
	}
	return count, nil
}

func (bs *BadgerStore) ListOwnerTokens(owner common.Address, limit int) ([]*ledger.Token, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = append([]byte(prefixTokenOwner), owner.Bytes()...)
	it := txn.NewIterator(opts)
	defer it.Close()

	var tokens []*ledger.Token
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		key := it.Item().Key()
		id := bytesToID(key[len(opts.Prefix)+8:])
		t, err := bs.readToken(txn, id)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
		if len(tokens) == limit {
			break
		}
	}
	return tokens, nil
}

func (bs *BadgerStore) readToken(txn *badger.Txn, id uint64) (*ledger.Token, error) {
	key := append([]byte(prefixTokenPayload), idToBytes(id)...)
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var t ledger.Token
	err = msgpackUnmarshal(val, &t)
	return &t, err
}

func buildOwnerTimedKey(t *ledger.Token) []byte {
	key := append([]byte(prefixTokenOwner), t.Owner.Bytes()...)
	key = append(key, tsToBytes(t.AcquiredAt)...)
	return append(key, idToBytes(t.ID)...)
}
