package store

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/nfmint/nfm/ledger"
)

const prefixEventQueue = "LEDGER:EVENT:QUEUE:"

func (bs *BadgerStore) WriteLedgerState(key, val []byte, evt *ledger.Event) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		err := txn.Set(key, val)
		if err != nil {
			return err
		}
		return bs.writeEvent(txn, evt)
	})
}

func (bs *BadgerStore) ListEvents(limit int) ([]*ledger.Event, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixEventQueue)
	it := txn.NewIterator(opts)
	defer it.Close()

	var evts []*ledger.Event
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var evt ledger.Event
		err = msgpackUnmarshal(val, &evt)
		if err != nil {
			return nil, err
		}
		evts = append(evts, &evt)
		if len(evts) == limit {
			break
		}
	}
	return evts, nil
}

// the ledger clock guarantees distinct timestamps, so the queue key never
// collides within a single ledger
func (bs *BadgerStore) writeEvent(txn *badger.Txn, evt *ledger.Event) error {
	key := append([]byte(prefixEventQueue), tsToBytes(evt.CreatedAt)...)
	return txn.Set(key, msgpackMarshalPanic(evt))
}
