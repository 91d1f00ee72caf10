package store

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nfmint/nfm/ledger"
)

const (
	prefixTokenApproval    = "LEDGER:APPROVAL:TOKEN:"
	prefixOperatorApproval = "LEDGER:APPROVAL:OPERATOR:"
)

func (bs *BadgerStore) ReadTokenApproval(id uint64) (common.Address, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	key := append([]byte(prefixTokenApproval), idToBytes(id)...)
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return common.Address{}, nil
	} else if err != nil {
		return common.Address{}, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(val), nil
}

func (bs *BadgerStore) WriteTokenApproval(id uint64, spender common.Address, evt *ledger.Event) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		key := append([]byte(prefixTokenApproval), idToBytes(id)...)
		if spender == (common.Address{}) {
			err := txn.Delete(key)
			if err != nil {
				return err
			}
		} else {
			err := txn.Set(key, spender.Bytes())
			if err != nil {
				return err
			}
		}
		return bs.writeEvent(txn, evt)
	})
}

func (bs *BadgerStore) ReadOperatorApproval(owner, operator common.Address) (bool, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	_, err := txn.Get(buildOperatorKey(owner, operator))
	if err == badger.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (bs *BadgerStore) WriteOperatorApproval(owner, operator common.Address, approved bool, evt *ledger.Event) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		key := buildOperatorKey(owner, operator)
		if approved {
			err := txn.Set(key, []byte{1})
			if err != nil {
				return err
			}
		} else {
			err := txn.Delete(key)
			if err != nil {
				return err
			}
		}
		return bs.writeEvent(txn, evt)
	})
}

func buildOperatorKey(owner, operator common.Address) []byte {
	key := append([]byte(prefixOperatorApproval), owner.Bytes()...)
	return append(key, operator.Bytes()...)
}
