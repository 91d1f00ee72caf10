package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

type Store interface {
	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)
	WriteLedgerState(key, val []byte, evt *Event) error

	WriteMintedToken(t *Token, evt *Event) error
	ReadToken(id uint64) (*Token, error)
	WriteTokenTransfer(t *Token, from common.Address, evt *Event) error
	CountOwnerTokens(owner common.Address) (uint64, error)
	ListOwnerTokens(owner common.Address, limit int) ([]*Token, error)

	ReadTokenApproval(id uint64) (common.Address, error)
	WriteTokenApproval(id uint64, spender common.Address, evt *Event) error
	ReadOperatorApproval(owner, operator common.Address) (bool, error)
	WriteOperatorApproval(owner, operator common.Address, approved bool, evt *Event) error

	ListEvents(limit int) ([]*Event, error)
}
