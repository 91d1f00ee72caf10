package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	EventMinted             = "MINTED"
	EventTransfer           = "TRANSFER"
	EventApproval           = "APPROVAL"
	EventApprovalForAll     = "APPROVAL:ALL"
	EventMarketplaceUpdated = "MARKETPLACE"
	EventAdminTransferred   = "ADMIN"
)

type Token struct {
	ID         uint64
	Owner      common.Address
	URI        string
	CreatedAt  time.Time
	AcquiredAt time.Time
}

// Event is the durable record emitted by every ledger mutation, the
// append-only queue is kept in acquisition order by the ledger clock.
type Event struct {
	Kind      string
	TokenID   uint64
	From      common.Address
	To        common.Address
	URI       string `msgpack:",omitempty"`
	Approved  bool
	CreatedAt time.Time
}
