package holdings

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Ledger is the read-only handle the reconstructor needs, the full ledger
// satisfies it.
type Ledger interface {
	BalanceOf(owner common.Address) (uint64, error)
	TokenOfOwnerByIndex(owner common.Address, index uint64) (uint64, error)
	TokenURI(id uint64) (string, error)
}

type Holding struct {
	ID       uint64    `json:"id"`
	URI      string    `json:"uri"`
	Metadata *Metadata `json:"metadata"`
}

type Reconstructor struct {
	ledger  Ledger
	fetcher *MetadataFetcher
}

func NewReconstructor(ledger Ledger, fetcher *MetadataFetcher) *Reconstructor {
	return &Reconstructor{
		ledger:  ledger,
		fetcher: fetcher,
	}
}

// Holdings rebuilds the owner's current view in the ledger's enumeration
// order. A missing ledger handle yields an empty view, and a failed metadata
// fetch degrades only its own entry, the raw URI stays for display.
func (r *Reconstructor) Holdings(ctx context.Context, owner common.Address) ([]*Holding, error) {
	if r == nil || r.ledger == nil {
		return nil, nil
	}
	count, err := r.ledger.BalanceOf(owner)
	if err != nil {
		return nil, err
	}
	holdings := make([]*Holding, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := r.ledger.TokenOfOwnerByIndex(owner, i)
		if err != nil {
			return nil, err
		}
		uri, err := r.ledger.TokenURI(id)
		if err != nil {
			return nil, err
		}
		h := &Holding{ID: id, URI: uri}
		if r.fetcher != nil {
			md, err := r.fetcher.Fetch(ctx, uri)
			if err != nil {
				log.Warn().Err(err).Uint64("token", id).Str("uri", uri).Msg("metadata unavailable")
			} else {
				h.Metadata = md
			}
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}
