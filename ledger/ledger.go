package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const (
	RoyaltyBasisPoints = 500
	royaltyDenominator = 10000

	propertyMarketplace = "LEDGER:PROPERTY:MARKETPLACE"
	propertyAdmin       = "LEDGER:PROPERTY:ADMIN"
)

// PropertyNextTokenID is advanced by the store in the same transaction that
// persists a minted token.
const PropertyNextTokenID = "LEDGER:PROPERTY:TOKEN:NEXT"

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Ledger is the authoritative registry of token existence, ownership and
// URIs. Mutations are serialized and each one is persisted atomically, a
// rejected call leaves no partial state behind.
type Ledger struct {
	sync.RWMutex
	store       Store
	clock       *Clock
	admin       common.Address
	marketplace common.Address
	next        uint64
}

func New(store Store, admin common.Address) (*Ledger, error) {
	clock, err := NewClock(store)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		store: store,
		clock: clock,
	}

	stored, err := readAddressProperty(store, propertyAdmin)
	if err != nil {
		return nil, err
	}
	switch {
	case stored != (common.Address{}):
		l.admin = stored
	case admin != (common.Address{}):
		err = store.WriteProperty([]byte(propertyAdmin), admin.Bytes())
		if err != nil {
			return nil, err
		}
		l.admin = admin
	default:
		return nil, fmt.Errorf("ledger admin not configured")
	}

	l.marketplace, err = readAddressProperty(store, propertyMarketplace)
	if err != nil {
		return nil, err
	}

	bs, err := store.ReadProperty([]byte(PropertyNextTokenID))
	if err != nil {
		return nil, err
	}
	if len(bs) == 8 {
		l.next = binary.BigEndian.Uint64(bs)
	}
	return l, nil
}

// Mint assigns the next sequential token id to the caller. The uri is
// accepted as an opaque string, an empty or malformed value is fine here.
func (l *Ledger) Mint(caller common.Address, uri string) (uint64, error) {
	l.Lock()
	defer l.Unlock()

	now := l.clock.Now()
	t := &Token{
		ID:         l.next,
		Owner:      caller,
		URI:        uri,
		CreatedAt:  now,
		AcquiredAt: now,
	}
	evt := &Event{
		Kind:      EventMinted,
		TokenID:   t.ID,
		From:      caller,
		To:        caller,
		URI:       uri,
		CreatedAt: now,
	}
	err := l.store.WriteMintedToken(t, evt)
	if err != nil {
		return 0, err
	}
	l.next = t.ID + 1
	return t.ID, nil
}

func (l *Ledger) SetMarketplace(caller, marketplace common.Address) error {
	l.Lock()
	defer l.Unlock()

	if caller != l.admin {
		return ErrUnauthorized
	}
	evt := &Event{
		Kind:      EventMarketplaceUpdated,
		From:      caller,
		To:        marketplace,
		CreatedAt: l.clock.Now(),
	}
	err := l.store.WriteLedgerState([]byte(propertyMarketplace), marketplace.Bytes(), evt)
	if err != nil {
		return err
	}
	l.marketplace = marketplace
	return nil
}

func (l *Ledger) TransferAdmin(caller, admin common.Address) error {
	l.Lock()
	defer l.Unlock()

	if caller != l.admin {
		return ErrUnauthorized
	}
	if admin == (common.Address{}) {
		return fmt.Errorf("invalid admin %s", admin)
	}
	evt := &Event{
		Kind:      EventAdminTransferred,
		From:      caller,
		To:        admin,
		CreatedAt: l.clock.Now(),
	}
	err := l.store.WriteLedgerState([]byte(propertyAdmin), admin.Bytes(), evt)
	if err != nil {
		return err
	}
	l.admin = admin
	return nil
}

func (l *Ledger) TransferFrom(caller, from, to common.Address, id uint64) error {
	l.Lock()
	defer l.Unlock()

	t, err := l.store.ReadToken(id)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTokenNotFound
	}
	if t.Owner != from {
		return fmt.Errorf("token %d not owned by %s", id, from)
	}
	ok, err := l.canSpend(caller, t)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}

	prev := t.Owner
	t.Owner = to
	t.AcquiredAt = l.clock.Now()
	evt := &Event{
		Kind:      EventTransfer,
		TokenID:   id,
		From:      prev,
		To:        to,
		CreatedAt: t.AcquiredAt,
	}
	return l.store.WriteTokenTransfer(t, prev, evt)
}

// canSpend makes the authorization order explicit, the marketplace account
// overrides every per-token and per-operator grant.
func (l *Ledger) canSpend(caller common.Address, t *Token) (bool, error) {
	if caller == t.Owner {
		return true, nil
	}
	if l.marketplace != (common.Address{}) && caller == l.marketplace {
		return true, nil
	}
	spender, err := l.store.ReadTokenApproval(t.ID)
	if err != nil {
		return false, err
	}
	if spender != (common.Address{}) && spender == caller {
		return true, nil
	}
	return l.store.ReadOperatorApproval(t.Owner, caller)
}

func (l *Ledger) Approve(caller, spender common.Address, id uint64) error {
	l.Lock()
	defer l.Unlock()

	t, err := l.store.ReadToken(id)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTokenNotFound
	}
	if caller != t.Owner {
		ok, err := l.store.ReadOperatorApproval(t.Owner, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnauthorized
		}
	}
	evt := &Event{
		Kind:      EventApproval,
		TokenID:   id,
		From:      t.Owner,
		To:        spender,
		CreatedAt: l.clock.Now(),
	}
	return l.store.WriteTokenApproval(id, spender, evt)
}

func (l *Ledger) SetApprovalForAll(caller, operator common.Address, approved bool) error {
	l.Lock()
	defer l.Unlock()

	if caller == operator {
		return fmt.Errorf("approve to caller %s", caller)
	}
	evt := &Event{
		Kind:      EventApprovalForAll,
		From:      caller,
		To:        operator,
		Approved:  approved,
		CreatedAt: l.clock.Now(),
	}
	return l.store.WriteOperatorApproval(caller, operator, approved, evt)
}

func (l *Ledger) IsApprovedForAll(owner, operator common.Address) (bool, error) {
	l.RLock()
	defer l.RUnlock()

	if l.marketplace != (common.Address{}) && operator == l.marketplace {
		return true, nil
	}
	return l.store.ReadOperatorApproval(owner, operator)
}

func (l *Ledger) GetApproved(id uint64) (common.Address, error) {
	t, err := l.store.ReadToken(id)
	if err != nil {
		return common.Address{}, err
	}
	if t == nil {
		return common.Address{}, ErrTokenNotFound
	}
	return l.store.ReadTokenApproval(id)
}

func (l *Ledger) OwnerOf(id uint64) (common.Address, error) {
	t, err := l.store.ReadToken(id)
	if err != nil {
		return common.Address{}, err
	}
	if t == nil {
		return common.Address{}, ErrTokenNotFound
	}
	return t.Owner, nil
}

func (l *Ledger) TokenURI(id uint64) (string, error) {
	t, err := l.store.ReadToken(id)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", ErrTokenNotFound
	}
	return t.URI, nil
}

func (l *Ledger) BalanceOf(owner common.Address) (uint64, error) {
	return l.store.CountOwnerTokens(owner)
}

// TokenOfOwnerByIndex enumerates an owner's tokens in acquisition order.
func (l *Ledger) TokenOfOwnerByIndex(owner common.Address, index uint64) (uint64, error) {
	tokens, err := l.store.ListOwnerTokens(owner, int(index)+1)
	if err != nil {
		return 0, err
	}
	if uint64(len(tokens)) <= index {
		return 0, fmt.Errorf("owner %s index %d out of range", owner, index)
	}
	return tokens[index].ID, nil
}

func (l *Ledger) TokenByIndex(index uint64) (uint64, error) {
	l.RLock()
	defer l.RUnlock()

	if index >= l.next {
		return 0, ErrTokenNotFound
	}
	return index, nil
}

func (l *Ledger) TotalSupply() uint64 {
	l.RLock()
	defer l.RUnlock()

	return l.next
}

// RoyaltyInfo is a pure computation, it never checks the token exists.
func (l *Ledger) RoyaltyInfo(id uint64, salePrice *big.Int) (common.Address, *big.Int) {
	amount := new(big.Int).Mul(salePrice, big.NewInt(RoyaltyBasisPoints))
	amount = amount.Div(amount, big.NewInt(royaltyDenominator))
	return l.Admin(), amount
}

func (l *Ledger) Admin() common.Address {
	l.RLock()
	defer l.RUnlock()

	return l.admin
}

func (l *Ledger) Marketplace() common.Address {
	l.RLock()
	defer l.RUnlock()

	return l.marketplace
}

func (l *Ledger) Events(limit int) ([]*Event, error) {
	return l.store.ListEvents(limit)
}

func readAddressProperty(store Store, key string) (common.Address, error) {
	bs, err := store.ReadProperty([]byte(key))
	if err != nil {
		return common.Address{}, err
	}
	if len(bs) == 0 {
		return common.Address{}, nil
	}
	return common.BytesToAddress(bs), nil
}
