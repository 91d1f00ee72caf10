package holdings_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nfmint/nfm/holdings"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

type fakeLedger struct {
	owned map[common.Address][]uint64
	uris  map[uint64]string
}

func (fl *fakeLedger) BalanceOf(owner common.Address) (uint64, error) {
	return uint64(len(fl.owned[owner])), nil
}

func (fl *fakeLedger) TokenOfOwnerByIndex(owner common.Address, index uint64) (uint64, error) {
	tokens := fl.owned[owner]
	if index >= uint64(len(tokens)) {
		return 0, fmt.Errorf("owner %s index %d out of range", owner, index)
	}
	return tokens[index], nil
}

func (fl *fakeLedger) TokenURI(id uint64) (string, error) {
	uri, found := fl.uris[id]
	if !found {
		return "", fmt.Errorf("token not found")
	}
	return uri, nil
}

func TestHoldingsEmpty(t *testing.T) {
	require := require.New(t)

	fl := &fakeLedger{owned: map[common.Address][]uint64{}, uris: map[uint64]string{}}
	rec := holdings.NewReconstructor(fl, nil)
	view, err := rec.Holdings(context.Background(), alice)
	require.Nil(err)
	require.Empty(view)
}

func TestHoldingsNilLedger(t *testing.T) {
	require := require.New(t)

	rec := holdings.NewReconstructor(nil, nil)
	view, err := rec.Holdings(context.Background(), alice)
	require.Nil(err)
	require.Empty(view)
}

func TestHoldingsPartialMetadataFailure(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.json":
			fmt.Fprint(w, `{"name":"Token A","description":"first","image":"ipfs://QmImage","attributes":[{"trait_type":"color","value":"blue"},{"trait_type":"level","value":3}]}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	fl := &fakeLedger{
		owned: map[common.Address][]uint64{alice: {0, 1}},
		uris: map[uint64]string{
			0: srv.URL + "/good.json",
			1: srv.URL + "/gone.json",
		},
	}
	fetcher := holdings.NewMetadataFetcher("https://ipfs.io", time.Second)
	rec := holdings.NewReconstructor(fl, fetcher)

	view, err := rec.Holdings(context.Background(), alice)
	require.Nil(err)
	require.Len(view, 2)

	require.Equal(uint64(0), view[0].ID)
	require.NotNil(view[0].Metadata)
	require.Equal("Token A", view[0].Metadata.Name)
	require.Equal("ipfs://QmImage", view[0].Metadata.Image)
	require.Len(view[0].Metadata.Attributes, 2)
	require.Equal("color", view[0].Metadata.Attributes[0].TraitType)
	require.Equal(`"blue"`, string(view[0].Metadata.Attributes[0].Value))
	require.Equal("3", string(view[0].Metadata.Attributes[1].Value))

	// the failed entry keeps the raw uri for display
	require.Equal(uint64(1), view[1].ID)
	require.Nil(view[1].Metadata)
	require.Equal(srv.URL+"/gone.json", view[1].URI)
}

func TestHoldingsMalformedMetadata(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	fl := &fakeLedger{
		owned: map[common.Address][]uint64{bob: {0}},
		uris:  map[uint64]string{0: srv.URL + "/t.json"},
	}
	fetcher := holdings.NewMetadataFetcher("https://ipfs.io", time.Second)
	rec := holdings.NewReconstructor(fl, fetcher)

	view, err := rec.Holdings(context.Background(), bob)
	require.Nil(err)
	require.Len(view, 1)
	require.Nil(view[0].Metadata)
	require.Equal(srv.URL+"/t.json", view[0].URI)
}

func TestGatewayURL(t *testing.T) {
	require := require.New(t)

	fetcher := holdings.NewMetadataFetcher("https://gateway.test/", time.Second)
	require.Equal("https://gateway.test/ipfs/QmHash/1.json", fetcher.GatewayURL("ipfs://QmHash/1.json"))
	require.Equal("https://example.com/t.json", fetcher.GatewayURL("https://example.com/t.json"))
	require.Equal("", fetcher.GatewayURL(""))
}

func TestFetchEmptyURI(t *testing.T) {
	require := require.New(t)

	fetcher := holdings.NewMetadataFetcher("https://ipfs.io", time.Second)
	_, err := fetcher.Fetch(context.Background(), "")
	require.NotNil(err)
}
