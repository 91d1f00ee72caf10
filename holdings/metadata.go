package holdings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const ipfsScheme = "ipfs://"

// Attribute keeps the raw JSON value, metadata documents in the wild carry
// strings, numbers and worse.
type Attribute struct {
	TraitType string          `json:"trait_type"`
	Value     json.RawMessage `json:"value"`
}

type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

type MetadataFetcher struct {
	client  *resty.Client
	gateway string
}

func NewMetadataFetcher(gateway string, timeout time.Duration) *MetadataFetcher {
	client := resty.New().SetTimeout(timeout)
	return &MetadataFetcher{
		client:  client,
		gateway: strings.TrimSuffix(gateway, "/"),
	}
}

// GatewayURL maps ipfs token URIs to the configured HTTP gateway, anything
// else goes through untouched.
func (mf *MetadataFetcher) GatewayURL(uri string) string {
	if strings.HasPrefix(uri, ipfsScheme) {
		return mf.gateway + "/ipfs/" + strings.TrimPrefix(uri, ipfsScheme)
	}
	return uri
}

func (mf *MetadataFetcher) Fetch(ctx context.Context, uri string) (*Metadata, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty token uri")
	}
	resp, err := mf.client.R().SetContext(ctx).Get(mf.GatewayURL(uri))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("metadata %s => %d", uri, resp.StatusCode())
	}
	var md Metadata
	err = json.Unmarshal(resp.Body(), &md)
	if err != nil {
		return nil, err
	}
	return &md, nil
}
