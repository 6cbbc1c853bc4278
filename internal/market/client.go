package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "nftbot/pkg/logx"
)

var (
	// ErrSourceUnavailable covers every upstream failure: transport errors,
	// non-2xx responses, GraphQL errors and undecodable payloads.
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)

const (
	DefaultSubgraphURL = "https://api.thegraph.com/subgraphs/name/pancakeswap/nft-market"
	DefaultMetadataURL = "https://nft.pancakeswap.com/api/v1"

	// PageSize is the number of most recent events fetched per kind.
	PageSize = 50

	maxBodyBytes = 8 << 20
)

// Config configures the marketplace client.
type Config struct {
	SubgraphURL string
	MetadataURL string
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
}

// Client reads sales, listings and token metadata from the marketplace APIs.
type Client struct {
	subgraphURL string
	metadataURL string
	userAgent   string
	http        *http.Client
	log         logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.SubgraphURL) == "" {
		cfg.SubgraphURL = DefaultSubgraphURL
	}
	if strings.TrimSpace(cfg.MetadataURL) == "" {
		cfg.MetadataURL = DefaultMetadataURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		subgraphURL: cfg.SubgraphURL,
		metadataURL: strings.TrimRight(cfg.MetadataURL, "/"),
		userAgent:   cfg.UserAgent,
		http:        hc,
		log:         log.With(logx.String("comp", "market")),
	}
}

const salesQuery = `query getCollectionActivity($collection: String!, $first: Int!) {
  transactions(first: $first, orderBy: timestamp, orderDirection: desc, where: { collection: $collection }) {
    id
    timestamp
    netPrice
    buyer { id }
    seller { id }
    nft {
      tokenId
      collection { id }
    }
  }
}`

const listingsQuery = `query getCollectionListings($collection: String!, $first: Int!) {
  nfts(first: $first, orderBy: updatedAt, orderDirection: desc, where: { collection: $collection, isTradable: true }) {
    tokenId
    currentAskPrice
    currentSeller
    updatedAt
    collection { id }
  }
}`

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type ref struct {
	ID string `json:"id"`
}

type wireTransaction struct {
	ID       string `json:"id"`
	NetPrice string `json:"netPrice"`
	Buyer    ref    `json:"buyer"`
	Seller   ref    `json:"seller"`
	NFT      struct {
		TokenID    string `json:"tokenId"`
		Collection ref    `json:"collection"`
	} `json:"nft"`
}

type wireNFT struct {
	TokenID         string `json:"tokenId"`
	CurrentAskPrice string `json:"currentAskPrice"`
	CurrentSeller   string `json:"currentSeller"`
	Collection      ref    `json:"collection"`
}

// FetchSales returns up to PageSize most recent sales, newest first.
func (c *Client) FetchSales(ctx context.Context, collectionID string) ([]SaleEvent, error) {
	collectionID, err := requireCollection(collectionID)
	if err != nil {
		return nil, err
	}

	var data struct {
		Transactions []wireTransaction `json:"transactions"`
	}
	if err := c.query(ctx, salesQuery, collectionID, &data); err != nil {
		return nil, fmt.Errorf("fetch sales: %w", err)
	}

	out := make([]SaleEvent, 0, len(data.Transactions))
	for _, tx := range data.Transactions {
		price, err := parsePrice(tx.NetPrice)
		if err != nil {
			return nil, fmt.Errorf("fetch sales: transaction %s: %w", tx.ID, err)
		}
		if tx.ID == "" || tx.NFT.TokenID == "" {
			return nil, fmt.Errorf("fetch sales: %w: transaction without id or token", ErrSourceUnavailable)
		}
		coll := tx.NFT.Collection.ID
		if coll == "" {
			coll = collectionID
		}
		out = append(out, SaleEvent{
			ID:           tx.ID,
			TokenID:      tx.NFT.TokenID,
			Seller:       tx.Seller.ID,
			Buyer:        tx.Buyer.ID,
			NetPrice:     price,
			CollectionID: coll,
		})
	}
	c.log.Debug("sales fetched", logx.String("collection", collectionID), logx.Int("count", len(out)))
	return out, nil
}

// FetchListings returns up to PageSize most recently updated tradable items.
func (c *Client) FetchListings(ctx context.Context, collectionID string) ([]ListingEvent, error) {
	collectionID, err := requireCollection(collectionID)
	if err != nil {
		return nil, err
	}

	var data struct {
		NFTs []wireNFT `json:"nfts"`
	}
	if err := c.query(ctx, listingsQuery, collectionID, &data); err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	out := make([]ListingEvent, 0, len(data.NFTs))
	for _, n := range data.NFTs {
		price, err := parsePrice(n.CurrentAskPrice)
		if err != nil {
			return nil, fmt.Errorf("fetch listings: token %s: %w", n.TokenID, err)
		}
		if n.TokenID == "" {
			return nil, fmt.Errorf("fetch listings: %w: listing without token", ErrSourceUnavailable)
		}
		coll := n.Collection.ID
		if coll == "" {
			coll = collectionID
		}
		out = append(out, ListingEvent{
			// Raw upstream text keeps ids stable across decimal formatting changes.
			ID:           ListingID(n.CurrentSeller, n.TokenID, n.CurrentAskPrice),
			TokenID:      n.TokenID,
			Seller:       n.CurrentSeller,
			AskPrice:     price,
			CollectionID: coll,
		})
	}
	c.log.Debug("listings fetched", logx.String("collection", collectionID), logx.Int("count", len(out)))
	return out, nil
}

// FetchTokenMetadata reads GET {metadata}/collections/{collection}/tokens/{token}.
func (c *Client) FetchTokenMetadata(ctx context.Context, collectionID, tokenID string) (TokenMetadata, error) {
	collectionID, err := requireCollection(collectionID)
	if err != nil {
		return TokenMetadata{}, err
	}
	if strings.TrimSpace(tokenID) == "" {
		return TokenMetadata{}, fmt.Errorf("%w: token id is empty", ErrInvalidInput)
	}

	u := c.metadataURL + "/collections/" + url.PathEscape(collectionID) + "/tokens/" + url.PathEscape(tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("fetch token %s metadata: %w", tokenID, err)
	}

	var env struct {
		Data *TokenMetadata `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return TokenMetadata{}, fmt.Errorf("fetch token %s metadata: %w: decode: %v", tokenID, ErrSourceUnavailable, err)
	}
	if env.Data == nil {
		return TokenMetadata{}, fmt.Errorf("fetch token %s metadata: %w: missing data", tokenID, ErrSourceUnavailable)
	}
	return *env.Data, nil
}

func (c *Client) query(ctx context.Context, query, collectionID string, out any) error {
	payload, err := json.Marshal(gqlRequest{
		Query:     query,
		Variables: map[string]any{"collection": collectionID, "first": PageSize},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.subgraphURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}

	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrSourceUnavailable, err)
	}
	if len(env.Errors) > 0 {
		return fmt.Errorf("%w: graphql: %s", ErrSourceUnavailable, env.Errors[0].Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		// No data is not an error.
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrSourceUnavailable, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}
	c.log.Trace("upstream call",
		logx.String("method", req.Method),
		logx.String("host", req.URL.Host),
		logx.Int("status", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSourceUnavailable, req.URL.Host, resp.StatusCode)
	}
	return body, nil
}

func requireCollection(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: collection id is empty", ErrInvalidInput)
	}
	return id, nil
}
