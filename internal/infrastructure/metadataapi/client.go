package metadataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"txfeed/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs batch contract lookups against the metadata service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("metadata api url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: base, httpClient: httpClient, tracer: otel.Tracer("txfeed/metadata")}, nil
}

type lookupRequest struct {
	Addresses []domain.ContractKey `json:"addresses"`
}

func (c *Client) FungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	return c.lookup(ctx, "erc20s", "getERC20s", keys)
}

func (c *Client) NonFungibleContracts(ctx context.Context, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	return c.lookup(ctx, "nfts", "getEthNFTs", keys)
}

// Ping issues an empty fungible lookup.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.lookup(ctx, "ping", "getERC20s", []domain.ContractKey{})
	return err
}

func (c *Client) lookup(ctx context.Context, op, path string, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	ctx, span := c.tracer.Start(ctx, "metadata."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("contracts.requested", len(keys)))

	out, err := c.post(ctx, "metadata_"+op, path, keys)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("contracts.found", len(out)))
	return out, nil
}

func (c *Client) post(ctx context.Context, op, path string, keys []domain.ContractKey) ([]domain.ContractMetadata, error) {
	payload, err := json.Marshal(lookupRequest{Addresses: keys})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.UpstreamError{Op: op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}
	var out []domain.ContractMetadata
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.UpstreamError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)}
	}
	return out, nil
}
