package moralis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"txfeed/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBaseURL = "https://deep-index.moralis.io/api/v2.2"

const (
	opWalletHistory  = "wallet_history"
	opERC20Transfers = "erc20_transfers"
	opNFTTransfers   = "nft_transfers"
	opWalletStats    = "wallet_stats"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the Moralis deep-index REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     trace.Tracer
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("moralis api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		tracer:     otel.Tracer("txfeed/moralis"),
	}, nil
}

func (c *Client) FetchTransactions(ctx context.Context, query domain.TransactionQuery) (domain.RawPage, error) {
	params := url.Values{}
	params.Set("chain", string(query.Chain))
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Cursor != "" {
		params.Set("cursor", query.Cursor)
	}

	var resp historyResponse
	if err := c.get(ctx, opWalletHistory, query.Address+"/verbose", params, &resp); err != nil {
		return domain.RawPage{}, err
	}

	page := domain.RawPage{
		Transactions: make([]domain.RawTransaction, 0, len(resp.Result)),
		Cursor:       resp.Cursor,
	}
	for _, item := range resp.Result {
		txn, err := item.toDomain()
		if err != nil {
			return domain.RawPage{}, malformed(opWalletHistory, err)
		}
		page.Transactions = append(page.Transactions, txn)
	}
	return page, nil
}

func (c *Client) FetchFungibleTransfers(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.FungibleTransfer], error) {
	var resp transferResponse[erc20Transfer]
	if err := c.get(ctx, opERC20Transfers, query.Address+"/erc20/transfers", transferParams(query), &resp); err != nil {
		return domain.TransferPage[domain.FungibleTransfer]{}, err
	}
	page := domain.TransferPage[domain.FungibleTransfer]{
		Records: make([]domain.FungibleTransfer, 0, len(resp.Result)),
		Cursor:  resp.Cursor,
	}
	for _, item := range resp.Result {
		block, err := parseBlock(item.BlockNumber)
		if err != nil {
			return domain.TransferPage[domain.FungibleTransfer]{}, malformed(opERC20Transfers, err)
		}
		page.Records = append(page.Records, domain.FungibleTransfer{
			TokenAddress:  strings.ToLower(item.Address),
			TokenName:     item.TokenName,
			TokenSymbol:   item.TokenSymbol,
			TokenDecimals: item.TokenDecimals,
			TxHash:        item.TransactionHash,
			BlockNumber:   block,
			Value:         item.Value,
			ValueDecimal:  item.ValueDecimal,
		})
	}
	return page, nil
}

func (c *Client) FetchNonFungibleTransfers(ctx context.Context, query domain.TransferQuery) (domain.TransferPage[domain.NonFungibleTransfer], error) {
	var resp transferResponse[nftTransfer]
	if err := c.get(ctx, opNFTTransfers, query.Address+"/nft/transfers", transferParams(query), &resp); err != nil {
		return domain.TransferPage[domain.NonFungibleTransfer]{}, err
	}
	page := domain.TransferPage[domain.NonFungibleTransfer]{
		Records: make([]domain.NonFungibleTransfer, 0, len(resp.Result)),
		Cursor:  resp.Cursor,
	}
	for _, item := range resp.Result {
		block, err := parseBlock(item.BlockNumber)
		if err != nil {
			return domain.TransferPage[domain.NonFungibleTransfer]{}, malformed(opNFTTransfers, err)
		}
		page.Records = append(page.Records, domain.NonFungibleTransfer{
			TokenAddress: strings.ToLower(item.TokenAddress),
			TxHash:       item.TransactionHash,
			BlockNumber:  block,
			TokenID:      item.TokenID,
			Amount:       item.Amount,
			ContractType: domain.TokenStandard(strings.ToUpper(item.ContractType)),
		})
	}
	return page, nil
}

// TransactionCount reads the wallet's total transaction count from the
// wallet stats endpoint.
func (c *Client) TransactionCount(ctx context.Context, chain domain.Chain, address string) (uint64, error) {
	params := url.Values{}
	params.Set("chain", string(chain))

	var resp statsResponse
	if err := c.get(ctx, opWalletStats, "wallets/"+address+"/stats", params, &resp); err != nil {
		return 0, err
	}
	total := strings.Trim(strings.TrimSpace(string(resp.Transactions.Total)), `"`)
	if total == "" {
		return 0, malformed(opWalletStats, errors.New("transactions.total is missing"))
	}
	count, err := strconv.ParseUint(total, 10, 64)
	if err != nil {
		return 0, malformed(opWalletStats, err)
	}
	return count, nil
}

func transferParams(query domain.TransferQuery) url.Values {
	params := url.Values{}
	params.Set("chain", string(query.Chain))
	params.Set("format", "decimal")
	params.Set("from_block", strconv.FormatUint(query.FromBlock, 10))
	params.Set("to_block", strconv.FormatUint(query.ToBlock, 10))
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Cursor != "" {
		params.Set("cursor", query.Cursor)
	}
	return params
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	ctx, span := c.tracer.Start(ctx, "moralis."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("moralis.path", path),
		attribute.Bool("moralis.cursor", params.Get("cursor") != ""),
	)

	err := c.do(ctx, op, path, params, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, op, path string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.UpstreamError{Op: op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformed(op, err)
	}
	return nil
}

func malformed(op string, err error) error {
	return &domain.UpstreamError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)}
}

func parseBlock(value string) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("block_number is missing")
	}
	return strconv.ParseUint(trimmed, 10, 64)
}
