// Package eth implements chain.Client for EVM networks on top of
// go-ethereum's ethclient.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/custody/internal/chain"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const (
	// GasLimitNativeTransfer is the gas limit for a plain value transfer.
	GasLimitNativeTransfer uint64 = 21000

	// GasLimitTokenTransfer is the floor gas limit for an ERC-20 transfer.
	GasLimitTokenTransfer uint64 = 65000

	// DefaultPollInterval is how often AwaitInclusion asks for a receipt.
	DefaultPollInterval = 2 * time.Second
)

// ErrEndpointRequired indicates the network has no RPC endpoint.
var ErrEndpointRequired = &custodyerr.CustodyError{
	Code:     "ETH_ENDPOINT_REQUIRED",
	Message:  "RPC endpoint is required",
	ExitCode: custodyerr.ExitConfig,
}

// Options tunes a Client. The zero value is usable.
type Options struct {
	// Limiter throttles calls per endpoint. Defaults to chain.DefaultRateLimiter.
	Limiter *chain.RateLimiter

	// Retry applies to read calls. Defaults to chain.DefaultRetryConfig.
	Retry *chain.RetryConfig

	// PollInterval is the receipt polling period.
	PollInterval time.Duration

	// HTTPClient overrides the transport used for HTTP endpoints.
	HTTPClient *http.Client
}

// Client is an EVM chain client bound to one network.
type Client struct {
	network chain.Network
	opts    Options

	mu  sync.Mutex
	eth *ethclient.Client
}

// Compile-time interface check
var _ chain.Client = (*Client)(nil)

// NewClient creates a client for network. The connection is opened lazily.
func NewClient(network chain.Network, opts *Options) (*Client, error) {
	if network.EndpointURL == "" {
		return nil, custodyerr.WithDetails(ErrEndpointRequired, map[string]string{"network": network.ID.String()})
	}

	c := &Client{network: network}
	if opts != nil {
		c.opts = *opts
	}
	if c.opts.Limiter == nil {
		c.opts.Limiter = chain.DefaultRateLimiter()
	}
	if c.opts.Retry == nil {
		cfg := chain.DefaultRetryConfig()
		c.opts.Retry = &cfg
	}
	if c.opts.PollInterval <= 0 {
		c.opts.PollInterval = DefaultPollInterval
	}
	return c, nil
}

// NewCreator returns a chain.Creator building Clients with opts.
func NewCreator(opts *Options) chain.Creator {
	return func(_ context.Context, network chain.Network) (chain.Client, error) {
		return NewClient(network, opts)
	}
}

// Network returns the network the client is bound to.
func (c *Client) Network() chain.Network {
	return c.network
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
}

// connect dials the endpoint if not already connected.
func (c *Client) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		return c.eth, nil
	}

	var dialOpts []rpc.ClientOption
	if c.opts.HTTPClient != nil {
		dialOpts = append(dialOpts, rpc.WithHTTPClient(c.opts.HTTPClient))
	}

	rc, err := rpc.DialOptions(ctx, c.network.EndpointURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.network.ID, err)
	}
	c.eth = ethclient.NewClient(rc)
	return c.eth, nil
}

// read runs a read-only call behind the rate limiter with retries.
func read[T any](ctx context.Context, c *Client, call func(*ethclient.Client) (T, error)) (T, error) {
	var zero T
	ec, err := c.connect(ctx)
	if err != nil {
		return zero, err
	}

	return chain.Retry(ctx, *c.opts.Retry, func() (T, error) {
		if err := c.opts.Limiter.Wait(ctx, c.network.EndpointURL); err != nil {
			return zero, err
		}
		v, err := call(ec)
		return v, classify(err)
	})
}

// write runs a state-changing call behind the rate limiter, once.
func (c *Client) write(ctx context.Context, call func(*ethclient.Client) error) error {
	ec, err := c.connect(ctx)
	if err != nil {
		return custodyerr.WithCause(custodyerr.ErrChainSubmission, err)
	}
	if err := c.opts.Limiter.Wait(ctx, c.network.EndpointURL); err != nil {
		return custodyerr.WithCause(custodyerr.ErrChainSubmission, err)
	}
	if err := call(ec); err != nil {
		return custodyerr.WithCause(custodyerr.ErrChainSubmission, err)
	}
	return nil
}

// classify marks HTTP 429 and 5xx responses retryable.
func classify(err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return chain.ClassifyHTTPStatus(httpErr.StatusCode, err)
	}
	return err
}

func validateAddress(field, address string) error {
	if !chain.IsHexAddress(address) {
		return custodyerr.WithDetails(custodyerr.ErrInvalidAddress, map[string]string{
			"field": field,
		})
	}
	return nil
}

// GetNativeBalance returns the native balance of address in wei.
func (c *Client) GetNativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if err := validateAddress("address", address); err != nil {
		return nil, err
	}

	balance, err := read(ctx, c, func(ec *ethclient.Client) (*big.Int, error) {
		return ec.BalanceAt(ctx, common.HexToAddress(address), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}
	return balance, nil
}

// GetLatestBlockNumber returns the current head block number.
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	n, err := read(ctx, c, func(ec *ethclient.Client) (uint64, error) {
		return ec.BlockNumber(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("getting block number: %w", err)
	}
	return n, nil
}
