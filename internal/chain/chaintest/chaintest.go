// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/custody/internal/chain"
)

// Submission records one broadcast.
type Submission struct {
	Kind   chain.TransferKind
	From   string
	To     string
	Amount *big.Int
	Token  string
	Hash   string
}

// Client is a scripted chain.Client. Balances default to zero.
type Client struct {
	mu sync.Mutex

	native map[string]*big.Int
	tokens map[string]*big.Int
	blocks map[uint64][]chain.BlockTransaction
	head   uint64

	// Fee is returned by EstimateTransferFee.
	Fee *big.Int

	// InclusionBlock is returned by AwaitInclusion.
	InclusionBlock uint64

	BalanceErr error
	FeeErr     error
	SubmitErr  error
	AwaitErr   error
	HeadErr    error

	submissions []Submission
	headCalls   int
	closed      bool
}

// Compile-time interface check
var _ chain.Client = (*Client)(nil)

// New returns a client with a 21000 wei fee and inclusion at block 1.
func New() *Client {
	return &Client{
		native:         make(map[string]*big.Int),
		tokens:         make(map[string]*big.Int),
		blocks:         make(map[uint64][]chain.BlockTransaction),
		Fee:            big.NewInt(21000),
		InclusionBlock: 1,
	}
}

func tokenKey(address, contract string) string {
	return strings.ToLower(contract) + "/" + strings.ToLower(address)
}

// SetNative sets the native balance of address.
func (c *Client) SetNative(address string, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[strings.ToLower(address)] = v
}

// SetToken sets the token balance of address on contract.
func (c *Client) SetToken(address, contract string, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[tokenKey(address, contract)] = v
}

// AddBlock stores a block and raises the head to n if needed.
func (c *Client) AddBlock(n uint64, txs ...chain.BlockTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks[n] = txs
	if n > c.head {
		c.head = n
	}
}

// SetHead sets the latest block number.
func (c *Client) SetHead(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = n
}

// Submissions returns the recorded broadcasts.
func (c *Client) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Submission, len(c.submissions))
	copy(out, c.submissions)
	return out
}

// HeadCalls returns how many times the head block was read.
func (c *Client) HeadCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headCalls
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// GetNativeBalance implements chain.Client.
func (c *Client) GetNativeBalance(_ context.Context, address string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	if v, ok := c.native[strings.ToLower(address)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// GetTokenBalance implements chain.Client.
func (c *Client) GetTokenBalance(_ context.Context, address, contract string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.BalanceErr != nil {
		return nil, c.BalanceErr
	}
	if v, ok := c.tokens[tokenKey(address, contract)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// EstimateTransferFee implements chain.Client.
func (c *Client) EstimateTransferFee(context.Context, chain.FeeRequest) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FeeErr != nil {
		return nil, c.FeeErr
	}
	return new(big.Int).Set(c.Fee), nil
}

// SubmitNativeTransfer implements chain.Client. The key is zeroed.
func (c *Client) SubmitNativeTransfer(_ context.Context, key []byte, to string, amount *big.Int) (string, error) {
	return c.submit(chain.TransferNative, key, to, amount, "")
}

// SubmitTokenTransfer implements chain.Client.
func (c *Client) SubmitTokenTransfer(_ context.Context, key []byte, to string, amount *big.Int, contract string) (string, error) {
	return c.submit(chain.TransferToken, key, to, amount, contract)
}

func (c *Client) submit(kind chain.TransferKind, key []byte, to string, amount *big.Int, contract string) (string, error) {
	defer clear(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SubmitErr != nil {
		return "", c.SubmitErr
	}

	priv, err := ethcrypto.ToECDSA(key)
	if err != nil {
		return "", err
	}

	hash := fmt.Sprintf("0x%064x", len(c.submissions)+1)
	c.submissions = append(c.submissions, Submission{
		Kind:   kind,
		From:   ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(),
		To:     to,
		Amount: new(big.Int).Set(amount),
		Token:  contract,
		Hash:   hash,
	})
	return hash, nil
}

// AwaitInclusion implements chain.Client.
func (c *Client) AwaitInclusion(ctx context.Context, _ string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AwaitErr != nil {
		return 0, c.AwaitErr
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.InclusionBlock, nil
}

// GetLatestBlockNumber implements chain.Client.
func (c *Client) GetLatestBlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.headCalls++
	if c.HeadErr != nil {
		return 0, c.HeadErr
	}
	return c.head, nil
}

// GetBlockTransactions implements chain.Client.
func (c *Client) GetBlockTransactions(_ context.Context, n uint64) ([]chain.BlockTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[n], nil
}

// Close implements chain.Client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Provider hands out scripted clients by network id.
type Provider struct {
	mu      sync.Mutex
	clients map[chain.NetworkID]*Client

	// Err fails every ClientFor call when set.
	Err error
}

// Compile-time interface check
var _ chain.Provider = (*Provider)(nil)

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{clients: make(map[chain.NetworkID]*Client)}
}

// Add binds c to id.
func (p *Provider) Add(id chain.NetworkID, c *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[id] = c
	return c
}

// ClientFor implements chain.Provider. Unbound networks get a fresh client.
func (p *Provider) ClientFor(_ context.Context, network chain.Network) (chain.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	c, ok := p.clients[network.ID]
	if !ok {
		c = New()
		p.clients[network.ID] = c
	}
	return c, nil
}
