// Package command turns chat messages into custody operations. Every
// message yields a reply for the sender; the returned error is only for
// the operator's log and is never shown to the sender.
package command

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/mrz1836/custody/internal/account"
	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/pending"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// maxSuggestDistance bounds the "did you mean" correction.
const maxSuggestDistance = 2

// Command names.
const (
	CmdBalance = "balance"
	CmdAddress = "address"
	CmdSend    = "send"
	CmdConfirm = "confirm"
	CmdHelp    = "help"
)

var commandNames = []string{CmdBalance, CmdAddress, CmdSend, CmdConfirm, CmdHelp} //nolint:gochecknoglobals // fixed command set

// Config holds dependencies for the router. Network names the network
// every command acts on.
type Config struct {
	Engine   Engine
	Wallets  Wallets
	Networks NetworkResolver
	Network  chain.NetworkID
	Clock    clock.Clock
	Logger   LogWriter
}

// Router dispatches chat commands for one network.
type Router struct {
	engine  Engine
	wallets Wallets
	network chain.Network
	clock   clock.Clock
	logger  LogWriter
}

// NewRouter validates cfg and resolves its network.
func NewRouter(cfg *Config) (*Router, error) {
	if cfg == nil || cfg.Engine == nil || cfg.Wallets == nil || cfg.Networks == nil {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "router is missing a dependency")
	}
	if cfg.Network == "" {
		return nil, custodyerr.Wrap(custodyerr.ErrConfiguration, "router network is required")
	}
	network, err := cfg.Networks.Resolve(cfg.Network)
	if err != nil {
		return nil, err
	}

	r := &Router{
		engine:  cfg.Engine,
		wallets: cfg.Wallets,
		network: network,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
	if r.clock == nil {
		r.clock = clock.NewDefaultClock()
	}
	if r.logger == nil {
		r.logger = nopLogger{}
	}
	return r, nil
}

// Network returns the network the router acts on.
func (r *Router) Network() chain.Network {
	return r.network
}

// Handle runs the command in text on behalf of from. A sender without a
// wallet gets one and the welcome reply, whatever the text was.
func (r *Router) Handle(ctx context.Context, from, text string) (string, error) {
	from = strings.TrimSpace(from)
	if from == "" || chain.IsHexAddress(from) {
		return "", custodyerr.Wrap(custodyerr.ErrInvalidInput, "sender must be a registered handle")
	}

	acct, reply, err := r.sender(ctx, from)
	if acct == nil {
		return reply, err
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return HelpText, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	r.logger.Debug("command %q", name)

	switch name {
	case CmdBalance:
		return r.balance(ctx, from)
	case CmdAddress:
		return addressReply(acct.Address, r.network), nil
	case CmdSend:
		return r.send(ctx, from, acct, args)
	case CmdConfirm:
		return r.confirm(ctx, from, args)
	case CmdHelp:
		return HelpText, nil
	default:
		return unknownReply(suggest(name)), nil
	}
}

// sender returns the account for from, registering it on first contact.
// A nil account means reply is final.
func (r *Router) sender(ctx context.Context, from string) (*account.Account, string, error) {
	res, err := r.wallets.ResolveIdentifier(ctx, from)
	if errors.Is(err, custodyerr.ErrUnknownIdentifier) {
		acct, _, regErr := r.wallets.Register(ctx, from)
		if regErr == nil {
			r.logger.Debug("registered wallet %s", acct.Address)
			return nil, welcomeReply(acct.Address, r.network), nil
		}
		if !errors.Is(regErr, custodyerr.ErrAccountExists) {
			return nil, ReplyUnavailable, regErr
		}
		// registered by a concurrent message
		res, err = r.wallets.ResolveIdentifier(ctx, from)
	}
	if err != nil {
		return nil, ReplyUnavailable, err
	}
	return res.Account, "", nil
}

func (r *Router) balance(ctx context.Context, from string) (string, error) {
	bal, err := r.engine.GetBalance(ctx, from, r.network.ID)
	if err != nil {
		return ReplyUnavailable, err
	}
	return balanceReply(bal), nil
}

// send stages "send <amount> <recipient>" as a token transfer, or
// "send <amount> <symbol> <recipient>" for an explicit asset.
func (r *Router) send(ctx context.Context, from string, acct *account.Account, args []string) (string, error) {
	kind := chain.TransferToken
	if !r.network.HasToken() {
		kind = chain.TransferNative
	}

	var amount, recipient string
	switch len(args) {
	case 2:
		amount, recipient = args[0], args[1]
	case 3:
		amount, recipient = args[0], args[2]
		switch {
		case r.network.HasToken() && strings.EqualFold(args[1], r.network.Token.Symbol):
			kind = chain.TransferToken
		case strings.EqualFold(args[1], r.network.NativeSymbol):
			kind = chain.TransferNative
		default:
			return unsupportedAssetReply(args[1], r.network), nil
		}
	default:
		return ReplySendUsage, nil
	}

	to, handle := recipient, ""
	if !chain.IsHexAddress(recipient) {
		res, err := r.wallets.ResolveIdentifier(ctx, recipient)
		switch {
		case errors.Is(err, custodyerr.ErrUnknownIdentifier):
			return ReplyRecipientUnknown, nil
		case err != nil:
			return ReplyUnavailable, err
		}
		to, handle = res.Address, recipient
	}

	stage := r.engine.CreatePendingSend
	symbol := r.network.Token.Symbol
	if kind == chain.TransferNative {
		stage = r.engine.CreatePendingNativeSend
		symbol = r.network.NativeSymbol
	}

	ticket, err := stage(ctx, from, acct.EncryptedPrivateKey, to, amount, r.network.ID, handle)
	if err != nil {
		return stageErrorReply(err)
	}

	return confirmPrompt(amount, symbol, recipient, r.network.Name, ticket.Code, r.window(ticket)), nil
}

func (r *Router) confirm(ctx context.Context, from string, args []string) (string, error) {
	if len(args) != 1 {
		return ReplyConfirmUsage, nil
	}

	result, err := r.engine.ConfirmPending(ctx, from, args[0])
	switch {
	case errors.Is(err, custodyerr.ErrNoMatchingTransaction):
		return ReplyNoMatch, nil
	case err != nil:
		return ReplyUnavailable, err
	case result.Success:
		return successReply(result.TxHash), nil
	default:
		return failureReply(result.Error), nil
	}
}

func (r *Router) window(t pending.Ticket) time.Duration {
	return t.ExpiresAt.Sub(r.clock.Now())
}

func stageErrorReply(err error) (string, error) {
	switch {
	case errors.Is(err, custodyerr.ErrInvalidAmount):
		return ReplyInvalidAmount, nil
	case errors.Is(err, custodyerr.ErrInvalidAddress):
		return ReplyInvalidAddress, nil
	default:
		return ReplyUnavailable, err
	}
}

// suggest returns the command closest to name, if any is close enough.
func suggest(name string) string {
	best, bestDist := "", math.MaxInt
	for _, c := range commandNames {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist <= maxSuggestDistance {
		return best
	}
	return ""
}
