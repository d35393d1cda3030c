package command

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mrz1836/custody/internal/chain"
	"github.com/mrz1836/custody/internal/service/balance"
)

// Fixed replies.
const (
	ReplyNoMatch          = "❌ Invalid or expired confirmation code"
	ReplySendUsage        = "❌ Format: send [amount] [recipient]"
	ReplyConfirmUsage     = "❌ Format: confirm [code]"
	ReplyRecipientUnknown = "❌ Recipient not found. They need to register first."
	ReplyInvalidAmount    = "❌ Invalid amount"
	ReplyInvalidAddress   = "❌ Invalid recipient address"
	ReplyUnavailable      = "⚠️ Something went wrong. Please try again later."
)

// HelpText lists the commands.
const HelpText = `🤖 *Available Commands*

💰 *balance* - Check your balance
📤 *send [amount] [recipient]* - Send tokens to a phone number or address
📤 *send [amount] [symbol] [recipient]* - Send the token or the native coin
✅ *confirm [code]* - Confirm a pending send
📍 *address* - Get your wallet address
❓ *help* - Show this menu`

func welcomeReply(address string, n chain.Network) string {
	return fmt.Sprintf("🎉 Wallet created!\n📍 Address: %s\n🌐 Network: %s\n\nType *help* to continue.", address, n.Name)
}

func addressReply(address string, n chain.Network) string {
	return fmt.Sprintf("📍 Address: %s\n🌐 Network: %s", address, n.Name)
}

func balanceReply(b *balance.Balance) string {
	if b.Token == nil {
		return fmt.Sprintf("💰 Your Balance: %s %s", b.Native.Amount, b.Native.Symbol)
	}
	return fmt.Sprintf("💰 Your Balance: %s %s\n⛽ Gas: %s %s", b.Token.Amount, b.Token.Symbol, b.Native.Amount, b.Native.Symbol)
}

func unsupportedAssetReply(symbol string, n chain.Network) string {
	assets := n.NativeSymbol
	if n.HasToken() {
		assets = n.Token.Symbol + " or " + n.NativeSymbol
	}
	return fmt.Sprintf("❌ %s is not available on %s. Use %s.", symbol, n.Name, assets)
}

func confirmPrompt(amount, symbol, recipient, network, code string, window time.Duration) string {
	return fmt.Sprintf("🔐 Confirm sending %s %s to %s on %s\nReply: confirm %s\nExpires in %s.",
		amount, symbol, recipient, network, code, minutes(window))
}

func successReply(hash string) string {
	return "✅ Transaction confirmed!\n🔗 TX: " + hash
}

func failureReply(reason string) string {
	return "❌ Transaction failed: " + reason
}

func unknownReply(suggestion string) string {
	var b strings.Builder
	b.WriteString("❓ Unknown command.")
	if suggestion != "" {
		b.WriteString(" Did you mean *")
		b.WriteString(suggestion)
		b.WriteString("*?")
	}
	b.WriteString("\n\n")
	b.WriteString(HelpText)
	return b.String()
}

// minutes renders d rounded to whole minutes, never below one.
func minutes(d time.Duration) string {
	m := int(math.Round(d.Minutes()))
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
