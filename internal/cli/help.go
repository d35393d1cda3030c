package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

// Command group ids.
const (
	groupWallet    = "wallet"
	groupMessaging = "messaging"
	groupConfig    = "config"
)

//nolint:gochecknoglobals // help is decorated once per process
var helpOnce sync.Once

// setupHelp groups the top-level commands and lists subcommands in the
// long help of every parent.
func setupHelp() {
	helpOnce.Do(func() {
		rootCmd.AddGroup(
			&cobra.Group{ID: groupWallet, Title: "Wallet Operations:"},
			&cobra.Group{ID: groupMessaging, Title: "Messaging:"},
			&cobra.Group{ID: groupConfig, Title: "Configuration:"},
		)
		walletCmd.GroupID = groupWallet
		balanceCmd.GroupID = groupWallet
		watchCmd.GroupID = groupWallet
		consoleCmd.GroupID = groupMessaging
		networksCmd.GroupID = groupConfig
		configCmd.GroupID = groupConfig
		versionCmd.GroupID = groupConfig

		rootCmd.SetHelpCommandGroupID(groupConfig)
		rootCmd.SetCompletionCommandGroupID(groupConfig)

		for _, sub := range rootCmd.Commands() {
			walkCommands(sub, enrichParentLong)
		}
	})
}

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the available subcommands to a parent's Long text.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	if cmd.Long == "" {
		sb.WriteString(cmd.Short)
	}
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", sub.Name(), sub.Short))
		}
	}
	cmd.Long = sb.String()
}
