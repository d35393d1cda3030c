package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custody/internal/command"
	"github.com/mrz1836/custody/internal/custody"
	"github.com/mrz1836/custody/internal/metrics"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	consoleSender      string
	consoleMetricsAddr string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the engine from the terminal",
	Long: `Read chat messages from standard input, one per line, and print the
reply the sender would receive. Outbound notifications to other
identifiers are printed as [identifier] message.

Lines starting with a slash are console directives:
  /as <identifier>   switch the sender
  /quit              exit`,
	Example: `  custody console --as +2348012345678
  echo balance | custody console --as +2348012345678`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func runConsole(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(consoleSender) == "" {
		return custodyerr.WithSuggestion(
			custodyerr.Wrap(custodyerr.ErrInvalidInput, "no sender"),
			"pass --as <identifier>",
		)
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	sys, err := openSystem(cmd, &custody.Options{Console: out})
	if err != nil {
		return err
	}
	defer sys.Close()

	router, err := command.NewRouter(&command.Config{
		Engine:   sys.Engine,
		Wallets:  sys.Wallets,
		Networks: sys.Networks,
		Network:  selectedNetwork(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	addr := consoleMetricsAddr
	if addr == "" {
		addr = cfg.Metrics.ListenAddr
	}
	if addr != "" {
		srv, err := metrics.Serve(addr, sys.Metrics)
		if err != nil {
			return custodyerr.Wrap(err, "starting metrics listener")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		formatter.Warnf("Metrics on http://%s/metrics", srv.Addr())
	}

	return runREPL(cmd.Context(), router, cmd.InOrStdin(), out, strings.TrimSpace(consoleSender))
}

// lockedWriter serializes replies with notifications delivered from the
// dispatcher goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runREPL feeds each line of in to router as a message from sender.
func runREPL(ctx context.Context, router *command.Router, in io.Reader, out io.Writer, sender string) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprintf(out, "%s> ", sender)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/as "):
			sender = strings.TrimSpace(strings.TrimPrefix(line, "/as "))
			continue
		}

		reply, err := router.Handle(ctx, sender, line)
		if err != nil {
			logger.Error("console %s: %v", sender, err)
		}
		_, _ = fmt.Fprintln(out, reply)
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	consoleCmd.Flags().StringVar(&consoleSender, "as", "", "identifier the messages come from")
	consoleCmd.Flags().StringVar(&consoleMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(consoleCmd)
}
