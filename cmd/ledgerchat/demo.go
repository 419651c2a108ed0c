package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opd-ai/ledgerchat"
	"github.com/opd-ai/ledgerchat/ledger"
	"github.com/opd-ai/ledgerchat/signer"
	"github.com/opd-ai/ledgerchat/thread"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).PaddingLeft(8)
	friendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("219"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the interactive demo against an in-process ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo()
	},
}

// seedLedger registers two demo peers and friends them with each other so a
// fresh session has someone to talk to.
func seedLedger(l *ledger.MemoryLedger, provider *signer.LocalProvider) ([]ledger.Address, error) {
	ctx := context.Background()
	names := []string{"Bob", "Carol"}
	peers := make([]ledger.Address, 0, len(names))

	for _, name := range names {
		addr, err := provider.CreateAccount()
		if err != nil {
			return nil, err
		}
		if err := l.CreateAccount(ctx, addr, name); err != nil {
			return nil, err
		}
		peers = append(peers, addr)
	}

	if err := l.AddFriend(ctx, peers[0], peers[1], "Carol"); err != nil {
		return nil, err
	}
	if err := l.SendMessage(ctx, peers[0], peers[1], "see you at the meetup?"); err != nil {
		return nil, err
	}
	if err := l.SendMessage(ctx, peers[1], peers[0], "wouldn't miss it"); err != nil {
		return nil, err
	}
	return peers, nil
}

func runDemo() error {
	ledgerState := ledger.NewMemoryLedger()
	provider := signer.NewLocalProvider()

	peers, err := seedLedger(ledgerState, provider)
	if err != nil {
		return err
	}

	// The user's own account comes last so the seeded peers keep indexes
	// 0 and 1 for the switch command. Switching here, before the client
	// subscribes, does not trigger a bind.
	if _, err := provider.CreateAccount(); err != nil {
		return err
	}
	if err := provider.Switch(len(peers)); err != nil {
		return err
	}

	reader := bufio.NewScanner(os.Stdin)
	options := ledgerchat.NewOptions()
	options.Ledger = ledgerState
	options.Provider = provider
	options.DefaultUsername = config.GetString("default_username")
	options.NamePrompt = func() (string, error) {
		fmt.Print("Enter a username: ")
		if !reader.Scan() {
			return "", reader.Err()
		}
		return strings.TrimSpace(reader.Text()), nil
	}

	client, err := ledgerchat.New(options)
	if err != nil {
		return err
	}
	client.OnNotice(func(notice string) {
		fmt.Println(noticeStyle.Render(notice))
	})
	client.OnThread(renderThread)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	printWelcome(client, peers)

	for {
		fmt.Print("> ")
		if !reader.Scan() {
			return reader.Err()
		}
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		runCommand(ctx, client, provider, line)
	}
}

func printWelcome(client *ledgerchat.Client, peers []ledger.Address) {
	id, ok := client.Identity()
	if !ok {
		return
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("connected as %s (%s)", id.Username, id.Address.Hex())))
	if len(peers) > 0 {
		fmt.Println(faintStyle.Render("demo peers you can add:"))
		for _, peer := range peers {
			fmt.Println(faintStyle.Render("  " + peer.Hex()))
		}
	}
	fmt.Println(faintStyle.Render("commands: add <addr> <name> | friends | open <addr> | send <text> | refresh | switch <n> | whoami | quit"))
}

func runCommand(ctx context.Context, client *ledgerchat.Client, provider *signer.LocalProvider, line string) {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "add":
		if len(rest) < 2 {
			fmt.Println("usage: add <address> <display name>")
			return
		}
		if _, err := ledger.ParseAddress(rest[0]); err != nil {
			fmt.Println(noticeStyle.Render("invalid address"))
			return
		}
		// Contract failures are surfaced through the notice callback.
		edge, err := client.AddFriend(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return
		}
		fmt.Printf("added %s (%s)\n", edge.DisplayName, edge.Friend.Hex())

	case "friends":
		for _, edge := range client.Friends() {
			fmt.Printf("  %s  %s\n", edge.Friend.Hex(), edge.DisplayName)
		}

	case "open":
		if len(rest) != 1 {
			fmt.Println("usage: open <address>")
			return
		}
		addr, err := ledger.ParseAddress(rest[0])
		if err != nil {
			fmt.Println(noticeStyle.Render("invalid address"))
			return
		}
		if _, err := client.SelectFriend(ctx, addr); err != nil {
			fmt.Println(noticeStyle.Render(err.Error()))
		}

	case "send":
		if len(rest) == 0 {
			fmt.Println("usage: send <text>")
			return
		}
		if err := client.Send(ctx, strings.Join(rest, " ")); err == nil {
			// Sending never auto-refreshes; pull the thread again so
			// the demo shows the message landing.
			_, _ = client.Refresh(ctx)
		}

	case "refresh":
		if _, err := client.Refresh(ctx); err != nil {
			fmt.Println(noticeStyle.Render(err.Error()))
		}

	case "switch":
		if len(rest) != 1 {
			fmt.Println("usage: switch <account index>")
			return
		}
		index, err := strconv.Atoi(rest[0])
		if err != nil {
			fmt.Println("usage: switch <account index>")
			return
		}
		// Switch fires the accounts-changed subscription, which rebinds
		// the session to the new identity.
		if err := provider.Switch(index); err != nil {
			fmt.Println(noticeStyle.Render(err.Error()))
			return
		}
		printWelcome(client, nil)

	case "whoami":
		if id, ok := client.Identity(); ok {
			fmt.Printf("%s (%s), state %s\n", id.Username, id.Address.Hex(), client.State())
		} else {
			fmt.Printf("unbound, state %s\n", client.State())
		}

	default:
		fmt.Printf("unknown command %q\n", cmd)
	}
}

func renderThread(t *thread.Thread) {
	fmt.Println(headerStyle.Render(t.Header()))
	for _, msg := range t.Messages {
		line := fmt.Sprintf("%s  %s: %s", msg.Timestamp.Format("15:04:05"), msg.Label, msg.Payload)
		if msg.Self {
			fmt.Println(selfStyle.Render(line))
		} else {
			fmt.Println(friendStyle.Render(line))
		}
	}
}
