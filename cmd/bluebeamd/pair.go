package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bluebeam/bluebeam/pairing"
	"github.com/bluebeam/bluebeam/transport"
	"github.com/bluebeam/bluebeam/transport/ws"
)

var pairCmd = &cobra.Command{
	Use:   "pair <addr>",
	Short: "Pair with a device listening on a transport/ws address",
	Long: `pair dials addr (host:port, as printed by a running "bluebeamd
serve"), runs the pairing key exchange, and prints the derived PIN. Type
the same PIN shown on the remote device to confirm the connection is
not being intercepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runPair,
}

func init() {
	rootCmd.AddCommand(pairCmd)
}

// directManager is a one-shot transport.BluetoothManager that dials a
// single pre-known address, used only by the pair subcommand: a CLI
// invocation that already has an address on the command line has no
// need for the daemon's registered-peer discovery stand-in.
type directManager struct {
	addr string
}

func (m *directManager) StartDiscovery(_ context.Context) error { return nil }
func (m *directManager) StopDiscovery() error                   { return nil }
func (m *directManager) DiscoveredDevices() []transport.DiscoveredPeer {
	return []transport.DiscoveredPeer{{ID: m.addr, Address: m.addr}}
}
func (m *directManager) Connect(ctx context.Context, _ transport.DiscoveredPeer) (transport.Connection, error) {
	return ws.Dial(ctx, m.addr, 10*time.Second)
}

var _ transport.BluetoothManager = (*directManager)(nil)

func runPair(cmd *cobra.Command, args []string) error {
	addr := args[0]
	ctx := context.Background()

	manager := &directManager{addr: addr}
	peer := transport.DiscoveredPeer{ID: addr, Address: addr}

	session, err := pairing.Initiate(ctx, peer, manager)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer session.Close()

	fingerprint, pin, err := session.ExchangeKeys(ctx)
	if err != nil {
		return fmt.Errorf("exchange keys: %w", err)
	}

	fmt.Printf("fingerprint: %s\n", fingerprint)
	fmt.Printf("pin:         %s\n", pin)
	fmt.Print("confirm this PIN matches the remote device, then press Enter (or type a different PIN to reject): ")

	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		input = pin
	}

	if err := session.VerifyPIN(input); err != nil {
		return fmt.Errorf("pin verification failed: %w", err)
	}
	if err := session.CompletePairing(ctx); err != nil {
		return fmt.Errorf("complete pairing: %w", err)
	}

	fmt.Println("paired.")
	return nil
}
