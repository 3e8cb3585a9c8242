package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bluebeam/bluebeam/core"
	"github.com/bluebeam/bluebeam/internal/logger"
	"github.com/bluebeam/bluebeam/internal/metrics"
	"github.com/bluebeam/bluebeam/pairing"
	"github.com/bluebeam/bluebeam/persistence"
	"github.com/bluebeam/bluebeam/transport"
	"github.com/bluebeam/bluebeam/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the event core against the transport/ws stand-in",
	Long: `serve opens the local encrypted store, starts the event core, and
listens for inbound transport/ws connections in place of a real
Bluetooth radio. It blocks until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.GetDefaultLogger()
	log.SetLevel(parseLevel(cfg.Logging.Level))
	log.SetPrettyPrint(cfg.Logging.Pretty)

	dataDir, err := cfg.DataDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	settingsDir, err := cfg.SettingsDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	deviceKey, err := loadOrCreateDeviceKey(settingsDir)
	if err != nil {
		return fmt.Errorf("load device key: %w", err)
	}

	store, err := persistence.Open(filepath.Join(dataDir, "bluebeam.db"), deviceKey)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	filesDir := filepath.Join(dataDir, "files")
	manager := newWSManager(cfg.Transport.DialTimeout)
	if knownPeers, err := store.GetPeers(); err == nil {
		for _, peer := range knownPeers {
			if peer.Trusted {
				manager.Register(transport.DiscoveredPeer{ID: peer.ID, Name: peer.DisplayName, Address: peer.Address})
			}
		}
	}

	c := core.New(store, manager, filesDir)

	listener, err := ws.Listen(cfg.Transport.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Transport.ListenAddr, err)
	}
	defer listener.Close()
	log.Info("listening", logger.String("addr", cfg.Transport.ListenAddr))

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Addr); err != nil {
				log.Error("metrics server stopped", logger.Error(err))
			}
		}()
		log.Info("metrics enabled", logger.String("addr", cfg.Metrics.Addr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()
	go acceptLoop(ctx, listener, c, log)
	go logUpdates(ctx, c, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case err := <-runErr:
		if err != nil {
			log.Error("core stopped unexpectedly", logger.Error(err))
		}
		return err
	}

	_ = c.Submit(context.Background(), core.Shutdown{})
	cancel()
	<-runErr
	return nil
}

// acceptLoop accepts inbound transport/ws connections and drives each
// one through the responder side of the pairing handshake. The event
// core's closed command vocabulary has no command for an inbound
// pairing attempt — PairWithDevice only covers the locally-initiated
// side — so this runs entirely above the core and hands the finished
// session over via SessionEstablished once pairing completes.
func acceptLoop(ctx context.Context, listener *ws.Listener, c *core.Core, log logger.Logger) {
	seq := 0
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			return
		}
		seq++
		peerID := fmt.Sprintf("peer-inbound-%d", seq)
		go acceptPairing(ctx, conn, peerID, c, log)
	}
}

func acceptPairing(ctx context.Context, conn *ws.Connection, peerID string, c *core.Core, log logger.Logger) {
	tr, err := conn.CreateTransport(ctx, transport.PairingServiceUUID)
	if err != nil {
		log.Error("open pairing transport failed", logger.String("peer_id", peerID), logger.Error(err))
		return
	}

	session, err := pairing.Accept(transport.DiscoveredPeer{ID: peerID}, conn, tr)
	if err != nil {
		log.Error("accept pairing failed", logger.String("peer_id", peerID), logger.Error(err))
		return
	}

	fingerprint, pin, err := session.ExchangeKeys(ctx)
	if err != nil {
		log.Error("exchange keys failed", logger.String("peer_id", peerID), logger.Error(err))
		return
	}
	log.Info("inbound pairing request",
		logger.String("peer_id", peerID),
		logger.String("fingerprint", fingerprint),
		logger.String("pin", pin))

	// The daemon has no operator attached to compare PINs out-of-band;
	// it auto-confirms with the PIN it just derived itself. The human
	// verification step happens on the initiating side, via the `pair`
	// subcommand, which prints the PIN for comparison before calling
	// VerifyPIN with what the operator actually typed.
	if err := session.VerifyPIN(pin); err != nil {
		log.Error("verify pin failed", logger.String("peer_id", peerID), logger.Error(err))
		return
	}
	if err := session.CompletePairing(ctx); err != nil {
		log.Error("complete pairing failed", logger.String("peer_id", peerID), logger.Error(err))
		return
	}

	if err := c.Submit(ctx, core.SessionEstablished{
		PeerID:      peerID,
		Fingerprint: fingerprint,
		Conn:        session.Connection(),
		Tr:          session.Transport(),
		SharedKey:   session.SharedKey(),
	}); err != nil {
		log.Error("submit established session failed", logger.String("peer_id", peerID), logger.Error(err))
	}
}

func logUpdates(ctx context.Context, c *core.Core, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-c.Updates():
			if !ok {
				return
			}
			log.Info("update", logger.Any("update", update))
		}
	}
}

func parseLevel(level string) logger.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.DebugLevel
	case "WARN":
		return logger.WarnLevel
	case "ERROR":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
