// Command kadht-node runs a standalone Kademlia-style DHT node: it opens
// a UDP transport secured by Noise, wires it to a LocalNode, registers
// any configured bootstrap seeds, and serves inbound queries until
// interrupted.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opd-ai/kadht/config"
	"github.com/opd-ai/kadht/dht"
	dhtcrypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/overlay"
	"github.com/opd-ai/kadht/transport"
	"github.com/opd-ai/kadht/wire"

	"github.com/docopt/docopt-go"
	"github.com/sirupsen/logrus"
)

var usage = `
usage: kadht-node [options]

options:
  -c, --config=FILE    Path to the node's TOML configuration file [default: kadht.toml]
  -l, --listen=ADDR     UDP listen address, overrides the config file's listen_addr
  --log-level=LEVEL    Log level: debug, info, warn, error
`[1:]

func main() {
	os.Exit(run())
}

func run() int {
	v, err := docopt.Parse(usage, os.Args[1:], true, buildVersion(), false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	args := Args(v)

	cfg, err := config.Load(args.String("--config"))
	if err != nil {
		logrus.WithError(err).Error("failed to load configuration")
		return 1
	}
	if addr, ok := args.StringOrEmpty("--listen"); ok {
		cfg.ListenAddr = addr
	}
	if level, ok := args.StringOrEmpty("--log-level"); ok {
		cfg.LogLevel = level
	}
	if err := applyLogLevel(cfg.LogLevel); err != nil {
		logrus.WithError(err).Error("invalid log level")
		return 1
	}

	node, transportAdapter, err := buildNode(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialize node")
		return 1
	}
	defer transportAdapter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Seeds) > 0 {
		seeds, err := registerSeeds(transportAdapter, cfg.Seeds)
		if err != nil {
			logrus.WithError(err).Error("failed to register seed peers")
			return 1
		}
		bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := dht.Bootstrap(bootstrapCtx, node, seeds); err != nil {
			logrus.WithError(err).Warn("bootstrap did not complete")
		}
		bootstrapCancel()
	}

	logrus.WithFields(logrus.Fields{
		"listen_addr": transportAdapter.LocalAddr().String(),
		"key_id":      node.SelfKeyID().String(),
	}).Info("kadht-node is running")

	waitForShutdown()
	logrus.Info("shutting down")
	return 0
}

// buildNode loads or creates the node's identity, opens the transport
// adapter, and wires the two into a LocalNode.
func buildNode(cfg *config.NodeConfig) (*dht.LocalNode, *transport.Adapter, error) {
	keys, err := config.LoadOrCreateKeyPair(cfg.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("identity: %w", err)
	}
	identity := dhtcrypto.NewAdapter(keys)

	transportAdapter, err := transport.NewAdapter(cfg.ListenAddr, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: %w", err)
	}

	addrs, err := localAddressEntries(transportAdapter.LocalAddr())
	if err != nil {
		transportAdapter.Close()
		return nil, nil, fmt.Errorf("transport: %w", err)
	}

	validator := overlay.NewSignatureValidator()
	node := dht.NewLocalNode(identity, transportAdapter, addrs, validator, unixNow)
	return node, transportAdapter, nil
}

// registerSeeds resolves each configured seed's address and public key,
// registers it directly with the transport adapter (a seed's address is
// operator-supplied out of band, not peer-asserted, so it bypasses the
// protocol handler's AddPeer signature check), and returns the
// corresponding dht.SeedPeer list for Bootstrap.
func registerSeeds(adapter *transport.Adapter, seeds []config.SeedPeer) ([]dht.SeedPeer, error) {
	out := make([]dht.SeedPeer, 0, len(seeds))
	for _, s := range seeds {
		pub, err := s.DecodePublicKey()
		if err != nil {
			return nil, err
		}
		entries, err := parseAddressEntries(s.Address)
		if err != nil {
			return nil, fmt.Errorf("config: seed %q: %w", s.Address, err)
		}

		keyID := dhtcrypto.DeriveKeyID(dhtcrypto.PublicKeyDescriptor{Ed25519: pub})
		peer := wire.PeerNode{ID: pub, AddrList: entries}
		adapter.RegisterPeer(keyID, peer)
		out = append(out, dht.SeedPeer{ID: keyID})
	}
	return out, nil
}

// localAddressEntries builds the address-list entries this node
// advertises in its own self-signed descriptor, derived from the
// transport adapter's bound UDP address.
func localAddressEntries(addr net.Addr) ([]wire.AddressEntry, error) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type %T", addr)
	}
	ip := udpAddr.IP.To4()
	if ip == nil {
		ip = udpAddr.IP.To16()
	}
	return []wire.AddressEntry{{IP: ip, Port: uint16(udpAddr.Port)}}, nil
}

// parseAddressEntries resolves a "host:port" string into a one-element
// address list suitable for a PeerNode's addr_list field.
func parseAddressEntries(hostport string) ([]wire.AddressEntry, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", host)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", host, err)
		}
		ip = resolved.IP
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return []wire.AddressEntry{{IP: ip, Port: uint16(port)}}, nil
}

func unixNow() int64 { return time.Now().Unix() }

func applyLogLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)
	return nil
}

func waitForShutdown() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
}

func buildVersion() string { return "kadht-node dev" }

// Args adapts docopt's raw result map to typed accessors, the way the
// rest of the ecosystem's docopt-go callers do.
type Args map[string]interface{}

// String returns flag's value, panicking if it is unset. Use for flags
// carrying a [default: ...] in usage, which are always present.
func (a Args) String(flag string) string {
	v, ok := a[flag]
	if !ok || v == nil {
		panic(fmt.Sprintf("missing flag: %s", flag))
	}
	s, ok := v.(string)
	if !ok {
		panic(fmt.Sprintf("invalid flag: %s=%v", flag, v))
	}
	return s
}

// StringOrEmpty returns flag's value and true if the user supplied it,
// or "", false if it was left unset (no [default:] in usage).
func (a Args) StringOrEmpty(flag string) (string, bool) {
	v, ok := a[flag]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
