// Package transport implements the Transport Adapter: a UDP datagram
// transport with a Noise-XX encrypted session per peer, satisfying the
// dht.Adapter interface the DHT core dispatches queries through.
package transport

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	crypto "github.com/opd-ai/kadht/dhtcrypto"
	"github.com/opd-ai/kadht/limits"
	"github.com/opd-ai/kadht/wire"

	"github.com/sirupsen/logrus"

	sessionnoise "github.com/flynn/noise"
	xnoise "github.com/opd-ai/kadht/noise"
)

var (
	// ErrUnknownPeer indicates Send was asked to reach a key-id with no
	// registered address.
	ErrUnknownPeer = errors.New("transport: unknown peer")
	// ErrNoAddress indicates a PeerNode carried no usable address entry.
	ErrNoAddress = errors.New("transport: peer has no address")
	// ErrHandshakeFailed indicates the Noise-XX session could not be
	// established, including a binding signature that failed to verify.
	ErrHandshakeFailed = errors.New("transport: handshake failed")
	// ErrFrameTooLarge indicates a Send call's frame exceeds
	// limits.MaxEnvelopeFrame.
	ErrFrameTooLarge = errors.New("transport: frame too large")
)

// peerRecord is what RegisterPeer hands the Adapter: where to reach a
// key-id, and the signed descriptor that identifies it.
type peerRecord struct {
	addr net.Addr
	node wire.PeerNode
}

// session is one Noise-XX encrypted channel to a single remote address.
type session struct {
	mu          sync.Mutex
	hs          *xnoise.XXHandshake
	established bool
	failed      error
	send        *sessionnoise.CipherState
	recv        *sessionnoise.CipherState
	peerID      crypto.KeyID
	readyCh     chan struct{}
}

// Adapter is the concrete Transport Adapter: it owns a UDP socket, a
// Noise-XX static identity distinct from the DHT's Ed25519 identity, and
// the session/address bookkeeping dht.LookupEngine, dht.ProtocolHandler
// and dht.LocalNode need from their Adapter collaborator. It also runs
// the socket's own read loop, dispatching each inbound datagram directly
// to the handshake or message path by its PacketType.
type Adapter struct {
	conn       net.PacketConn
	listenAddr net.Addr
	ctx        context.Context
	cancel     context.CancelFunc

	identity   *crypto.Adapter
	staticPriv [32]byte
	staticPub  [32]byte

	mu    sync.RWMutex
	peers map[crypto.KeyID]peerRecord

	sessMu   sync.Mutex
	sessions map[string]*session // addr.String() -> session

	handshakeMu      sync.Mutex
	handshakeWaiters map[string]chan []byte // addr.String() -> channel fed the next inbound handshake step

	pendingMu sync.Mutex
	pending   map[uint64]chan [][]byte

	handlerMu sync.RWMutex
	handler   func(from crypto.KeyID, frames [][]byte) [][]byte

	log *logrus.Entry
}

// NewAdapter binds a UDP socket at listenAddr, starts its read loop, and
// returns a Transport Adapter authenticated under identity's DHT keypair.
func NewAdapter(listenAddr string, identity *crypto.Adapter) (*Adapter, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}

	priv, pub, err := xnoise.GenerateStaticKeypair()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: generate session identity: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Adapter{
		conn:             conn,
		listenAddr:       conn.LocalAddr(),
		ctx:              ctx,
		cancel:           cancel,
		identity:         identity,
		staticPriv:       priv,
		staticPub:        pub,
		peers:            make(map[crypto.KeyID]peerRecord),
		sessions:         make(map[string]*session),
		handshakeWaiters: make(map[string]chan []byte),
		pending:          make(map[uint64]chan [][]byte),
		log:              logrus.WithField("component", "transport.adapter"),
	}

	go a.processPackets()

	return a, nil
}

// LocalAddr returns the address the UDP socket is bound to, which may
// differ from the requested listenAddr (e.g. binding to ":0" assigns an
// ephemeral port).
func (a *Adapter) LocalAddr() net.Addr { return a.listenAddr }

// Close stops the read loop and closes the underlying socket. The
// Adapter must not be used afterward.
func (a *Adapter) Close() error {
	a.cancel()
	return a.conn.Close()
}

// sendPacket serializes and transmits pkt to addr over the UDP socket.
func (a *Adapter) sendPacket(pkt *Packet, addr net.Addr) error {
	data, err := pkt.Serialize()
	if err != nil {
		return err
	}
	_, err = a.conn.WriteTo(data, addr)
	return err
}

// processPackets is the socket's read loop: it reads datagrams with a
// short deadline so it can observe context cancellation promptly, parses
// each into a Packet, and dispatches it to the handshake or message path
// by its PacketType in its own goroutine.
func (a *Adapter) processPackets() {
	buffer := make([]byte, 2048)

	for {
		select {
		case <-a.ctx.Done():
			return
		default:
			_ = a.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := a.conn.ReadFrom(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if opErr, ok := err.(*net.OpError); ok && opErr.Err.Error() == "message too long" {
					continue // packet larger than buffer, discard
				}
				continue
			}

			packet, err := ParsePacket(buffer[:n])
			if err != nil {
				continue
			}

			switch packet.PacketType {
			case PacketNoiseHandshake:
				go a.onHandshakePacket(packet, addr)
			case PacketNoiseMessage:
				go a.onMessagePacket(packet, addr)
			}
		}
	}
}

// RegisterPeer records where a key-id can be reached. It is how
// dht.ProtocolHandler and dht.LocalNode tell the Adapter about peers
// learned from signed PeerNode records.
func (a *Adapter) RegisterPeer(id crypto.KeyID, peer wire.PeerNode) bool {
	addr, err := firstAddr(peer)
	if err != nil {
		a.log.WithField("peer", id.String()).WithError(err).Warn("cannot register peer without a usable address")
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, existed := a.peers[id]
	a.peers[id] = peerRecord{addr: addr, node: peer}
	return !existed
}

// Subscribe installs the inbound query handler; dht.LocalNode installs
// exactly one.
func (a *Adapter) Subscribe(handler func(from crypto.KeyID, frames [][]byte) [][]byte) {
	a.handlerMu.Lock()
	a.handler = handler
	a.handlerMu.Unlock()
}

func firstAddr(peer wire.PeerNode) (net.Addr, error) {
	for _, entry := range peer.AddrList {
		if len(entry.IP) != 4 && len(entry.IP) != 16 {
			continue
		}
		return &net.UDPAddr{IP: net.IP(entry.IP), Port: int(entry.Port)}, nil
	}
	return nil, ErrNoAddress
}

// Send delivers frames to peer over an established Noise-XX session,
// blocking for a matching reply or until ctx is done.
func (a *Adapter) Send(ctx context.Context, peer crypto.KeyID, frames [][]byte) ([][]byte, error) {
	a.mu.RLock()
	record, ok := a.peers[peer]
	a.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownPeer
	}

	for _, frame := range frames {
		if err := limits.ValidateEnvelopeFrame(frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFrameTooLarge, err)
		}
	}

	sess, err := a.ensureSession(ctx, record.addr, &peer)
	if err != nil {
		return nil, err
	}

	requestID, err := randomRequestID()
	if err != nil {
		return nil, err
	}

	replyCh := make(chan [][]byte, 1)
	a.pendingMu.Lock()
	a.pending[requestID] = replyCh
	a.pendingMu.Unlock()
	defer func() {
		a.pendingMu.Lock()
		delete(a.pending, requestID)
		a.pendingMu.Unlock()
	}()

	if err := a.sendEnvelope(sess, record.addr, requestID, frames); err != nil {
		return nil, err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Adapter) sendEnvelope(sess *session, addr net.Addr, requestID uint64, frames [][]byte) error {
	data := SerializeEnvelope(&Envelope{RequestID: requestID, Frames: frames})
	sess.mu.Lock()
	ciphertext := sess.send.Encrypt(nil, nil, data)
	sess.mu.Unlock()
	return a.sendPacket(&Packet{PacketType: PacketNoiseMessage, Data: ciphertext}, addr)
}

func randomRequestID() (uint64, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ensureSession returns an established session to addr, performing the
// Noise-XX handshake as initiator if none exists yet. When expectPeer is
// non-nil, the responder's identity binding must resolve to that key-id
// or the handshake is rejected.
func (a *Adapter) ensureSession(ctx context.Context, addr net.Addr, expectPeer *crypto.KeyID) (*session, error) {
	key := addr.String()

	a.sessMu.Lock()
	sess, ok := a.sessions[key]
	if !ok {
		sess = &session{readyCh: make(chan struct{})}
		a.sessions[key] = sess
	}
	a.sessMu.Unlock()

	sess.mu.Lock()
	if sess.established {
		sess.mu.Unlock()
		return sess, nil
	}
	if sess.failed != nil {
		err := sess.failed
		sess.mu.Unlock()
		return nil, err
	}
	if sess.hs != nil {
		// Another goroutine is already driving this handshake; wait.
		sess.mu.Unlock()
		select {
		case <-sess.readyCh:
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if sess.failed != nil {
				return nil, sess.failed
			}
			return sess, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	hs, err := xnoise.NewXXHandshake(a.staticPriv, a.staticPub, xnoise.Initiator)
	if err != nil {
		sess.failed = err
		sess.mu.Unlock()
		close(sess.readyCh)
		return nil, err
	}
	sess.hs = hs
	sess.mu.Unlock()

	err = a.driveInitiatorHandshake(ctx, addr, sess, expectPeer)

	sess.mu.Lock()
	if err != nil {
		sess.failed = err
	}
	sess.mu.Unlock()
	close(sess.readyCh)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *Adapter) driveInitiatorHandshake(ctx context.Context, addr net.Addr, sess *session, expectPeer *crypto.KeyID) error {
	key := addr.String()
	waiter := make(chan []byte, 1)
	a.handshakeMu.Lock()
	a.handshakeWaiters[key] = waiter
	a.handshakeMu.Unlock()
	defer func() {
		a.handshakeMu.Lock()
		delete(a.handshakeWaiters, key)
		a.handshakeMu.Unlock()
	}()

	msg1, _, err := sess.hs.WriteMessage(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if err := a.sendHandshakeStep(addr, 0, msg1); err != nil {
		return err
	}

	msg2, err := waitForHandshakeMessage(ctx, waiter)
	if err != nil {
		return err
	}
	responderPayload, _, err := sess.hs.ReadMessage(msg2)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	binding, err := encodeBinding(a.identity, a.staticPub)
	if err != nil {
		return err
	}
	msg3, complete, err := sess.hs.WriteMessage(binding)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if !complete {
		return fmt.Errorf("%w: handshake did not complete after message 3", ErrHandshakeFailed)
	}
	if err := a.sendHandshakeStep(addr, 2, msg3); err != nil {
		return err
	}

	remoteStatic, err := sess.hs.RemoteStatic()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	descriptor, err := verifyBinding(responderPayload, remoteStatic)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	peerID := crypto.DeriveKeyID(descriptor)
	if expectPeer != nil && peerID != *expectPeer {
		return fmt.Errorf("%w: responder identity mismatch", ErrHandshakeFailed)
	}

	send, recv, err := sess.hs.CipherStates()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	sess.mu.Lock()
	sess.send, sess.recv, sess.peerID, sess.established = send, recv, peerID, true
	sess.mu.Unlock()
	return nil
}

func (a *Adapter) sendHandshakeStep(addr net.Addr, step uint8, data []byte) error {
	pkt := &Packet{PacketType: PacketNoiseHandshake, Data: SerializeHandshakePacket(&HandshakePacket{Step: step, HandshakeData: data})}
	return a.sendPacket(pkt, addr)
}

func waitForHandshakeMessage(ctx context.Context, waiter chan []byte) ([]byte, error) {
	select {
	case msg := <-waiter:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// onHandshakePacket is the read loop's dispatch target for
// PacketNoiseHandshake. It drives the responder side of the handshake
// and feeds an in-progress
// initiator side its next expected message.
func (a *Adapter) onHandshakePacket(packet *Packet, addr net.Addr) error {
	hp, err := ParseHandshakePacket(packet.Data)
	if err != nil {
		a.log.WithError(err).Warn("dropping malformed handshake packet")
		return nil
	}

	if hp.Step == 1 {
		a.handshakeMu.Lock()
		waiter, ok := a.handshakeWaiters[addr.String()]
		a.handshakeMu.Unlock()
		if ok {
			waiter <- hp.HandshakeData
		}
		return nil
	}

	return a.handleResponderStep(addr, hp)
}

// handleResponderStep drives steps 0 and 2 of the handshake, which we
// only ever see as the responding side (we never send step 1 as a
// waiter-fed message to ourselves).
func (a *Adapter) handleResponderStep(addr net.Addr, hp *HandshakePacket) error {
	key := addr.String()

	switch hp.Step {
	case 0:
		hs, err := xnoise.NewXXHandshake(a.staticPriv, a.staticPub, xnoise.Responder)
		if err != nil {
			return err
		}
		if _, _, err := hs.ReadMessage(hp.HandshakeData); err != nil {
			a.log.WithError(err).Warn("responder failed to read handshake message 1")
			return nil
		}
		binding, err := encodeBinding(a.identity, a.staticPub)
		if err != nil {
			return err
		}
		msg2, _, err := hs.WriteMessage(binding)
		if err != nil {
			a.log.WithError(err).Warn("responder failed to write handshake message 2")
			return nil
		}

		sess := &session{hs: hs, readyCh: make(chan struct{})}
		a.sessMu.Lock()
		a.sessions[key] = sess
		a.sessMu.Unlock()

		return a.sendHandshakeStep(addr, 1, msg2)

	case 2:
		a.sessMu.Lock()
		sess, ok := a.sessions[key]
		a.sessMu.Unlock()
		if !ok || sess.hs == nil {
			a.log.WithField("addr", key).Warn("handshake message 3 with no pending responder session")
			return nil
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.established {
			return nil
		}
		initiatorPayload, complete, err := sess.hs.ReadMessage(hp.HandshakeData)
		if err != nil || !complete {
			a.log.WithError(err).Warn("responder failed to complete handshake on message 3")
			return nil
		}
		remoteStatic, err := sess.hs.RemoteStatic()
		if err != nil {
			return nil
		}
		descriptor, err := verifyBinding(initiatorPayload, remoteStatic)
		if err != nil {
			a.log.WithError(err).Warn("rejecting handshake with invalid identity binding")
			return nil
		}
		send, recv, err := sess.hs.CipherStates()
		if err != nil {
			return nil
		}
		sess.send, sess.recv, sess.peerID, sess.established = send, recv, crypto.DeriveKeyID(descriptor), true
		return nil
	}

	return nil
}

// onMessagePacket is the read loop's dispatch target for
// PacketNoiseMessage: an
// encrypted Envelope that is either the reply to a pending Send or a
// fresh inbound query to dispatch to the subscribed handler.
func (a *Adapter) onMessagePacket(packet *Packet, addr net.Addr) error {
	a.sessMu.Lock()
	sess, ok := a.sessions[addr.String()]
	a.sessMu.Unlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	established := sess.established
	var recv *sessionnoise.CipherState
	if established {
		recv = sess.recv
	}
	sess.mu.Unlock()
	if !established {
		return nil
	}

	plaintext, err := recv.Decrypt(nil, nil, packet.Data)
	if err != nil {
		a.log.WithError(err).Warn("dropping undecryptable message")
		return nil
	}
	env, err := ParseEnvelope(plaintext)
	if err != nil {
		a.log.WithError(err).Warn("dropping malformed envelope")
		return nil
	}

	a.pendingMu.Lock()
	replyCh, isReply := a.pending[env.RequestID]
	a.pendingMu.Unlock()
	if isReply {
		replyCh <- env.Frames
		return nil
	}

	a.handlerMu.RLock()
	handler := a.handler
	a.handlerMu.RUnlock()
	if handler == nil {
		return nil
	}
	reply := handler(sess.peerID, env.Frames)
	if reply == nil {
		return nil
	}
	return a.sendEnvelope(sess, addr, env.RequestID, reply)
}
