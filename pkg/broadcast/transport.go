// Package broadcast (this file) implements the spectator peer transport:
// accepting peer connections on the configured broadcast listener and
// driving a Transformer per peer. Grounded on broadcasting/server.py's
// BroadcastServer (an asyncio.start_server per-peer accept loop) and on
// hashicorp/yamux, which wraps each peer's TCP connection; only the first
// stream a peer opens is accepted, and it carries the play traffic
// (spec.md §4.G).
//
// A peer connection is asymmetric: the owner's session drives almost all
// the traffic (via Broadcast), while packets the peer sends are read and
// discarded (the re-framing input is the owner's own serverbound stream). That
// shape doesn't fit pkg/session.Engine's two-loop forwarding model — there
// is no backend for a peer to forward to — so peers get a direct read loop
// here instead of a second Engine.
package broadcast

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/yamux"
	"go.uber.org/zap"

	"github.com/kbidlack/proxhy-go/pkg/config"
	"github.com/kbidlack/proxhy-go/pkg/event"
	"github.com/kbidlack/proxhy-go/pkg/gamestate"
	"github.com/kbidlack/proxhy-go/pkg/login"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/codec"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
)

// peerEntityIDBase keeps peer-assigned entity ids out of the range the
// backend hands out to the owner's session, so a peer's own Play-state
// entity never collides with an id the mirror is tracking for the owner.
const peerEntityIDBase = 1 << 24

// PeerServer accepts spectator connections and fans the owner's clientbound
// stream out to each one through its own Transformer, per spec.md §4.G.
type PeerServer struct {
	cfg    config.BroadcastConfig
	gs     *gamestate.Mirror
	events *event.Bus

	mu          sync.Mutex
	peers       map[int32]*peerSession
	nextID      int32
	ownerUUID   string
	ownerName   string
	notifyOwner func(payload []byte) error

	log *zap.SugaredLogger
}

type peerSession struct {
	stream      codec.Stream
	transformer *Transformer
	sess        *yamux.Session
}

// NewPeerServer constructs a PeerServer bound to cfg's listener.
func NewPeerServer(cfg config.BroadcastConfig, gs *gamestate.Mirror, events *event.Bus) *PeerServer {
	return &PeerServer{
		cfg:    cfg,
		gs:     gs,
		events: events,
		peers:  make(map[int32]*peerSession),
		log:    zap.S(),
	}
}

// SetOwnerIdentity records the owner's real Mojang profile, used to seed
// each peer Transformer's InitFromGameState and to label the player-list
// entry peers see for the owner's avatar.
func (p *PeerServer) SetOwnerIdentity(ownerUUID, ownerUsername string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ownerUUID = ownerUUID
	p.ownerName = ownerUsername
}

// SetOwnerNotifier installs the callback used to deliver spec.md §4.G item
// 7's chat line to the owner's own client when a spectator attaches.
func (p *PeerServer) SetOwnerNotifier(fn func(payload []byte) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifyOwner = fn
}

func (p *PeerServer) ownerIdentity() (id, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ownerUUID, p.ownerName
}

// Serve accepts spectator connections until ctx is cancelled or the
// listener fails.
func (p *PeerServer) Serve(ctx context.Context) error {
	if !p.cfg.Enabled {
		return nil
	}
	ln, err := net.Listen("tcp", p.cfg.Listen)
	if err != nil {
		return fmt.Errorf("broadcast: listen %s: %w", p.cfg.Listen, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go p.handlePeer(ctx, conn)
	}
}

// handlePeer wraps one peer's raw TCP connection in a yamux session and
// accepts a single stream from it, which carries ordinary framed packets;
// no further streams are accepted.
//
// The play stream itself runs the same Handshake -> Status|Login sequence
// a real client would against a real server (pkg/login.ReadHandshake),
// since the spectator client is an ordinary 1.8.9 client pointed at this
// listener, not a privileged internal API.
func (p *PeerServer) handlePeer(ctx context.Context, conn net.Conn) {
	sess, err := yamux.Server(conn, yamux.DefaultConfig())
	if err != nil {
		p.log.Errorw("broadcast: yamux handshake failed", "error", err, "remote", conn.RemoteAddr())
		conn.Close()
		return
	}

	playConn, err := sess.Accept()
	if err != nil {
		p.log.Errorw("broadcast: peer play stream failed", "error", err)
		sess.Close()
		return
	}

	stream := codec.NewConn(playConn)

	hs, err := login.ReadHandshake(stream)
	if err != nil {
		p.log.Debugw("broadcast: peer handshake failed", "error", err)
		stream.Close()
		sess.Close()
		return
	}

	if hs.NextState == state.Status {
		if err := p.serveStatus(stream); err != nil {
			p.log.Debugw("broadcast: peer status failed", "error", err)
		}
		stream.Close()
		sess.Close()
		return
	}

	username, _, err := p.loginPeer(stream)
	if err != nil {
		p.log.Warnw("broadcast: peer login failed", "error", err, "remote", conn.RemoteAddr())
		stream.Close()
		sess.Close()
		return
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	peerEID := peerEntityIDBase + id
	p.mu.Unlock()

	transformer := NewTransformer(p.gs,
		func(pid int32, payload []byte) error { return stream.WritePacket(pid, payload) },
		func(pid int32, payload []byte) error { return stream.WritePacket(pid, payload) },
	)
	ownerUUID, ownerName := p.ownerIdentity()
	transformer.InitFromGameState(ownerUUID, ownerName)
	transformer.SetClientEID(peerEID)

	if err := p.runLoginRitual(stream, transformer, peerEID, username); err != nil {
		p.log.Warnw("broadcast: peer login ritual failed", "error", err, "peer_id", id)
		stream.Close()
		sess.Close()
		return
	}

	ps := &peerSession{stream: stream, transformer: transformer, sess: sess}
	p.mu.Lock()
	p.peers[id] = ps
	p.mu.Unlock()

	p.log.Infow("broadcast: peer attached", "peer_id", id, "username", username, "remote", conn.RemoteAddr())
	p.announceAttach(username)

	p.readLoop(ctx, id, stream)

	p.mu.Lock()
	delete(p.peers, id)
	p.mu.Unlock()
	sess.Close()
}

// serveStatus answers a spectator client's status ping with a live peer
// count, mirroring pkg/login.ServeStatus but reporting this listener's own
// occupancy rather than the backend's.
func (p *PeerServer) serveStatus(stream codec.Stream) error {
	id, _, err := stream.ReadPacket()
	if err != nil {
		return err
	}
	if id != packet.StatusRequest {
		return fmt.Errorf("broadcast: expected status request, got id 0x%02X", id)
	}

	body := fmt.Sprintf(
		`{"version":{"name":"1.8.9","protocol":47},"players":{"max":-1,"online":%d},"description":{"text":"proxhy spectator feed"}}`,
		p.PeerCount(),
	)
	if err := stream.WritePacket(packet.StatusResponse, proto.PackString(body)); err != nil {
		return err
	}

	pingID, pingBuf, err := stream.ReadPacket()
	if err != nil {
		return err
	}
	if pingID != packet.StatusPing {
		return nil
	}
	payload, err := proto.UnpackLong(pingBuf)
	if err != nil {
		return err
	}
	return stream.WritePacket(packet.StatusPong, proto.PackLong(payload))
}

// loginPeer runs the spectator's own (offline, unencrypted) Login sequence:
// this listener is not the authoritative Mojang-facing endpoint, so it
// never asks for encryption, only a name to hand back in LoginSuccess.
func (p *PeerServer) loginPeer(stream codec.Stream) (username string, id uuid.UUID, err error) {
	lid, buf, err := stream.ReadPacket()
	if err != nil {
		return "", uuid.Nil, err
	}
	if lid != packet.LoginStart {
		return "", uuid.Nil, fmt.Errorf("broadcast: expected login start, got id 0x%02X", lid)
	}
	username, err = proto.UnpackString(buf)
	if err != nil {
		return "", uuid.Nil, err
	}

	id = uuid.NewMD5(uuid.NameSpaceOID, []byte("SpectatorPlayer:"+username))
	if err := stream.WritePacket(packet.LoginSuccess,
		proto.PackString(id.String()), proto.PackString(username),
	); err != nil {
		return "", uuid.Nil, err
	}
	return username, id, nil
}

// runLoginRitual drives a freshly logged-in peer through spec.md §4.G items
// 1-6 / §4.H before it is registered as an attached spectator: a join-game
// using the peer's own entity id (gamemode always forced to Spectator) in a
// dimension other than the owner's, then two respawns, the first into a
// dimension different from the join-game's and the second into the owner's
// current dimension, a full gamestate replay, a teleport to the owner's current position, Spectator abilities,
// and finally the non-standard mid-Play 0x46 set-compression handshake
// (acknowledged before compression is actually enabled, so the ack itself
// is read uncompressed) and the owner's avatar spawn.
func (p *PeerServer) runLoginRitual(stream codec.Stream, t *Transformer, peerEID int32, username string) error {
	self := p.gs.Self

	bounce := bounceDimension(self.Dimension)
	if err := stream.WritePacket(packet.CBJoinGame,
		proto.PackInt(peerEID),
		proto.PackUnsignedByte(uint8(gamestate.Spectator)), // hardcore bit (0x08) left unset
		proto.PackInt(int32(bounce)),
		proto.PackUnsignedByte(uint8(self.Difficulty)),
		proto.PackUnsignedByte(1), // max players, unused by the client beyond the player-list cap
		proto.PackString(self.LevelType),
		proto.PackBool(false), // reduced debug info
	); err != nil {
		return err
	}

	// Bounce through a second dimension and back: 1.8.9 clients only reset
	// their chunk cache on an actual dimension change, so without this the
	// peer would try to reuse (and fail to find) chunks it never received.
	if err := stream.WritePacket(packet.CBRespawn,
		proto.PackInt(int32(bounceDimension(bounce))),
		proto.PackUnsignedByte(uint8(self.Difficulty)),
		proto.PackUnsignedByte(uint8(gamestate.Spectator)),
		proto.PackString(self.LevelType),
	); err != nil {
		return err
	}
	if err := stream.WritePacket(packet.CBRespawn,
		proto.PackInt(int32(self.Dimension)),
		proto.PackUnsignedByte(uint8(self.Difficulty)),
		proto.PackUnsignedByte(uint8(gamestate.Spectator)),
		proto.PackString(self.LevelType),
	); err != nil {
		return err
	}

	for _, pkt := range p.gs.Replay() {
		if err := stream.WritePacket(pkt.ID, pkt.Payload); err != nil {
			return err
		}
	}

	if err := stream.WritePacket(packet.CBPlayerPositionAndLook,
		proto.PackDouble(self.Position.X), proto.PackDouble(self.Position.Y), proto.PackDouble(self.Position.Z),
		proto.PackFloat(self.Rotation.Yaw), proto.PackFloat(self.Rotation.Pitch),
		proto.PackByte(0), // absolute on every axis
	); err != nil {
		return err
	}

	if err := stream.WritePacket(packet.CBPlayerAbilities,
		proto.PackByte(int8(gamestate.AbilityInvulnerable|gamestate.AbilityAllowFlying|gamestate.AbilityFlying)),
		proto.PackFloat(0.05),
		proto.PackFloat(0.1),
	); err != nil {
		return err
	}

	if err := stream.WritePacket(packet.CBSetCompression, proto.PackVarInt(int32(p.cfg.CompressionThreshold))); err != nil {
		return err
	}
	// The ack is whatever the client sends next (1.8.9 has no dedicated
	// acknowledgement packet for a mid-Play CBSetCompression); it must be
	// read before compression is enabled on this side since the client
	// hasn't switched over yet either.
	if _, _, err := stream.ReadPacket(); err != nil {
		return err
	}
	stream.SetCompressionThreshold(p.cfg.CompressionThreshold)

	return t.SpawnAvatar()
}

// bounceDimension returns a dimension distinct from d to force a 1.8.9
// client to reset its chunk cache during the login ritual's dimension
// bounce (spec.md §4.G item 1).
func bounceDimension(d gamestate.Dimension) gamestate.Dimension {
	if d == gamestate.Overworld {
		return gamestate.Nether
	}
	return gamestate.Overworld
}

// announceAttach sends the owner a chat line naming the spectator that just
// attached, per spec.md §4.G item 7.
func (p *PeerServer) announceAttach(username string) {
	p.mu.Lock()
	notify := p.notifyOwner
	p.mu.Unlock()
	if notify == nil {
		return
	}
	body := fmt.Sprintf(`{"text":"%s is now spectating your stream","color":"yellow"}`, username)
	if err := notify(proto.PackString(body)); err != nil {
		p.log.Debugw("broadcast: owner chat notify failed", "error", err)
	}
}

// readLoop drains the peer's own serverbound traffic until the stream
// closes or ctx is cancelled. Per spec.md §4.G the re-framing input is the
// owner's serverbound stream, not the peer's own — a peer only ever moves
// its own spectator camera, which needs no synthetic entity updates — so
// every packet read here, keep-alive replies included, is discarded, never
// fed into a Transformer. A ticker alongside sends a keep-alive every 10
// seconds so idle peers aren't timed out by the client's own keep-alive
// watchdog.
func (p *PeerServer) readLoop(ctx context.Context, id int32, stream codec.Stream) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				payload := proto.PackVarInt(rand.Int31())
				if err := stream.WritePacket(packet.CBKeepAlive, payload); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := stream.ReadPacket(); err != nil {
			p.log.Debugw("broadcast: peer disconnected", "peer_id", id, "error", err)
			return
		}
	}
}

// Broadcast re-frames one owner clientbound packet through every attached
// peer's Transformer, per spec.md §4.G's fan-out. Errors from individual
// peers are logged and do not stop the fan-out to the rest. Each peer's own
// Transformer.SpawnAvatar is passed as that peer's spawnCallback, since
// avatar-(re)spawning is inherently per-peer (each tracks its own spawned
// state), unlike the rest of the forwarded packet which is shared.
func (p *PeerServer) Broadcast(id int32, full []byte) {
	p.mu.Lock()
	peers := make([]*peerSession, 0, len(p.peers))
	for _, ps := range p.peers {
		peers = append(peers, ps)
	}
	p.mu.Unlock()

	for _, ps := range peers {
		if err := ps.transformer.ForwardClientboundPacket(id, full, ps.transformer.SpawnAvatar); err != nil {
			p.log.Errorw("broadcast: forward to peer failed", "error", err)
		}
	}
}

// BroadcastServerbound re-frames one owner serverbound Play packet through
// every attached peer's Transformer, per spec.md §4.G: the owner's own
// movement/action packets are what drive the synthetic avatar updates
// peers see, not anything the peers themselves send.
func (p *PeerServer) BroadcastServerbound(id int32, fields []byte) {
	p.mu.Lock()
	peers := make([]*peerSession, 0, len(p.peers))
	for _, ps := range p.peers {
		peers = append(peers, ps)
	}
	p.mu.Unlock()

	for _, ps := range peers {
		if err := ps.transformer.HandleServerboundPacket(id, fields); err != nil {
			p.log.Errorw("broadcast: re-frame owner packet failed", "error", err)
		}
	}
}

// PeerCount reports the number of currently attached spectators.
func (p *PeerServer) PeerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}
