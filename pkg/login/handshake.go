// Package login implements the Handshaking -> Status/Login -> Play state
// transitions described in spec.md §4.D/§4.E: parsing the client's
// handshake, answering status pings, running the encryption/compression
// handshake against both the client and the real backend, and handing the
// resulting pair of streams to a pkg/session.Engine for the Play state.
//
// Grounded on protocol/handshake.py and protocol/login.py's client/server
// login sequences, reworked from the original's awaitable request/response
// pairs into direct blocking calls over codec.Stream (pkg/session's Engine
// runs the Play-state loops once this package hands off; everything here
// runs before Run is ever called).
package login

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/kbidlack/proxhy-go/pkg/auth"
	"github.com/kbidlack/proxhy-go/pkg/auth/cache"
	"github.com/kbidlack/proxhy-go/pkg/config"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/codec"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
)

// Handshake is the parsed content of a 0x00 handshake packet.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       state.State
}

// ReadHandshake reads and parses the client's opening handshake packet.
func ReadHandshake(client codec.Stream) (Handshake, error) {
	id, buf, err := client.ReadPacket()
	if err != nil {
		return Handshake{}, err
	}
	if id != packet.HandshakeSetProtocol {
		return Handshake{}, fmt.Errorf("login: expected handshake packet, got id 0x%02X", id)
	}

	protoVer, err := proto.UnpackVarInt(buf)
	if err != nil {
		return Handshake{}, err
	}
	addr, err := proto.UnpackString(buf)
	if err != nil {
		return Handshake{}, err
	}
	port, err := proto.UnpackUnsignedShort(buf)
	if err != nil {
		return Handshake{}, err
	}
	next, err := proto.UnpackVarInt(buf)
	if err != nil {
		return Handshake{}, err
	}

	var nextState state.State
	switch next {
	case 1:
		nextState = state.Status
	case 2:
		nextState = state.Login
	default:
		return Handshake{}, fmt.Errorf("login: handshake next_state %d is neither status nor login", next)
	}

	return Handshake{
		ProtocolVersion: protoVer,
		ServerAddress:   addr,
		ServerPort:      port,
		NextState:       nextState,
	}, nil
}

// PackHandshake builds the synthesised handshake the proxy forwards
// upstream, substituting (fakeHost, fakePort) for whatever the real client
// sent, per spec.md §4.D.
func PackHandshake(protocolVersion int32, fakeHost string, fakePort uint16, next state.State) []byte {
	var nextVal int32
	if next == state.Status {
		nextVal = 1
	} else {
		nextVal = 2
	}
	parts := proto.PackVarInt(protocolVersion)
	parts = append(parts, proto.PackString(fakeHost)...)
	parts = append(parts, proto.PackUnsignedShort(fakePort)...)
	parts = append(parts, proto.PackVarInt(nextVal)...)
	return proto.BuildPacket(packet.HandshakeSetProtocol, parts)
}

// DialBackend opens a fresh TCP connection to the configured upstream and
// performs the handshake + login ritual, returning a ready Play-state
// Stream once the backend sends LoginSuccess. The LoginSuccess body is not
// read, so the backend's username/uuid are not compared with creds.
func DialBackend(ctx context.Context, cfg *config.Config, priv *rsa.PrivateKey, creds auth.Credentials, sessions *cache.Cache) (codec.Stream, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", cfg.ConnectHost, cfg.ConnectPort))
	if err != nil {
		return nil, fmt.Errorf("login: dial backend: %w", err)
	}
	server := codec.NewConn(conn)

	hsPayload := PackHandshake(47, cfg.FakeHost, cfg.FakePort, state.Login)
	if err := server.Write(hsPayload); err != nil {
		server.Close()
		return nil, err
	}

	loginStart := proto.BuildPacket(packet.LoginStart, proto.PackString(creds.Username))
	if err := server.Write(loginStart); err != nil {
		server.Close()
		return nil, err
	}

	for {
		id, buf, err := server.ReadPacket()
		if err != nil {
			server.Close()
			return nil, err
		}
		switch id {
		case packet.LoginDisconnect:
			reason, _ := proto.UnpackString(buf)
			server.Close()
			return nil, fmt.Errorf("login: backend rejected login: %s", reason)

		case packet.LoginEncryptionRequest:
			if err := respondToBackendEncryption(server, buf, creds, cfg, sessions); err != nil {
				server.Close()
				return nil, err
			}

		case packet.LoginSetCompression:
			threshold, err := proto.UnpackVarInt(buf)
			if err != nil {
				server.Close()
				return nil, err
			}
			server.SetCompressionThreshold(int(threshold))

		case packet.LoginSuccess:
			return server, nil

		default:
			zap.S().Warnw("login: unexpected packet from backend during login", "id", id)
		}
	}
}

// alreadyJoined reports whether sessions already holds this exact
// (host,port,serverID,pubKey) tuple, meaning the proxy has already
// completed a Mojang session-join for this precise backend handshake and
// the join POST can be skipped, per spec.md's Mojang cache fast path.
func alreadyJoined(sessions *cache.Cache, cfg *config.Config, serverID string, pubKeyDER []byte) bool {
	if sessions == nil || cfg == nil {
		return false
	}
	entry, ok := sessions.Get(cfg.ConnectHost, cfg.ConnectPort)
	if !ok {
		return false
	}
	return entry.ServerID == serverID && bytes.Equal(entry.PublicKey, pubKeyDER)
}

// respondToBackendEncryption completes the backend's half of the Mojang
// session-join handshake when the proxy is itself acting as a client to the
// real server: it decodes the encryption request, posts the session join to
// Mojang's session server (skipped when the server id is "-" or
// alreadyJoined reports a cached match), records the handshake in sessions,
// and answers with the RSA-wrapped shared secret and verify token.
func respondToBackendEncryption(server codec.Stream, buf *proto.Buffer, creds auth.Credentials, cfg *config.Config, sessions *cache.Cache) error {
	serverID, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	pubKeyLen, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	pubKeyDER, err := buf.ReadN(int(pubKeyLen))
	if err != nil {
		return err
	}
	tokenLen, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	verifyToken, err := buf.ReadN(int(tokenLen))
	if err != nil {
		return err
	}

	sharedSecret := make([]byte, 16)
	if _, err := rand.Read(sharedSecret); err != nil {
		return err
	}

	if serverID != "-" && !alreadyJoined(sessions, cfg, serverID, pubKeyDER) {
		hash := auth.VerificationHash(serverID, sharedSecret, pubKeyDER)
		if err := auth.JoinSession(creds.AccessToken, creds.UUID, hash); err != nil {
			return fmt.Errorf("login: session join with backend failed: %w", err)
		}
	}

	if sessions != nil && cfg != nil {
		_ = sessions.Put(cfg.ConnectHost, cfg.ConnectPort, cache.Entry{ServerID: serverID, PublicKey: pubKeyDER})
	}

	encSecret, err := auth.EncryptPKCS1v15(pubKeyDER, sharedSecret)
	if err != nil {
		return err
	}
	encToken, err := auth.EncryptPKCS1v15(pubKeyDER, verifyToken)
	if err != nil {
		return err
	}

	resp := proto.BuildPacket(packet.LoginEncryptionResponse,
		proto.PackByteArray(encSecret),
		proto.PackByteArray(encToken),
	)
	if err := server.Write(resp); err != nil {
		return err
	}
	return server.EnableEncryption(sharedSecret)
}
