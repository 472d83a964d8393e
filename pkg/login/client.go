package login

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kbidlack/proxhy-go/pkg/auth"
	"github.com/kbidlack/proxhy-go/pkg/config"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/codec"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
)

// statusResponse is the JSON body of a 0x00 Status response, per spec.md
// §4.E's minimal status-ping support (players online/description, nothing
// world-state dependent since the proxy has no world of its own to report
// during Status).
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

// ServeStatus answers a client stuck in the Status state with a canned
// response and echoes its ping, then returns (the client always closes the
// connection itself afterward, per the 1.8.9 status protocol).
func ServeStatus(client codec.Stream) error {
	id, _, err := client.ReadPacket()
	if err != nil {
		return err
	}
	if id != packet.StatusRequest {
		return fmt.Errorf("login: expected status request, got id 0x%02X", id)
	}

	resp := statusResponse{}
	resp.Version.Name = "1.8.9"
	resp.Version.Protocol = 47
	resp.Players.Max = 1
	resp.Players.Online = 0
	resp.Description.Text = "proxhy"
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := client.WritePacket(packet.StatusResponse, proto.PackString(string(body))); err != nil {
		return err
	}

	pingID, pingBuf, err := client.ReadPacket()
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
	return client.WritePacket(packet.StatusPong, proto.PackLong(payload))
}

// ClientLogin runs the client's half of Login: read LoginStart, always run
// an encryption-request round trip with the proxy's own key and verify
// token (the client is not checked against Mojang's session server), enable
// encryption, apply the configured compression threshold, and send
// LoginSuccess. Returns the username the client claims and the uuid sent in
// LoginSuccess.
func ClientLogin(ctx context.Context, cfg *config.Config, client codec.Stream, priv *rsa.PrivateKey, verifyToken []byte, creds auth.Credentials) (username string, id uuid.UUID, err error) {
	lid, buf, err := client.ReadPacket()
	if err != nil {
		return "", uuid.Nil, err
	}
	if lid != packet.LoginStart {
		return "", uuid.Nil, fmt.Errorf("login: expected login start, got id 0x%02X", lid)
	}
	username, err = proto.UnpackString(buf)
	if err != nil {
		return "", uuid.Nil, err
	}

	pub, err := auth.PublicKeyDER(&priv.PublicKey)
	if err != nil {
		return "", uuid.Nil, err
	}

	encReq := proto.BuildPacket(packet.LoginEncryptionRequest,
		proto.PackString("-"),
		proto.PackByteArray(pub),
		proto.PackByteArray(verifyToken),
	)
	if err := client.Write(encReq); err != nil {
		return "", uuid.Nil, err
	}

	eid, ebuf, err := client.ReadPacket()
	if err != nil {
		return "", uuid.Nil, err
	}
	if eid != packet.LoginEncryptionResponse {
		return "", uuid.Nil, fmt.Errorf("login: expected encryption response, got id 0x%02X", eid)
	}
	secretLen, err := proto.UnpackVarInt(ebuf)
	if err != nil {
		return "", uuid.Nil, err
	}
	encSecret, err := ebuf.ReadN(int(secretLen))
	if err != nil {
		return "", uuid.Nil, err
	}
	tokenLen, err := proto.UnpackVarInt(ebuf)
	if err != nil {
		return "", uuid.Nil, err
	}
	encToken, err := ebuf.ReadN(int(tokenLen))
	if err != nil {
		return "", uuid.Nil, err
	}

	sharedSecret, err := auth.DecryptPKCS1v15(priv, encSecret)
	if err != nil {
		return "", uuid.Nil, err
	}
	returnedToken, err := auth.DecryptPKCS1v15(priv, encToken)
	if err != nil {
		return "", uuid.Nil, err
	}
	if !bytesEqual(returnedToken, verifyToken) {
		return "", uuid.Nil, fmt.Errorf("login: verify token mismatch")
	}

	if err := client.EnableEncryption(sharedSecret); err != nil {
		return "", uuid.Nil, err
	}

	if cfg.CompressionThreshold >= 0 {
		if err := client.WritePacket(packet.LoginSetCompression, proto.PackVarInt(int32(cfg.CompressionThreshold))); err != nil {
			return "", uuid.Nil, err
		}
		client.SetCompressionThreshold(cfg.CompressionThreshold)
	}

	// The client must see the backend's real Mojang-issued uuid, not a
	// locally derived one, so that anything it keys off profile identity
	// (skins, server-side whitelists reflected back through chat, etc.)
	// matches the session the backend actually authenticated.
	playerUUID, err := uuid.Parse(creds.UUID)
	if err != nil {
		playerUUID = offlineUUID(username)
	}
	if err := client.WritePacket(packet.LoginSuccess,
		proto.PackString(playerUUID.String()),
		proto.PackString(username),
	); err != nil {
		return "", uuid.Nil, err
	}

	return username, playerUUID, nil
}

// offlineUUID derives a deterministic name-based (MD5, version 3) UUID from
// "OfflinePlayer:"+name in the OID namespace. ClientLogin sends it in
// LoginSuccess only when the cached credentials' uuid does not parse.
func offlineUUID(name string) uuid.UUID {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte("OfflinePlayer:"+name))
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
