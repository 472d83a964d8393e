package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const sessionJoinURL = "https://sessionserver.mojang.com/session/minecraft/join"

// JoinSession performs the client-side half of the Mojang session-join
// handshake: POSTing (accessToken, selectedProfile, serverId) so the
// session server can later answer hasJoined for the real backend, per
// protocol/crypt.py's join_session. serverId must be the VerificationHash
// computed over the same server id string, shared secret, and public key
// the backend sent in its EncryptionRequest.
func JoinSession(accessToken, profileUUID, serverID string) error {
	payload := struct {
		AccessToken     string `json:"accessToken"`
		SelectedProfile string `json:"selectedProfile"`
		ServerID        string `json:"serverId"`
	}{
		AccessToken:     accessToken,
		SelectedProfile: profileUUID,
		ServerID:        serverID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(sessionJoinURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	client := &fasthttp.Client{Name: "proxhy-go"}
	if err := client.DoTimeout(req, resp, 15*time.Second); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusNoContent && resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("auth: session join rejected (status %d): %s", resp.StatusCode(), resp.Body())
	}
	return nil
}
