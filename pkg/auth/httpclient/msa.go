// Package httpclient implements the Microsoft/Xbox-Live/XSTS/Minecraft-
// services auth chain over github.com/valyala/fasthttp, grounded on
// auth/ms.py's _xbox_live_auth/_xsts_authorize/_mc_login_with_xbox/
// _mc_profile and their error classification (child account, no Xbox
// profile, interactive challenge required).
package httpclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/kbidlack/proxhy-go/pkg/auth"
)

const (
	xblUserAuthURL  = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthorizeURL = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcLoginWithXboxURL = "https://api.minecraftservices.com/authentication/login_with_xbox"
	mcEntitlementsURL  = "https://api.minecraftservices.com/entitlements/mcstore"
	mcProfileURL       = "https://api.minecraftservices.com/minecraft/profile"
	msRefreshURL       = "https://login.live.com/oauth20_token.srf"

	xstsChildAccountErr = 2148916238
	xstsNoProfileErr    = 2148916233
)

// Client is a small fasthttp-backed client for the MSA auth chain; one
// instance is reused across logins (fasthttp clients pool connections
// internally, per its docs, so there is no per-request dial cost after the
// first request to each host).
type Client struct {
	hc *fasthttp.Client
}

// New returns a Client that keeps idle connections for 90 seconds. It sets
// no client-wide timeout; each request passes its own.
func New() *Client {
	return &Client{hc: &fasthttp.Client{
		Name:                "proxhy-go",
		MaxIdleConnDuration: 90 * time.Second,
	}}
}

func (c *Client) postJSON(url string, body interface{}, timeout time.Duration) (*fasthttp.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBody(payload)

	resp := fasthttp.AcquireResponse()
	if err := c.hc.DoTimeout(req, resp, timeout); err != nil {
		fasthttp.ReleaseResponse(resp)
		return nil, err
	}
	return resp, nil
}

// XboxLiveAuth exchanges a Microsoft access token for an Xbox Live token
// and user hash, retrying the RPS ticket with and without the "d="
// prefix exactly as auth/ms.py's _xbox_live_auth does (different account
// types need different ticket framing).
func (c *Client) XboxLiveAuth(msAccessToken string) (token, uhs string, err error) {
	for _, ticket := range []string{"d=" + msAccessToken, msAccessToken} {
		payload := map[string]interface{}{
			"Properties": map[string]interface{}{
				"AuthMethod": "RPS",
				"SiteName":   "user.auth.xboxlive.com",
				"RpsTicket":  ticket,
			},
			"RelyingParty": "http://auth.xboxlive.com",
			"TokenType":    "JWT",
		}
		resp, reqErr := c.postJSON(xblUserAuthURL, payload, 15*time.Second)
		if reqErr != nil {
			err = reqErr
			continue
		}
		status := resp.StatusCode()
		var data xblResponse
		decodeErr := json.Unmarshal(resp.Body(), &data)
		fasthttp.ReleaseResponse(resp)
		if status >= 200 && status < 300 && decodeErr == nil && data.Token != "" && len(data.DisplayClaims.Xui) > 0 {
			return data.Token, data.DisplayClaims.Xui[0].UHS, nil
		}
		err = fmt.Errorf("xbox live auth failed (status %d)", status)
	}
	return "", "", &auth.Error{Kind: auth.ErrInteractiveChallengeRequired, Detail: err.Error()}
}

type xblResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		Xui []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

// XSTSAuthorize exchanges an Xbox Live token for the XSTS token used to
// call Minecraft services, classifying 401 XErr codes the same way
// auth/ms.py's _xsts_authorize does.
func (c *Client) XSTSAuthorize(xblToken string) (token, uhs string, err error) {
	payload := map[string]interface{}{
		"Properties": map[string]interface{}{
			"SandboxId":  "RETAIL",
			"UserTokens": []string{xblToken},
		},
		"RelyingParty": "rp://api.minecraftservices.com/",
		"TokenType":    "JWT",
	}
	resp, reqErr := c.postJSON(xstsAuthorizeURL, payload, 15*time.Second)
	if reqErr != nil {
		return "", "", reqErr
	}
	defer fasthttp.ReleaseResponse(resp)

	if resp.StatusCode() == fasthttp.StatusUnauthorized {
		var xerr struct {
			XErr int64 `json:"XErr"`
		}
		_ = json.Unmarshal(resp.Body(), &xerr)
		switch xerr.XErr {
		case xstsChildAccountErr:
			return "", "", &auth.Error{Kind: auth.ErrChildAccount}
		case xstsNoProfileErr:
			return "", "", &auth.Error{Kind: auth.ErrNoXboxProfile}
		}
		return "", "", &auth.Error{Kind: auth.ErrInteractiveChallengeRequired, Detail: "XSTS-401"}
	}

	var data xblResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil || data.Token == "" || len(data.DisplayClaims.Xui) == 0 {
		return "", "", &auth.Error{Kind: auth.ErrInteractiveChallengeRequired, Detail: "XSTS response malformed"}
	}
	return data.Token, data.DisplayClaims.Xui[0].UHS, nil
}

// MinecraftLoginWithXbox exchanges (uhs, xstsToken) for a Minecraft
// services access token, per auth/ms.py's _mc_login_with_xbox identity
// string "XBL3.0 x=<uhs>;<xsts token>".
func (c *Client) MinecraftLoginWithXbox(uhs, xstsToken string) (string, error) {
	ident := fmt.Sprintf("XBL3.0 x=%s;%s", uhs, xstsToken)
	payload := map[string]string{"identityToken": ident}

	resp, err := c.postJSON(mcLoginWithXboxURL, payload, 15*time.Second)
	if err != nil {
		return "", err
	}
	defer fasthttp.ReleaseResponse(resp)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil || data.AccessToken == "" {
		return "", &auth.Error{Kind: auth.ErrNotPremium, Detail: "minecraftservices login failed"}
	}
	return data.AccessToken, nil
}

// CheckOwnership confirms the account owns Minecraft, per _mc_check_ownership.
func (c *Client) CheckOwnership(mcAccessToken string) (bool, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(mcEntitlementsURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+mcAccessToken)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	if err := c.hc.DoTimeout(req, resp, 15*time.Second); err != nil {
		return false, err
	}

	var data struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return false, err
	}
	return len(data.Items) > 0, nil
}

// Profile fetches the account's Minecraft username/uuid, per _mc_profile.
func (c *Client) Profile(mcAccessToken string) (username, uuid string, err error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(mcProfileURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+mcAccessToken)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	if reqErr := c.hc.DoTimeout(req, resp, 15*time.Second); reqErr != nil {
		return "", "", reqErr
	}

	if resp.StatusCode() == fasthttp.StatusNotFound {
		return "", "", &auth.Error{Kind: auth.ErrNotPremium, Detail: "no Minecraft profile"}
	}

	var data struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return "", "", err
	}
	return data.Name, data.ID, nil
}

// RefreshAccessToken exchanges a refresh token for a fresh MS access/refresh
// token pair, grounded on auth/ms.py's refresh_ms_token (the original's
// refresh_access_token was an explicit NotImplementedError stub; this fills
// it in the same way the working refresh_ms_token in the same module does).
func (c *Client) RefreshAccessToken(refreshToken, clientID string) (accessToken, newRefreshToken string, err error) {
	form := fmt.Sprintf(
		"client_id=%s&grant_type=refresh_token&scope=service%%3A%%3Auser.auth.xboxlive.com%%3A%%3AMBI_SSL&refresh_token=%s&redirect_uri=https%%3A%%2F%%2Flogin.live.com%%2Foauth20_desktop.srf",
		clientID, refreshToken,
	)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(msRefreshURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(form)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	if reqErr := c.hc.DoTimeout(req, resp, 30*time.Second); reqErr != nil {
		return "", "", reqErr
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", "", &auth.Error{Kind: auth.ErrRefreshExpired, Detail: fmt.Sprintf("status %d", resp.StatusCode())}
	}

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil || data.AccessToken == "" {
		return "", "", &auth.Error{Kind: auth.ErrRefreshExpired, Detail: "malformed refresh response"}
	}
	return data.AccessToken, data.RefreshToken, nil
}
