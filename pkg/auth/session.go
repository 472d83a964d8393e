package auth

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Credentials is the outcome of a completed login: enough to answer the
// Mojang session-join check and to present a profile to the backend.
type Credentials struct {
	Username    string
	UUID        string
	AccessToken string
}

// XboxChain is the subset of httpclient.Client's methods the refresh/login
// orchestration needs; declared here (rather than importing
// pkg/auth/httpclient directly) so this package stays free of an import
// cycle with the client that wraps auth.Error.
type XboxChain interface {
	XboxLiveAuth(msAccessToken string) (token, uhs string, err error)
	XSTSAuthorize(xblToken string) (token, uhs string, err error)
	MinecraftLoginWithXbox(uhs, xstsToken string) (string, error)
	CheckOwnership(mcAccessToken string) (bool, error)
	Profile(mcAccessToken string) (username, uuid string, err error)
	RefreshAccessToken(refreshToken, clientID string) (accessToken, newRefreshToken string, err error)
}

// RefreshLimiter throttles refresh attempts so a broken client or a flaky
// upstream cannot hammer login.live.com; grounded on spec.md §5's backoff
// requirement for the auth pipeline. One token every 10s, burst of 1 — a
// human reconnecting or a legitimate session refresh never needs more.
func RefreshLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(10*time.Second), 1)
}

// LoginWithXboxChain runs the MSA-token -> Xbox Live -> XSTS ->
// Minecraft-services -> profile chain, the part of auth/ms.py's login/
// login_with_refresh_token shared by both entry points once an MSA access
// token is in hand.
func LoginWithXboxChain(ctx context.Context, chain XboxChain, msAccessToken string) (Credentials, error) {
	xblToken, uhs, err := chain.XboxLiveAuth(msAccessToken)
	if err != nil {
		return Credentials{}, err
	}
	xstsToken, uhs2, err := chain.XSTSAuthorize(xblToken)
	if err != nil {
		return Credentials{}, err
	}
	if uhs2 != "" {
		uhs = uhs2
	}
	mcToken, err := chain.MinecraftLoginWithXbox(uhs, xstsToken)
	if err != nil {
		return Credentials{}, err
	}
	owns, err := chain.CheckOwnership(mcToken)
	if err != nil {
		return Credentials{}, err
	}
	if !owns {
		return Credentials{}, &Error{Kind: ErrNotPremium}
	}
	username, uuid, err := chain.Profile(mcToken)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Username: username, UUID: uuid, AccessToken: mcToken}, nil
}

// refreshWindow is the age past which IsStale reports a cached token as
// needing a refresh through the chain: 23 hours, kept just under
// Microsoft's ~24h token lifetime.
const refreshWindow = 23 * time.Hour

// IsStale reports whether a token issued at issuedAt needs refreshing.
func IsStale(issuedAt time.Time, now time.Time) bool {
	return now.Sub(issuedAt) > refreshWindow
}
