package proxhy

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kbidlack/proxhy-go/pkg/auth"
	authcache "github.com/kbidlack/proxhy-go/pkg/auth/cache"
	"github.com/kbidlack/proxhy-go/pkg/auth/httpclient"
	"github.com/kbidlack/proxhy-go/pkg/auth/store"
	"github.com/kbidlack/proxhy-go/pkg/broadcast"
	"github.com/kbidlack/proxhy-go/pkg/config"
	"github.com/kbidlack/proxhy-go/pkg/event"
	"github.com/kbidlack/proxhy-go/pkg/gamestate"
	"github.com/kbidlack/proxhy-go/pkg/login"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/codec"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
	"github.com/kbidlack/proxhy-go/pkg/session"
	"github.com/kbidlack/proxhy-go/pkg/settings"
)

// Run loads configuration, resolves login credentials, and accepts client
// connections until a termination signal arrives, adapted from
// cmd/gate/gate.go's viper.Unmarshal -> initLogger -> signal-handling ->
// p.Run() sequence.
func Run() (err error) {
	cfg := config.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("proxhy: error loading config: %w", err)
	}
	if err := initLogger(cfg.Debug); err != nil {
		return fmt.Errorf("proxhy: error initializing logger: %w", err)
	}
	if err := config.Validate(&cfg); err != nil {
		return fmt.Errorf("proxhy: error validating config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer func() { signal.Stop(sig); close(sig) }()
	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		zap.S().Infof("proxhy: received %s, shutting down", s)
		cancel()
	}()

	creds, err := resolveCredentials(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("proxhy: login failed: %w", err)
	}
	zap.S().Infow("proxhy: authenticated", "username", creds.Username)

	priv, err := auth.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("proxhy: generating login keypair: %w", err)
	}

	sessions, err := authcache.Open(filepath.Join(cfg.CredentialDir, "handshakes"))
	if err != nil {
		return fmt.Errorf("proxhy: opening handshake cache: %w", err)
	}

	gs := gamestate.New()
	events := event.NewBus()
	settingsStore := settings.NewStore()
	peers := broadcast.NewPeerServer(cfg.Broadcast, gs, events)
	go func() {
		if err := peers.Serve(ctx); err != nil {
			zap.S().Errorw("proxhy: broadcast listener stopped", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("proxhy: listen %s: %w", cfg.Listen, err)
	}
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	zap.S().Infow("proxhy: listening", "addr", cfg.Listen, "backend", fmt.Sprintf("%s:%d", cfg.ConnectHost, cfg.ConnectPort))

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
		go handleClient(ctx, &cfg, priv, creds, sessions, gs, events, peers, settingsStore, conn)
	}
}

func handleClient(ctx context.Context, cfg *config.Config, priv *rsa.PrivateKey, creds auth.Credentials, sessions *authcache.Cache, gs *gamestate.Mirror, events *event.Bus, peers *broadcast.PeerServer, settingsStore *settings.Store, conn net.Conn) {
	client := codec.NewConn(conn)
	log := zap.S().With("remote", conn.RemoteAddr())

	hs, err := login.ReadHandshake(client)
	if err != nil {
		log.Debugw("proxhy: handshake failed", "error", err)
		client.Close()
		return
	}

	switch hs.NextState {
	case state.Status:
		if err := login.ServeStatus(client); err != nil {
			log.Debugw("proxhy: status failed", "error", err)
		}
		client.Close()
		return

	case state.Login:
		verifyToken := make([]byte, 4)
		if _, err := rand.Read(verifyToken); err != nil {
			client.Close()
			return
		}
		username, _, err := login.ClientLogin(ctx, cfg, client, priv, verifyToken, creds)
		if err != nil {
			log.Warnw("proxhy: client login failed", "error", err)
			disconnectLogin(client, reasonFor(err))
			client.Close()
			return
		}
		log.Infow("proxhy: client authenticated", "username", username)

		server, err := login.DialBackend(ctx, cfg, priv, creds, sessions)
		if err != nil {
			log.Errorw("proxhy: backend login failed", "error", err)
			disconnectPlay(client, reasonFor(err))
			client.Close()
			return
		}

		table := session.NewTable()
		table.Merge(login.BuildGameStateTable(gs))
		table.Merge(broadcast.BuildTable(peers))
		table.Merge(settings.BuildTable(settingsStore))

		engine := session.New(client, table, events, gs)
		engine.SetServer(server)
		engine.SetState(state.Play)

		peers.SetOwnerIdentity(creds.UUID, creds.Username)
		peers.SetOwnerNotifier(func(payload []byte) error {
			return client.WritePacket(packet.CBChatMessage, payload)
		})

		runErr := engine.Run(ctx)
		if runErr != nil && runErr != session.ErrTransferred {
			log.Debugw("proxhy: session ended", "error", runErr)
		}
	}
}

// reasonFor renders an error as the chat line a disconnecting client sees:
// an *auth.Error gets its spec.md §7 coloured ChatLine, anything else a
// plain-text fallback.
func reasonFor(err error) proto.TextComponent {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr.ChatLine()
	}
	return proto.Plain(fmt.Sprintf("proxhy: %v", err))
}

// disconnectLogin sends a Login-state disconnect (the client has not yet
// received LoginSuccess, so it is still in Login).
func disconnectLogin(client codec.Stream, reason proto.TextComponent) {
	body, err := reason.MarshalJSON()
	if err != nil {
		return
	}
	_ = client.WritePacket(packet.LoginDisconnect, proto.PackString(string(body)))
}

// disconnectPlay sends a Play-state disconnect (0x40): used once the client
// has already received LoginSuccess (e.g. a backend-dial failure after
// login completed), per spec.md §7's Upstream-unavailable propagation
// policy.
func disconnectPlay(client codec.Stream, reason proto.TextComponent) {
	body, err := reason.MarshalJSON()
	if err != nil {
		return
	}
	_ = client.WritePacket(packet.CBDisconnect, proto.PackString(string(body)))
}

func initLogger(debug bool) (err error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}

// resolveCredentials loads a cached, still-fresh credential record for
// cfg.Username, refreshing it through the Xbox chain when stale, per
// spec.md §5's auth pipeline. A cold start with no cached record returns an
// error naming the interactive device-code flow as the only gap left
// (see DESIGN.md's Open Question decision on this) rather than guessing at
// an unverified flow.
func resolveCredentials(ctx context.Context, cfg *config.Config) (auth.Credentials, error) {
	st, err := store.Open(cfg.CredentialDir, storeKey(cfg))
	if err != nil {
		return auth.Credentials{}, err
	}
	if !st.Exists(cfg.Username) {
		return auth.Credentials{}, fmt.Errorf("no cached credentials for %q; run the interactive login flow first", cfg.Username)
	}
	rec, err := st.Load(cfg.Username)
	if err != nil {
		return auth.Credentials{}, err
	}

	client := httpclient.New()
	issuedAt := time.Unix(rec.IssuedAtUnix, 0)
	if auth.IsStale(issuedAt, time.Now()) {
		limiter := auth.RefreshLimiter()
		if err := limiter.Wait(ctx); err != nil {
			return auth.Credentials{}, err
		}
		msToken, newRefresh, err := client.RefreshAccessToken(rec.RefreshToken, msaClientID)
		if err != nil {
			return auth.Credentials{}, err
		}
		rec.RefreshToken = newRefresh
		creds, err := auth.LoginWithXboxChain(ctx, client, msToken)
		if err != nil {
			return auth.Credentials{}, err
		}
		rec.AccessToken = creds.AccessToken
		rec.UUID = creds.UUID
		rec.Username = creds.Username
		rec.IssuedAtUnix = time.Now().Unix()
		if err := st.Save(rec); err != nil {
			return auth.Credentials{}, err
		}
	}

	return auth.Credentials{Username: rec.Username, UUID: rec.UUID, AccessToken: rec.AccessToken}, nil
}

// msaClientID is the Microsoft OAuth client id the device-code/refresh flow
// authenticates as, matching auth/ms.py's CLIENT_ID constant.
const msaClientID = "00000000402b5328"

// storeKey derives the AES-GCM key for pkg/auth/store from the credential
// directory and account, so distinct accounts sharing one CredentialDir
// still get distinct seals.
func storeKey(cfg *config.Config) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("proxhy-go:%s:%s", cfg.CredentialDir, cfg.Username)))
}
