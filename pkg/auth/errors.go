package auth

import (
	"fmt"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/color"

	"github.com/kbidlack/proxhy-go/pkg/proto"
)

// ErrorKind is a closed enum of the credential failures spec.md §7 names,
// surfaced to the client as a coloured chat line rather than a stack trace.
type ErrorKind uint8

const (
	ErrWrongPassword ErrorKind = iota
	ErrRefreshExpired
	ErrInteractiveChallengeRequired
	ErrNotPremium
	ErrNoXboxProfile
	ErrChildAccount
)

func (k ErrorKind) String() string {
	switch k {
	case ErrWrongPassword:
		return "wrong password"
	case ErrRefreshExpired:
		return "refresh token expired"
	case ErrInteractiveChallengeRequired:
		return "interactive sign-in required"
	case ErrNotPremium:
		return "account does not own Minecraft"
	case ErrNoXboxProfile:
		return "no Xbox profile on this account"
	case ErrChildAccount:
		return "child account must be added to a family"
	default:
		return "unknown auth error"
	}
}

// Error wraps an ErrorKind with the upstream detail that produced it,
// mirroring auth/ms.py's AuthException(code, detail) pattern.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// ChatLine renders the error as a coloured TextComponent disconnect/chat
// message, built with go.minekube.com/common's component.Text/Style (the
// same construction the teacher's shutdown message uses in cmd/gate/gate.go)
// and flattened to the wire-exact proto.TextComponent before sending (see
// pkg/proto/component.go's doc comment for why the wire type is hand-rolled
// instead of using this library's JSON codec directly).
func (e *Error) ChatLine() proto.TextComponent {
	msg := fmt.Sprintf("proxhy: %s", e.Kind)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	c := &component.Text{
		Content: msg,
		S:       component.Style{Color: color.Red},
	}
	return FromComponent(c)
}

// FromComponent flattens a go.minekube.com/common component.Text into this
// proxy's wire-exact proto.TextComponent, covering the plain-coloured-text
// subset the auth error paths produce. It does not attempt translate
// components, click/hover events, or arbitrary nesting, since nothing the
// auth pipeline builds needs more than that.
func FromComponent(c *component.Text) proto.TextComponent {
	out := proto.TextComponent{Text: c.Content}
	if c.S.Color == color.Red {
		out.Color = "red"
	}
	return out
}
