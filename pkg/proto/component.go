package proto

import "encoding/json"

// TextComponent is the recursive chat-component JSON structure described in
// spec.md §3: exactly one content variant, optional color/format flags, an
// optional Extra child sequence, and an optional click/hover event. We marshal
// this ourselves rather than through go.minekube.com/common's component codec
// because the wire contract here is exact (the "exactly one content key"
// invariant matters for §8 property testing); go.minekube.com/common's richer
// Component/Style types are used at the call sites that build messages
// (pkg/auth errors, disconnect reasons) and converted to TextComponent with
// FromComponent before going on the wire — see pkg/auth/errors.go.
type TextComponent struct {
	// exactly one of these is set
	Text      string `json:"-"`
	Translate string `json:"-"`
	Score     *ScoreComponent `json:"-"`
	Selector  string `json:"-"`
	Keybind   string `json:"-"`
	NBT       string `json:"-"`

	With []TextComponent `json:"-"`

	Color         string          `json:"-"`
	Bold          *bool           `json:"-"`
	Italic        *bool           `json:"-"`
	Underlined    *bool           `json:"-"`
	Strikethrough *bool           `json:"-"`
	Obfuscated    *bool           `json:"-"`
	Extra         []TextComponent `json:"-"`
	ClickEvent    *ClickEvent     `json:"-"`
	HoverEvent    *HoverEvent     `json:"-"`
}

// ScoreComponent is the {name,objective} content variant.
type ScoreComponent struct {
	Name      string `json:"name"`
	Objective string `json:"objective"`
	Value     string `json:"value,omitempty"`
}

// ClickEvent is a click_event action/value pair.
type ClickEvent struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

// HoverEvent is a hover_event action/value pair.
type HoverEvent struct {
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value"`
}

// Plain wraps a bare string as {"text": s}, per spec.md §4.A.
func Plain(s string) TextComponent { return TextComponent{Text: s} }

// wireComponent is the flat JSON shape actually written on the wire; we
// marshal into it by hand to guarantee exactly one content key is present.
type wireComponent struct {
	Text      string          `json:"text,omitempty"`
	Translate string          `json:"translate,omitempty"`
	With      []wireComponent `json:"with,omitempty"`
	Score     *ScoreComponent `json:"score,omitempty"`
	Selector  string          `json:"selector,omitempty"`
	Keybind   string          `json:"keybind,omitempty"`
	Nbt       string          `json:"nbt,omitempty"`

	Color         string          `json:"color,omitempty"`
	Bold          *bool           `json:"bold,omitempty"`
	Italic        *bool           `json:"italic,omitempty"`
	Underlined    *bool           `json:"underlined,omitempty"`
	Strikethrough *bool           `json:"strikethrough,omitempty"`
	Obfuscated    *bool           `json:"obfuscated,omitempty"`
	Extra         []wireComponent `json:"extra,omitempty"`
	ClickEvent    *ClickEvent     `json:"clickEvent,omitempty"`
	HoverEvent    *HoverEvent     `json:"hoverEvent,omitempty"`
}

func toWire(c TextComponent) wireComponent {
	w := wireComponent{
		Color:         c.Color,
		Bold:          c.Bold,
		Italic:        c.Italic,
		Underlined:    c.Underlined,
		Strikethrough: c.Strikethrough,
		Obfuscated:    c.Obfuscated,
		ClickEvent:    c.ClickEvent,
		HoverEvent:    c.HoverEvent,
	}
	switch {
	case c.Translate != "":
		w.Translate = c.Translate
		for _, a := range c.With {
			wc := toWire(a)
			w.With = append(w.With, wc)
		}
	case c.Score != nil:
		w.Score = c.Score
	case c.Selector != "":
		w.Selector = c.Selector
	case c.Keybind != "":
		w.Keybind = c.Keybind
	case c.NBT != "":
		w.Nbt = c.NBT
	default:
		w.Text = c.Text
	}
	for _, e := range c.Extra {
		w.Extra = append(w.Extra, toWire(e))
	}
	return w
}

// MarshalJSON emits canonical JSON with exactly one content key present.
func (c TextComponent) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(c))
}

// MessagePosition selects where a clientbound chat packet renders.
type MessagePosition uint8

const (
	ChatMessage     MessagePosition = 0
	SystemMessage   MessagePosition = 1
	ActionBarMessage MessagePosition = 2
)

// PackClientChat packs a clientbound chat message: JSON component followed
// by a single position byte, per spec.md §4.A.
func PackClientChat(c TextComponent, pos MessagePosition) ([]byte, error) {
	j, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := PackString(string(j))
	out = append(out, byte(pos))
	return out, nil
}

// PackServerChat packs a serverbound chat message: only the raw string.
func PackServerChat(message string) []byte {
	return PackString(message)
}
