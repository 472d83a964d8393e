package gamestate

import "github.com/kbidlack/proxhy-go/pkg/proto"

// Team mirrors one scoreboard team, grounded on proxhy/ext/gamestate.py's
// `_update_teams` (mode 0 create / 1 remove / 2 update-info / 3-4
// add-remove-players).
type Team struct {
	Name             string
	DisplayName      string
	Prefix           string
	Suffix           string
	FriendlyFire     int8
	NameTagVisibility string
	Color            int8
	Players          map[string]struct{}
}

func newTeam(name string) *Team {
	return &Team{Name: name, Players: make(map[string]struct{})}
}

// PlayerListEntry mirrors one tab-list row, mutated by 0x38 player-list-item.
type PlayerListEntry struct {
	UUID        string
	Name        string
	Properties  []PlayerListProperty
	Gamemode    Gamemode
	Ping        int32
	DisplayName string
	HasDisplayName bool
}

// PlayerListProperty is one (name, value, signature) skin/cape property.
type PlayerListProperty struct {
	Name      string
	Value     string
	Signed    bool
	Signature string
}

// ScoreboardObjective mirrors a 0x3B scoreboard-objective entry.
type ScoreboardObjective struct {
	Name        string
	DisplayName string
	Type        string
}

// Scoreboard mirrors objectives, per-entry scores, and the display slot
// assignment (0x3B/0x3C/0x3D).
type Scoreboard struct {
	Objectives map[string]*ScoreboardObjective
	Scores     map[string]map[string]int32 // objective name -> entry name -> score
	Display    map[int8]string             // display slot -> objective name
}

func newScoreboard() *Scoreboard {
	return &Scoreboard{
		Objectives: make(map[string]*ScoreboardObjective),
		Scores:     make(map[string]map[string]int32),
		Display:    make(map[int8]string),
	}
}

// ApplyScoreboardObjective handles 0x3B: mode 0 creates an objective, mode 1
// removes it, mode 2 updates its display name/type in place.
func (m *Mirror) ApplyScoreboardObjective(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	mode, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	if mode == 1 {
		delete(m.Scoreboard.Objectives, name)
		delete(m.Scoreboard.Scores, name)
		return nil
	}
	displayName, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	typ, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	m.Scoreboard.Objectives[name] = &ScoreboardObjective{Name: name, DisplayName: displayName, Type: typ}
	if _, ok := m.Scoreboard.Scores[name]; !ok {
		m.Scoreboard.Scores[name] = make(map[string]int32)
	}
	return nil
}

// ApplyUpdateScore handles 0x3C: action 0 creates/updates a score entry,
// action 1 removes it. An unknown objective is tolerated (the objective
// packet may not have arrived yet over a replayed stream).
func (m *Mirror) ApplyUpdateScore(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	action, err := proto.UnpackUnsignedByte(buf)
	if err != nil {
		return err
	}
	objective, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	if action == 1 {
		if scores, ok := m.Scoreboard.Scores[objective]; ok {
			delete(scores, entry)
		}
		return nil
	}
	value, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	scores, ok := m.Scoreboard.Scores[objective]
	if !ok {
		scores = make(map[string]int32)
		m.Scoreboard.Scores[objective] = scores
	}
	scores[entry] = value
	return nil
}

// ApplyDisplayScoreboard handles 0x3D: assigns an objective to a display
// slot (0 list, 1 sidebar, 2 below-name).
func (m *Mirror) ApplyDisplayScoreboard(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	position, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	name, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	m.Scoreboard.Display[position] = name
	return nil
}
