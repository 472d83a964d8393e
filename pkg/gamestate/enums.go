// Package gamestate mirrors the subset of client-visible world state this
// proxy needs to reason about: entities, the tab list, teams, the
// scoreboard, and the proxy's own player (position, inventory, abilities).
// It is a pure decoder — it never writes to either stream, it only updates
// in response to clientbound Play packets (plus the serverbound held-item
// change), per spec.md §4.F. Grounded on
// proxhy/gamestate.py, plugins/gamestate.py, proxhy/ext/gamestate.py, and
// the enum catalogue in gamestate/enums.py.
package gamestate

// Dimension is the three 1.8.9 dimensions.
type Dimension int32

const (
	Nether    Dimension = -1
	Overworld Dimension = 0
	End       Dimension = 1
)

// Gamemode is the player/entity gamemode byte (bit 0x08 marks hardcore,
// masked off before comparing against these values).
type Gamemode uint8

const (
	Survival  Gamemode = 0
	Creative  Gamemode = 1
	Adventure Gamemode = 2
	Spectator Gamemode = 3
)

// Difficulty is the world difficulty byte.
type Difficulty uint8

const (
	Peaceful Difficulty = 0
	Easy     Difficulty = 1
	Normal   Difficulty = 2
	Hard     Difficulty = 3
)

// PlayerListAction is the action code in a 0x38 player-list-item packet.
type PlayerListAction int32

const (
	PlayerListAddPlayer        PlayerListAction = 0
	PlayerListUpdateGamemode   PlayerListAction = 1
	PlayerListUpdateLatency    PlayerListAction = 2
	PlayerListUpdateDisplayName PlayerListAction = 3
	PlayerListRemovePlayer     PlayerListAction = 4
)

// TeamMode is the mode byte in a 0x3E teams packet.
type TeamMode int8

const (
	TeamCreate        TeamMode = 0
	TeamRemove        TeamMode = 1
	TeamUpdateInfo    TeamMode = 2
	TeamAddPlayers    TeamMode = 3
	TeamRemovePlayers TeamMode = 4
)

// ScoreboardAction is the action byte in a 0x3C update-score packet.
type ScoreboardAction int8

const (
	ScoreCreateOrUpdate ScoreboardAction = 0
	ScoreRemove         ScoreboardAction = 1
)

// EquipmentSlot indexes the five equipment slots carried by a 0x04 packet.
type EquipmentSlot int16

const (
	EquipHeld       EquipmentSlot = 0
	EquipBoots      EquipmentSlot = 1
	EquipLeggings   EquipmentSlot = 2
	EquipChestplate EquipmentSlot = 3
	EquipHelmet     EquipmentSlot = 4
)

// PlayerAbilityFlags is the bitfield in 0x39 player-abilities.
type PlayerAbilityFlags uint8

const (
	AbilityInvulnerable PlayerAbilityFlags = 0x01
	AbilityFlying       PlayerAbilityFlags = 0x02
	AbilityAllowFlying  PlayerAbilityFlags = 0x04
	AbilityCreativeMode PlayerAbilityFlags = 0x08
)

// EntityFlags is the bitfield packed into metadata index 0 on most
// entities, per spec.md §4.F/§4.G (sneak=0x02, sprint=0x08).
type EntityFlags uint8

const (
	EntityOnFire    EntityFlags = 0x01
	EntityCrouched  EntityFlags = 0x02
	EntitySprinting EntityFlags = 0x08
	EntityEating    EntityFlags = 0x10
	EntityInvisible EntityFlags = 0x20
)
