// Package packet names protocol-47 packet ids (handshake, status, login,
// and the Play packets this proxy inspects or rewrites) and the broadcast
// allow-list. It holds no packet-body codecs: pkg/gamestate, pkg/broadcast
// and pkg/login read and build the bodies with pkg/proto's primitives.
// Everything else moves as opaque bytes through
// pkg/session's pass-through default, so this package does not attempt a
// complete protocol-47 packet catalogue — only the subset spec.md §3/§4.F
// names.
package packet

// Play-state clientbound ids, named per the 1.8.9 wiki.vg protocol (the
// packet ids §4.F/§4.G reference directly).
const (
	CBKeepAlive             = 0x00
	CBJoinGame               = 0x01
	CBChatMessage            = 0x02
	CBTimeUpdate             = 0x03
	CBEntityEquipment        = 0x04
	CBSpawnPosition          = 0x05
	CBUpdateHealth           = 0x06
	CBRespawn                = 0x07
	CBPlayerPositionAndLook  = 0x08
	CBUseBed                 = 0x0A
	CBAnimation              = 0x0B
	CBSpawnPlayer            = 0x0C
	CBCollectItem            = 0x0D
	CBSpawnObject            = 0x0E
	CBSpawnMob               = 0x0F
	CBSpawnPainting          = 0x10
	CBSpawnExperienceOrb     = 0x11
	CBEntityVelocity         = 0x12
	CBDestroyEntities        = 0x13
	CBEntity                 = 0x14
	CBEntityRelativeMove     = 0x15
	CBEntityLook             = 0x16
	CBEntityLookAndMove      = 0x17
	CBEntityTeleport         = 0x18
	CBEntityHeadLook         = 0x19
	CBEntityStatus           = 0x1A
	CBAttachEntity           = 0x1B
	CBEntityMetadata         = 0x1C
	CBEntityEffect           = 0x1D
	CBRemoveEntityEffect     = 0x1E
	CBSetExperience          = 0x1F
	CBEntityProperties       = 0x20
	CBChunkData              = 0x21
	CBMultiBlockChange       = 0x22
	CBBlockChange            = 0x23
	CBBlockAction            = 0x24
	CBBlockBreakAnimation    = 0x25
	CBMapChunkBulk           = 0x26
	CBExplosion              = 0x27
	CBEffect                 = 0x28
	CBSoundEffect            = 0x29
	CBParticle               = 0x2A
	CBChangeGameState        = 0x2B
	CBSpawnGlobalEntity      = 0x2C
	CBOpenWindow             = 0x2D
	CBCloseWindow            = 0x2E
	CBSetSlot                = 0x2F
	CBWindowItems            = 0x30
	CBWindowProperty         = 0x31
	CBConfirmTransaction     = 0x32
	CBUpdateSign             = 0x33
	CBMaps                   = 0x34
	CBUpdateBlockEntity      = 0x35
	CBSignEditorOpen         = 0x36
	CBStatistics             = 0x37
	CBPlayerListItem         = 0x38
	CBPlayerAbilities        = 0x39
	CBTabComplete            = 0x3A
	CBScoreboardObjective    = 0x3B
	CBUpdateScore            = 0x3C
	CBDisplayScoreboard      = 0x3D
	CBTeams                  = 0x3E
	CBPluginMessage          = 0x3F
	CBDisconnect             = 0x40
	CBServerDifficulty       = 0x41
	CBCombatEvent            = 0x42
	CBCamera                 = 0x43
	CBWorldBorder            = 0x44
	CBTitle                  = 0x45
	CBSetCompression         = 0x46
	CBPlayerListHeaderFooter = 0x47
	CBResourcePackSend       = 0x48
	CBUpdateEntityNBT        = 0x49
)

// BroadcastAllow is the set of clientbound Play packet ids forwarded as-is
// to spectators that are not entity-owner-specific (spec.md §4.G). Entity-
// oriented ids also present here (0x0C-0x11, 0x13-0x1E) are still subject to
// the owner-id rewrite-or-drop rule in the transformer; this set only says
// "not dropped outright".
var BroadcastAllow = map[int32]bool{
	CBJoinGame: true, CBChatMessage: true, CBTimeUpdate: true,
	CBSpawnPosition: true, CBRespawn: true, CBPlayerPositionAndLook: true,
	CBUseBed: true, CBAnimation: true,
	CBSpawnPlayer: true, CBCollectItem: true, CBSpawnObject: true,
	CBSpawnMob: true, CBSpawnPainting: true, CBSpawnExperienceOrb: true,
	CBEntityVelocity: true, CBDestroyEntities: true, CBEntity: true,
	CBEntityRelativeMove: true, CBEntityLook: true, CBEntityLookAndMove: true,
	CBEntityTeleport: true, CBEntityHeadLook: true, CBEntityStatus: true,
	CBAttachEntity: true, CBEntityMetadata: true, CBEntityEffect: true,
	CBRemoveEntityEffect: true,
	CBEntityProperties:   true,
	CBChunkData:          true, CBMultiBlockChange: true, CBBlockChange: true,
	CBBlockAction: true, CBBlockBreakAnimation: true, CBMapChunkBulk: true,
	CBExplosion: true, CBEffect: true, CBSoundEffect: true, CBParticle: true,
	CBSpawnGlobalEntity: true,
	CBUpdateSign:        true, CBMaps: true, CBUpdateBlockEntity: true,
	CBStatistics: true, CBPlayerListItem: true,
	CBScoreboardObjective: true, CBUpdateScore: true, CBDisplayScoreboard: true,
	CBTeams: true, CBPluginMessage: true, CBDisconnect: true,
	CBServerDifficulty: true, CBCombatEvent: true, CBCamera: true,
	CBWorldBorder: true,
	CBPlayerListHeaderFooter: true, CBResourcePackSend: true,
	CBUpdateEntityNBT: true,
	CBEntityEquipment: true, CBSetSlot: true,
}
