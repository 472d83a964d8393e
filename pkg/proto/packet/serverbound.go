package packet

// Play-state serverbound ids.
const (
	SBKeepAlive        = 0x00
	SBChatMessage      = 0x01
	SBUseEntity        = 0x02
	SBPlayer           = 0x03
	SBPlayerPosition   = 0x04
	SBPlayerLook       = 0x05
	SBPlayerPosAndLook = 0x06
	SBPlayerDigging    = 0x07
	SBPlayerBlockPlace = 0x08
	SBHeldItemChange   = 0x09
	SBAnimation        = 0x0A
	SBEntityAction     = 0x0B
	SBSteerVehicle     = 0x0C
	SBCloseWindow      = 0x0D
	SBClickWindow      = 0x0E
	SBConfirmTransaction = 0x0F
	SBCreativeInventoryAction = 0x10
	SBEnchantItem      = 0x11
	SBUpdateSign       = 0x12
	SBPlayerAbilities  = 0x13
	SBTabComplete      = 0x14
	SBClientSettings   = 0x15
	SBClientStatus     = 0x16
	SBPluginMessage    = 0x17
	SBSpectate         = 0x18
	SBResourcePackStatus = 0x19

	// EntityAction action ids (spec.md §4.G sneak/sprint toggle).
	EntityActionStartSneak  = 0
	EntityActionStopSneak   = 1
	EntityActionLeaveBed    = 2
	EntityActionStartSprint = 3
	EntityActionStopSprint  = 4
)

// Handshaking/Status/Login ids. These states only ever have one or two
// packets each, so they share a single numeric id space per state rather
// than separate CB/SB constant families.
const (
	HandshakeSetProtocol = 0x00

	StatusRequest  = 0x00
	StatusResponse = 0x00
	StatusPing     = 0x01
	StatusPong     = 0x01

	LoginStart             = 0x00
	LoginEncryptionRequest = 0x01
	LoginEncryptionResponse = 0x01
	LoginSuccess           = 0x02
	LoginSetCompression    = 0x03
	LoginDisconnect        = 0x00
)
