package featureflag

type Flag string

const (
	FlagDisableRoomState                 Flag = "DISABLE_ROOM_STATE"
	FlagDisableDebugEvents               Flag = "DISABLE_DEBUG_EVENTS"
	FlagDisableParticipantJoinBroadcast  Flag = "DISABLE_PARTICIPANT_JOIN_BROADCAST"
	FlagDisableParticipantLeaveBroadcast Flag = "DISABLE_PARTICIPANT_LEAVE_BROADCAST"
	FlagDisableAssetPlacedBroadcast      Flag = "DISABLE_ASSET_PLACED_BROADCAST"
	FlagDisableAssetDeletedBroadcast     Flag = "DISABLE_ASSET_DELETED_BROADCAST"
	FlagDisableRoomClearedBroadcast      Flag = "DISABLE_ROOM_CLEARED_BROADCAST"
)
