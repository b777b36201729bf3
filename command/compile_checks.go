package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[TransferMessage]          = (*TransferCommand)(nil)
	_ gocmd.Commander[MintMessage]              = (*MintCommand)(nil)
	_ gocmd.Commander[MintToMessage]            = (*MintToCommand)(nil)
	_ gocmd.Commander[BurnMessage]              = (*BurnCommand)(nil)
	_ gocmd.Commander[BridgeWrapMessage]        = (*BridgeWrapCommand)(nil)
	_ gocmd.Commander[BridgeUnwrapMessage]      = (*BridgeUnwrapCommand)(nil)
	_ gocmd.Commander[TransferOwnershipMessage] = (*TransferOwnershipCommand)(nil)
)
