package netcomponents

import "github.com/yohamta/donburi"

// NetPodInfoData carries per-pod facts that change rarely and are never interpolated.
type NetPodInfoData struct {
	PlayerName string
	Slot       int  // starting grid slot
	Connected  bool // false while the owner is inside its reconnect grace period
}

var NetPodInfo = donburi.NewComponentType[NetPodInfoData]()
