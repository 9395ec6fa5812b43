package tags

import "github.com/yohamta/donburi"

var (
	Pod       = donburi.NewTag().SetName("Pod")
	LocalPod  = donburi.NewTag().SetName("LocalPod")
	RemotePod = donburi.NewTag().SetName("RemotePod")
)
