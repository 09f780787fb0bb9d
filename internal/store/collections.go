package store

// Collection names, one per entity kind (§3).
const (
	CollectionCandidates     = "candidates"
	CollectionVMs            = "vms"
	CollectionLaunchRequests = "launch-requests"
	CollectionSSHKeys        = "ssh-keys"
	CollectionSeedStatus     = "seed-status"
	CollectionSettings       = "settings"
)

// SettingsKey is the single key under CollectionSettings (§3: Settings is a singleton).
const SettingsKey = "singleton"
