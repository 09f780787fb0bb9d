package models

import "time"

// SSHKey is a per-candidate upstream SSH key registration, keyed by `email|keyName` in
// the `ssh-keys` collection. Deleted (both upstream and locally) once the candidate has
// no active VMs.
type SSHKey struct {
	Email        string    `json:"email"`
	KeyName      string    `json:"keyName"`
	UpstreamID   string    `json:"upstreamId"`
	PublicKey    string    `json:"publicKey"`
	RegisteredAt time.Time `json:"registeredAt"`
}
