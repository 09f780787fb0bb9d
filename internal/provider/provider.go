// Package provider defines the interface to the upstream GPU cloud provider and an HTTP
// implementation modeled on a Lambda Cloud-shaped REST API.
package provider

import (
	"context"
	"time"
)

// Client is the upstream provider surface the scheduler and reconciler depend on.
// Implementations must classify failures into apperr kinds (KindUpstreamTransient vs
// KindUpstreamPermanent) so callers can decide whether to retry.
type Client interface {
	ListInstanceTypes(ctx context.Context) ([]InstanceType, error)

	LaunchInstance(ctx context.Context, spec LaunchSpec) (*Instance, error)
	GetInstance(ctx context.Context, instanceID string) (*Instance, error)
	ListInstances(ctx context.Context) ([]Instance, error)
	TerminateInstance(ctx context.Context, instanceID string) error
	// TerminateInstances issues one batched termination call for the whole set, matching
	// the upstream API's native support for multiple instance_ids per call (§4.4 Pass A:
	// "a single batched upstream terminate for the union of VMs to kill").
	TerminateInstances(ctx context.Context, instanceIDs []string) error
	RestartInstance(ctx context.Context, instanceID string) error

	AddSSHKey(ctx context.Context, name, publicKey string) (keyID string, err error)
	ListSSHKeys(ctx context.Context) ([]SSHKey, error)
	DeleteSSHKey(ctx context.Context, keyID string) error

	ListFilesystems(ctx context.Context) ([]Filesystem, error)
	CreateFilesystem(ctx context.Context, name, region string) (*Filesystem, error)
	DeleteFilesystem(ctx context.Context, filesystemID string) error
}

// InstanceType is one launchable GPU SKU, with its per-region capacity and price.
type InstanceType struct {
	Name              string
	Description       string
	PriceCentsPerHour int64
	GPUs              int
	AvailableRegions  []string
}

// LaunchSpec is what the scheduler asks the provider to launch (§4.2).
type LaunchSpec struct {
	InstanceType     string
	Region           string
	SSHKeyNames      []string
	FilesystemNames  []string
	UserData         string
	Name             string
}

// Instance is the provider's current view of a launched VM.
type Instance struct {
	ID           string
	Name         string
	Status       string
	InstanceType string
	Region       string
	IPAddress    string
	SSHKeyNames  []string
	Filesystems  []string
	CreatedAt    time.Time
}

// SSHKey is the provider's record of a registered public key.
type SSHKey struct {
	ID   string
	Name string
}

// Filesystem is a shared or personal NFS-backed volume attachable at launch (§4.3).
type Filesystem struct {
	ID        string
	Name      string
	Region    string
	Bytes     int64
	CreatedAt time.Time
}
