package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/provider"
)

// fakeProvider is an in-memory provider.Client double driving scheduler tests without
// a live upstream, matching the interface's full surface so dispatch code runs
// unmodified against it.
type fakeProvider struct {
	mu sync.Mutex

	types       []provider.InstanceType
	instances   map[string]provider.Instance
	sshKeys     map[string]provider.SSHKey // name -> key
	filesystems []provider.Filesystem

	nextID        int
	launchErr     error
	addSSHKeyErr  error
	terminatedIDs []string
	launchedSpecs []provider.LaunchSpec
}

func newFakeProvider(types []provider.InstanceType) *fakeProvider {
	return &fakeProvider{
		types:     types,
		instances: make(map[string]provider.Instance),
		sshKeys:   make(map[string]provider.SSHKey),
	}
}

func (f *fakeProvider) ListInstanceTypes(ctx context.Context) ([]provider.InstanceType, error) {
	return f.types, nil
}

func (f *fakeProvider) LaunchInstance(ctx context.Context, spec provider.LaunchSpec) (*provider.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.nextID++
	id := fmt.Sprintf("i-%d", f.nextID)
	inst := provider.Instance{ID: id, Status: "active", InstanceType: spec.InstanceType, Region: spec.Region}
	f.instances[id] = inst
	f.launchedSpecs = append(f.launchedSpecs, spec)
	return &inst, nil
}

func (f *fakeProvider) GetInstance(ctx context.Context, instanceID string) (*provider.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[instanceID]
	if !ok {
		return nil, apperr.NotFound("instance")
	}
	return &inst, nil
}

func (f *fakeProvider) ListInstances(ctx context.Context) ([]provider.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.Instance, 0, len(f.instances))
	for _, inst := range f.instances {
		out = append(out, inst)
	}
	return out, nil
}

func (f *fakeProvider) TerminateInstance(ctx context.Context, instanceID string) error {
	return f.TerminateInstances(ctx, []string{instanceID})
}

func (f *fakeProvider) TerminateInstances(ctx context.Context, instanceIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range instanceIDs {
		delete(f.instances, id)
		f.terminatedIDs = append(f.terminatedIDs, id)
	}
	return nil
}

func (f *fakeProvider) RestartInstance(ctx context.Context, instanceID string) error {
	return nil
}

func (f *fakeProvider) AddSSHKey(ctx context.Context, name, publicKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addSSHKeyErr != nil {
		return "", f.addSSHKeyErr
	}
	if _, exists := f.sshKeys[name]; exists {
		return "", apperr.UpstreamPermanent("ssh key already in use", nil)
	}
	id := "key-" + name
	f.sshKeys[name] = provider.SSHKey{ID: id, Name: name}
	return id, nil
}

func (f *fakeProvider) ListSSHKeys(ctx context.Context) ([]provider.SSHKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.SSHKey, 0, len(f.sshKeys))
	for _, k := range f.sshKeys {
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeProvider) DeleteSSHKey(ctx context.Context, keyID string) error {
	return nil
}

func (f *fakeProvider) ListFilesystems(ctx context.Context) ([]provider.Filesystem, error) {
	return f.filesystems, nil
}

func (f *fakeProvider) CreateFilesystem(ctx context.Context, name, region string) (*provider.Filesystem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs := provider.Filesystem{ID: "fsid-" + name, Name: name, Region: region}
	f.filesystems = append(f.filesystems, fs)
	return &fs, nil
}

func (f *fakeProvider) DeleteFilesystem(ctx context.Context, filesystemID string) error {
	return nil
}

var _ provider.Client = (*fakeProvider)(nil)
