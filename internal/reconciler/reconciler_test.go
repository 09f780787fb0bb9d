package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/payperplay/hosting/internal/audit"
	"github.com/payperplay/hosting/internal/costhistory"
	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/scheduler"
	"github.com/payperplay/hosting/internal/store"
)

// fakeProvider is an in-memory provider.Client double for reconciler tests: Pass A only
// exercises the instance-listing and termination methods.
type fakeProvider struct {
	instances      []provider.Instance
	terminated     []string
	terminateCalls int
	terminateErr   error
	deletedSSHIDs  []string
}

func (f *fakeProvider) ListInstanceTypes(ctx context.Context) ([]provider.InstanceType, error) {
	return nil, nil
}
func (f *fakeProvider) LaunchInstance(ctx context.Context, spec provider.LaunchSpec) (*provider.Instance, error) {
	return nil, nil
}
func (f *fakeProvider) GetInstance(ctx context.Context, instanceID string) (*provider.Instance, error) {
	return nil, nil
}
func (f *fakeProvider) ListInstances(ctx context.Context) ([]provider.Instance, error) {
	return f.instances, nil
}
func (f *fakeProvider) TerminateInstance(ctx context.Context, instanceID string) error {
	return f.TerminateInstances(ctx, []string{instanceID})
}
func (f *fakeProvider) TerminateInstances(ctx context.Context, instanceIDs []string) error {
	f.terminateCalls++
	if f.terminateErr != nil {
		return f.terminateErr
	}
	f.terminated = append(f.terminated, instanceIDs...)
	return nil
}
func (f *fakeProvider) RestartInstance(ctx context.Context, instanceID string) error { return nil }
func (f *fakeProvider) AddSSHKey(ctx context.Context, name, publicKey string) (string, error) {
	return "key-" + name, nil
}
func (f *fakeProvider) ListSSHKeys(ctx context.Context) ([]provider.SSHKey, error) { return nil, nil }
func (f *fakeProvider) DeleteSSHKey(ctx context.Context, keyID string) error {
	f.deletedSSHIDs = append(f.deletedSSHIDs, keyID)
	return nil
}
func (f *fakeProvider) ListFilesystems(ctx context.Context) ([]provider.Filesystem, error) {
	return nil, nil
}
func (f *fakeProvider) CreateFilesystem(ctx context.Context, name, region string) (*provider.Filesystem, error) {
	return nil, nil
}
func (f *fakeProvider) DeleteFilesystem(ctx context.Context, filesystemID string) error { return nil }

var _ provider.Client = (*fakeProvider)(nil)

func newTestReconciler(fp *fakeProvider) (*Reconciler, store.Store) {
	s := store.NewMemoryStore()
	candidates := store.NewCandidateRepo(s)
	vms := store.NewVMRepo(s)
	sshKeys := store.NewSSHKeyRepo(s)
	seedStatuses := store.NewSeedStatusRepo(s)
	settings := store.NewSettingsRepo(s)
	resolver := fsresolver.NewResolver(seedStatuses, fp)
	sched := scheduler.New(candidates, vms, store.NewLaunchRequestRepo(s), sshKeys, settings, fp, resolver, "https://cp.example.org")
	r := New(candidates, vms, sshKeys, seedStatuses, settings, fp, sched, audit.NewLogger(100), (*costhistory.Recorder)(nil), time.Minute)
	return r, s
}

func TestPassA_TerminatesVMMissingUpstream(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{instances: nil} // vm's instance no longer exists upstream
	r, _ := newTestReconciler(fp)

	launchedAt := time.Now().UTC().Add(-10 * time.Minute)
	vm := &models.VM{
		InstanceID: "i-gone", CandidateEmail: "alice@example.org", InstanceType: "gpu_1x_a100",
		PriceCentsPerHour: 110, LaunchedAt: launchedAt, Status: models.VMStatusActive, LastCheckedAt: launchedAt,
	}
	if err := r.VMs.Put(ctx, vm); err != nil {
		t.Fatalf("VMs.Put() error: %v", err)
	}
	if err := r.Candidates.Put(ctx, &models.Candidate{Email: "alice@example.org", Role: models.RoleCandidate, QuotaDollars: 50}); err != nil {
		t.Fatalf("Candidates.Put() error: %v", err)
	}

	r.passA(ctx)

	got, found, err := r.VMs.Get(ctx, "i-gone")
	if err != nil || !found {
		t.Fatalf("VMs.Get() error=%v found=%v", err, found)
	}
	if got.Status != models.VMStatusTerminated {
		t.Errorf("Status = %s, want terminated", got.Status)
	}
	if got.TerminationReason != string(models.ReasonTerminatedExternal) {
		t.Errorf("TerminationReason = %q, want %q", got.TerminationReason, models.ReasonTerminatedExternal)
	}
}

// TestPassA_ComputesAccrualAtExactCentsValue: a VM launched 56m30s before the tick at
// 110c/hr is billed 57 started minutes and accrues ceil(57*110/60) = 105 cents
// (ceil(6270/60) = ceil(104.5) = 105).
func TestPassA_ComputesAccrualAtExactCentsValue(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{instances: []provider.Instance{{ID: "i-run", Status: "active"}}}
	r, _ := newTestReconciler(fp)

	now := time.Now().UTC()
	launchedAt := now.Add(-57*time.Minute + 30*time.Second)
	vm := &models.VM{
		InstanceID: "i-run", CandidateEmail: "bob@example.org", InstanceType: "gpu_1x_a100",
		PriceCentsPerHour: 110, LaunchedAt: launchedAt, Status: models.VMStatusActive, LastCheckedAt: launchedAt,
	}
	if err := r.VMs.Put(ctx, vm); err != nil {
		t.Fatalf("VMs.Put() error: %v", err)
	}
	if err := r.Candidates.Put(ctx, &models.Candidate{Email: "bob@example.org", Role: models.RoleCandidate, QuotaDollars: 50}); err != nil {
		t.Fatalf("Candidates.Put() error: %v", err)
	}

	r.passA(ctx)

	got, _, err := r.VMs.Get(ctx, "i-run")
	if err != nil {
		t.Fatalf("VMs.Get() error: %v", err)
	}
	want := int64(105)
	if got.AccruedCents != want {
		t.Errorf("AccruedCents = %d, want %d", got.AccruedCents, want)
	}
}

func TestPassA_TerminatesWhenQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{instances: []provider.Instance{{ID: "i-over", Status: "active"}}}
	r, _ := newTestReconciler(fp)

	now := time.Now().UTC()
	vm := &models.VM{
		InstanceID: "i-over", CandidateEmail: "carol@example.org", InstanceType: "gpu_8x_a100",
		PriceCentsPerHour: 880, LaunchedAt: now.Add(-2 * time.Hour), Status: models.VMStatusActive, LastCheckedAt: now,
	}
	if err := r.VMs.Put(ctx, vm); err != nil {
		t.Fatalf("VMs.Put() error: %v", err)
	}
	if err := r.Candidates.Put(ctx, &models.Candidate{Email: "carol@example.org", Role: models.RoleCandidate, QuotaDollars: 1}); err != nil {
		t.Fatalf("Candidates.Put() error: %v", err)
	}

	r.passA(ctx)

	got, _, err := r.VMs.Get(ctx, "i-over")
	if err != nil {
		t.Fatalf("VMs.Get() error: %v", err)
	}
	if got.Status != models.VMStatusTerminated {
		t.Fatalf("Status = %s, want terminated", got.Status)
	}
	if got.TerminationReason != string(models.ReasonQuotaExceeded) {
		t.Errorf("TerminationReason = %q, want %q", got.TerminationReason, models.ReasonQuotaExceeded)
	}
	found := false
	for _, id := range fp.terminated {
		if id == "i-over" {
			found = true
		}
	}
	if !found {
		t.Error("expected upstream TerminateInstances to be called for the over-quota VM")
	}
}

func TestPassA_TerminatesWhenAccountDeactivated(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{instances: []provider.Instance{{ID: "i-deact", Status: "active"}}}
	r, _ := newTestReconciler(fp)

	now := time.Now().UTC()
	vm := &models.VM{
		InstanceID: "i-deact", CandidateEmail: "dana@example.org", InstanceType: "gpu_1x_a100",
		PriceCentsPerHour: 110, LaunchedAt: now.Add(-5 * time.Minute), Status: models.VMStatusActive, LastCheckedAt: now,
	}
	if err := r.VMs.Put(ctx, vm); err != nil {
		t.Fatalf("VMs.Put() error: %v", err)
	}
	deactivatedAt := now.Add(-time.Minute)
	if err := r.Candidates.Put(ctx, &models.Candidate{Email: "dana@example.org", Role: models.RoleCandidate, QuotaDollars: 50, DeactivatedAt: &deactivatedAt}); err != nil {
		t.Fatalf("Candidates.Put() error: %v", err)
	}

	r.passA(ctx)

	got, _, err := r.VMs.Get(ctx, "i-deact")
	if err != nil {
		t.Fatalf("VMs.Get() error: %v", err)
	}
	if got.TerminationReason != string(models.ReasonAccountRemoved) {
		t.Errorf("TerminationReason = %q, want %q", got.TerminationReason, models.ReasonAccountRemoved)
	}
}

func TestPassA_DeletesSSHKeyAfterLastVMTerminates(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{instances: nil}
	r, _ := newTestReconciler(fp)

	now := time.Now().UTC()
	vm := &models.VM{
		InstanceID: "i-last", CandidateEmail: "erin@example.org", InstanceType: "gpu_1x_a100",
		PriceCentsPerHour: 110, LaunchedAt: now.Add(-10 * time.Minute), Status: models.VMStatusActive, LastCheckedAt: now,
	}
	if err := r.VMs.Put(ctx, vm); err != nil {
		t.Fatalf("VMs.Put() error: %v", err)
	}
	if err := r.Candidates.Put(ctx, &models.Candidate{Email: "erin@example.org", Role: models.RoleCandidate, QuotaDollars: 50}); err != nil {
		t.Fatalf("Candidates.Put() error: %v", err)
	}
	if err := r.SSHKeys.Put(ctx, &models.SSHKey{Email: "erin@example.org", KeyName: "web-erin-example-org", UpstreamID: "key-upstream-1"}); err != nil {
		t.Fatalf("SSHKeys.Put() error: %v", err)
	}

	r.passA(ctx)

	keys, err := r.SSHKeys.ListByCandidate(ctx, "erin@example.org")
	if err != nil {
		t.Fatalf("SSHKeys.ListByCandidate() error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected the ssh key to be deleted once the last VM terminated, got %d remaining", len(keys))
	}
	if len(fp.deletedSSHIDs) != 1 || fp.deletedSSHIDs[0] != "key-upstream-1" {
		t.Errorf("expected upstream DeleteSSHKey for key-upstream-1, got %v", fp.deletedSSHIDs)
	}
}

func TestPassA_BatchesUpstreamTerminateCalls(t *testing.T) {
	ctx := context.Background()
	// Both instances are still running upstream and both candidates have a zero quota, so
	// pass A kills both for quota.
	fp := &fakeProvider{instances: []provider.Instance{
		{ID: "i-batch-f1@example.org", Status: "active"},
		{ID: "i-batch-f2@example.org", Status: "active"},
	}}
	r, _ := newTestReconciler(fp)

	now := time.Now().UTC()
	for i, email := range []string{"f1@example.org", "f2@example.org"} {
		vm := &models.VM{
			InstanceID: "i-batch-" + email, CandidateEmail: email, InstanceType: "gpu_1x_a100",
			PriceCentsPerHour: 110, LaunchedAt: now.Add(-time.Duration(i+1) * time.Minute), Status: models.VMStatusActive, LastCheckedAt: now,
		}
		if err := r.VMs.Put(ctx, vm); err != nil {
			t.Fatalf("VMs.Put() error: %v", err)
		}
		if err := r.Candidates.Put(ctx, &models.Candidate{Email: email, Role: models.RoleCandidate, QuotaDollars: 0}); err != nil {
			t.Fatalf("Candidates.Put() error: %v", err)
		}
	}

	r.passA(ctx)

	if len(fp.terminated) != 2 {
		t.Errorf("expected a single batched call covering both instances, got %d terminated ids", len(fp.terminated))
	}
	if fp.terminateCalls != 1 {
		t.Errorf("expected a single batched TerminateInstances call, got %d calls", fp.terminateCalls)
	}
}

func TestPassC_DeletesStaleSeedClaim(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestReconciler(&fakeProvider{})

	staleClaim := &models.SeedStatus{
		FilesystemName: "shared-data", Region: "us-east-1",
		Status: models.SeedStatusSeeding, ClaimedAt: time.Now().UTC().Add(-90 * time.Minute),
	}
	if err := r.SeedStatuses.Put(ctx, staleClaim); err != nil {
		t.Fatalf("SeedStatuses.Put() error: %v", err)
	}

	r.passC(ctx)

	_, found, err := r.SeedStatuses.Get(ctx, "shared-data", "us-east-1")
	if err != nil {
		t.Fatalf("SeedStatuses.Get() error: %v", err)
	}
	if found {
		t.Error("stale seeding claim should have been deleted")
	}
}

func TestPassC_KeepsFreshSeedClaim(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestReconciler(&fakeProvider{})

	freshClaim := &models.SeedStatus{
		FilesystemName: "shared-data", Region: "us-east-1",
		Status: models.SeedStatusSeeding, ClaimedAt: time.Now().UTC().Add(-5 * time.Minute),
	}
	if err := r.SeedStatuses.Put(ctx, freshClaim); err != nil {
		t.Fatalf("SeedStatuses.Put() error: %v", err)
	}

	r.passC(ctx)

	_, found, err := r.SeedStatuses.Get(ctx, "shared-data", "us-east-1")
	if err != nil {
		t.Fatalf("SeedStatuses.Get() error: %v", err)
	}
	if !found {
		t.Error("a seed claim younger than the stale threshold should be kept")
	}
}
