package fsresolver

import (
	"context"
	"strings"
	"testing"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/store"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Alice@Example.org", "alice-example-org"},
		{"us-west-1", "us-west-1"},
		{"--leading--trailing--", "leading-trailing"},
		{"a...b", "a-b"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPersonalFilesystemName(t *testing.T) {
	got := PersonalFilesystemName("alice@example.org", "us-west-1")
	want := "fs-alice-example-org-us-west-1"
	if got != want {
		t.Errorf("PersonalFilesystemName() = %q, want %q", got, want)
	}
}

func TestPersonalFilesystemName_LengthBounded(t *testing.T) {
	longEmail := strings.Repeat("a", 80) + "@example.org"
	got := PersonalFilesystemName(longEmail, "us-west-1")
	if len(got) > 63 {
		t.Errorf("PersonalFilesystemName() length = %d, want <= 63", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("PersonalFilesystemName() = %q, should not end in a hyphen after truncation", got)
	}
}

func TestSSHKeyName(t *testing.T) {
	if got := SSHKeyName("Bob@Example.org"); got != "web-bob-example-org" {
		t.Errorf("SSHKeyName() = %q, want web-bob-example-org", got)
	}
}

// fakeProvider is a minimal provider.Client double for resolver tests: only the
// filesystem-related methods are exercised.
type fakeProvider struct {
	provider.Client
	filesystems []provider.Filesystem
	created     []string

	// conflictOnCreate simulates a concurrent caller having just created the
	// filesystem: CreateFilesystem rejects with "already exists" instead of
	// succeeding, as if another request's create call won the race.
	conflictOnCreate bool
	// filesystemsAfterConflict is what ListFilesystems returns on its second call
	// onward, standing in for the other caller's write becoming visible.
	filesystemsAfterConflict []provider.Filesystem
	listCalls                int
}

func (f *fakeProvider) ListFilesystems(ctx context.Context) ([]provider.Filesystem, error) {
	f.listCalls++
	if f.listCalls > 1 && f.filesystemsAfterConflict != nil {
		return f.filesystemsAfterConflict, nil
	}
	return f.filesystems, nil
}

func (f *fakeProvider) CreateFilesystem(ctx context.Context, name, region string) (*provider.Filesystem, error) {
	if f.conflictOnCreate {
		return nil, apperr.UpstreamPermanent("filesystem already exists", nil)
	}
	f.created = append(f.created, name+"|"+region)
	fs := provider.Filesystem{ID: "fsid-" + name, Name: name, Region: region}
	f.filesystems = append(f.filesystems, fs)
	return &fs, nil
}

func TestResolve_PersonalFilesystemCreatedWhenMissing(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{}
	resolver := NewResolver(store.NewSeedStatusRepo(store.NewMemoryStore()), fp)

	settings := &models.Settings{}
	result, err := resolver.Resolve(ctx, "us-west-1", "alice@example.org", true, settings, "https://cp.example.org")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := "fs-alice-example-org-us-west-1"
	if len(result.FilesystemNames) != 1 || result.FilesystemNames[0] != want {
		t.Errorf("FilesystemNames = %v, want [%s]", result.FilesystemNames, want)
	}
	if len(fp.created) != 1 {
		t.Errorf("expected CreateFilesystem to be called once, got %d calls", len(fp.created))
	}
	if result.ReadonlyRemountScript != "" {
		t.Error("personal filesystem must stay read-write: no remount fragment expected")
	}
}

func TestResolve_PersonalFilesystemReusesExisting(t *testing.T) {
	ctx := context.Background()
	name := "fs-alice-example-org-us-west-1"
	fp := &fakeProvider{filesystems: []provider.Filesystem{{ID: "existing", Name: name, Region: "us-west-1"}}}
	resolver := NewResolver(store.NewSeedStatusRepo(store.NewMemoryStore()), fp)

	_, err := resolver.Resolve(ctx, "us-west-1", "alice@example.org", true, &models.Settings{}, "https://cp.example.org")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(fp.created) != 0 {
		t.Errorf("expected no CreateFilesystem calls for an existing personal filesystem, got %d", len(fp.created))
	}
}

func TestResolve_SharedFilesystemClaimsSeedAndEmitsLoader(t *testing.T) {
	ctx := context.Background()
	fp := &fakeProvider{}
	resolver := NewResolver(store.NewSeedStatusRepo(store.NewMemoryStore()), fp)

	settings := &models.Settings{
		DefaultFilesystems: []models.DefaultFilesystem{
			{Name: "shared-data", SourceType: models.FetcherObjectStoreA, SourceURL: "s3://bucket/data"},
		},
		SeedCompleteSecret: "secret123",
	}

	result, err := resolver.Resolve(ctx, "us-east-1", "alice@example.org", false, settings, "https://cp.example.org")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(result.LoaderSpecs) != 1 {
		t.Fatalf("expected exactly one loader VM spec, got %d", len(result.LoaderSpecs))
	}
	if !strings.Contains(result.ReadonlyRemountScript, "shared-data") {
		t.Errorf("ReadonlyRemountScript = %q, want it to mention shared-data", result.ReadonlyRemountScript)
	}
	if !strings.Contains(result.LoaderSpecs[0].UserData, "https://cp.example.org/api/seed-complete") {
		t.Error("loader script must POST to the seed-complete callback URL")
	}
}

// TestResolve_SeedingRace is §8 scenario 5: two resolvers racing on the same (fs,
// region) must produce exactly one loader VM; the second attaches the filesystem and
// gets the remount fragment but claims no seed work.
func TestResolve_SeedingRace(t *testing.T) {
	ctx := context.Background()
	seedRepo := store.NewSeedStatusRepo(store.NewMemoryStore())

	settings := &models.Settings{
		DefaultFilesystems: []models.DefaultFilesystem{
			{Name: "shared-data", SourceType: models.FetcherObjectStoreA, SourceURL: "s3://bucket/data"},
		},
		SeedCompleteSecret: "secret123",
	}

	fp1 := &fakeProvider{}
	r1 := NewResolver(seedRepo, fp1)
	result1, err := r1.Resolve(ctx, "us-east-1", "alice@example.org", false, settings, "https://cp.example.org")
	if err != nil {
		t.Fatalf("first Resolve() error: %v", err)
	}

	// Second resolver shares the same upstream filesystem listing (it now exists) and
	// the same seed lock store.
	fp2 := &fakeProvider{filesystems: fp1.filesystems}
	r2 := NewResolver(seedRepo, fp2)
	result2, err := r2.Resolve(ctx, "us-east-1", "bob@example.org", false, settings, "https://cp.example.org")
	if err != nil {
		t.Fatalf("second Resolve() error: %v", err)
	}

	totalLoaders := len(result1.LoaderSpecs) + len(result2.LoaderSpecs)
	if totalLoaders != 1 {
		t.Errorf("expected exactly one loader VM across both resolvers, got %d", totalLoaders)
	}
	if len(result1.FilesystemNames) == 0 || len(result2.FilesystemNames) == 0 {
		t.Error("both users should still attach the shared filesystem regardless of who won the seed claim")
	}
}

// TestResolve_CreateConflictAdoptsConcurrentlyCreatedFilesystem covers §9's "already
// exists must be a success" contract for filesystem creation, not just SSH keys: a
// create call that loses a race must not fail the whole launch.
func TestResolve_CreateConflictAdoptsConcurrentlyCreatedFilesystem(t *testing.T) {
	ctx := context.Background()
	fsName, region := "shared-data", "us-east-1"
	fp := &fakeProvider{
		conflictOnCreate: true,
		filesystemsAfterConflict: []provider.Filesystem{
			{ID: "winner-created-this", Name: fsName, Region: region},
		},
	}
	resolver := NewResolver(store.NewSeedStatusRepo(store.NewMemoryStore()), fp)

	settings := &models.Settings{
		DefaultFilesystems: []models.DefaultFilesystem{
			{Name: fsName, SourceType: models.FetcherObjectStoreA, SourceURL: "s3://bucket/data"},
		},
		SeedCompleteSecret: "secret123",
	}

	result, err := resolver.Resolve(ctx, region, "alice@example.org", false, settings, "https://cp.example.org")
	if err != nil {
		t.Fatalf("Resolve() should adopt the concurrently-created filesystem instead of erroring, got: %v", err)
	}
	if len(result.FilesystemNames) != 1 || result.FilesystemNames[0] != fsName {
		t.Errorf("FilesystemNames = %v, want [%s]", result.FilesystemNames, fsName)
	}
	if !strings.Contains(result.ReadonlyRemountScript, fsName) {
		t.Error("the adopted filesystem must still get its readonly remount fragment")
	}
}

func TestResolve_ReadyFilesystemSkipsCreateAndClaim(t *testing.T) {
	ctx := context.Background()
	fsName, region := "shared-data", "us-east-1"
	fp := &fakeProvider{filesystems: []provider.Filesystem{{ID: "x", Name: fsName, Region: region}}}
	seedRepo := store.NewSeedStatusRepo(store.NewMemoryStore())
	resolver := NewResolver(seedRepo, fp)

	settings := &models.Settings{
		DefaultFilesystems: []models.DefaultFilesystem{{Name: fsName, SourceType: models.FetcherObjectStoreA}},
	}

	result, err := resolver.Resolve(ctx, region, "alice@example.org", false, settings, "https://cp.example.org")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(fp.created) != 0 {
		t.Error("an already-existing shared filesystem must not be recreated")
	}
	if len(result.LoaderSpecs) != 0 {
		t.Error("an already-existing shared filesystem must not spawn a loader VM")
	}
}
