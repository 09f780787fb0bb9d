// Package fsresolver turns "attach these shared filesystems to this VM" into a chain of
// create → single-writer seed → read-only remount (§4.3). The Resolver is a pure
// function over its inputs plus the State Store and Provider Client passed in
// explicitly — it never imports the scheduler or the HTTP layer, so there is no cyclic
// dependency between resolver, provider client, and state store (§9).
package fsresolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/store"
	"github.com/payperplay/hosting/pkg/logger"
)

// MountRoot is where every attached filesystem lands on the VM's filesystem.
const MountRoot = "/home/ubuntu"

// DefaultStaleMinutes is the age after which a `seeding` claim is considered abandoned.
const DefaultStaleMinutes = 60

// Result is everything the scheduler needs to finish composing a launch.
type Result struct {
	FilesystemNames      []string
	LoaderSpecs          []provider.LaunchSpec
	ReadonlyRemountScript string
}

// Resolver resolves filesystem attachments for a VM about to be launched.
type Resolver struct {
	seedRepo     *store.SeedStatusRepo
	provider     provider.Client
	staleMinutes int
}

func NewResolver(seedRepo *store.SeedStatusRepo, providerClient provider.Client) *Resolver {
	return &Resolver{seedRepo: seedRepo, provider: providerClient, staleMinutes: DefaultStaleMinutes}
}

// Resolve implements the personal + shared filesystem attachment logic of §4.3.
func (r *Resolver) Resolve(ctx context.Context, region, candidateEmail string, attachPersonal bool, settings *models.Settings, appBaseURL string) (*Result, error) {
	existing, err := r.provider.ListFilesystems(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var remount strings.Builder

	if attachPersonal {
		name := PersonalFilesystemName(candidateEmail, region)
		if err := r.ensureFilesystem(ctx, existing, name, region); err != nil {
			return nil, err
		}
		result.FilesystemNames = append(result.FilesystemNames, name)
		// Personal filesystem stays read-write; no remount fragment.
	}

	for _, fs := range settings.DefaultFilesystems {
		found := findFilesystem(existing, fs.Name, region)
		if found == nil {
			// createOrAdoptFilesystem treats an upstream "already exists" response as
			// success (§9): a concurrent request may have created it between the list
			// above and here. Either way this caller still attempts the seed claim
			// below — claimSeed's own last-writer-wins protocol is what actually
			// decides whether it emits a loader VM (§4.3, §8 scenario 5).
			created, err := r.createOrAdoptFilesystem(ctx, fs.Name, region)
			if err != nil {
				return nil, err
			}
			existing = append(existing, *created)

			claimed, alreadyReady, err := r.claimSeed(ctx, fs.Name, region)
			if err != nil {
				return nil, err
			}
			if claimed {
				spec := r.buildLoaderSpec(fs, region, appBaseURL, settings.SeedCompleteSecret)
				result.LoaderSpecs = append(result.LoaderSpecs, spec)
			} else if !alreadyReady {
				logger.Info("shared filesystem seed already claimed", map[string]interface{}{
					"filesystem": fs.Name,
					"region":     region,
				})
			}
		}

		result.FilesystemNames = append(result.FilesystemNames, fs.Name)
		fmt.Fprintf(&remount, "sudo mount -o remount,ro %s/%s || true\n", MountRoot, fs.Name)
	}

	result.ReadonlyRemountScript = remount.String()
	return result, nil
}

func (r *Resolver) ensureFilesystem(ctx context.Context, existing []provider.Filesystem, name, region string) error {
	if findFilesystem(existing, name, region) != nil {
		return nil
	}
	_, err := r.createOrAdoptFilesystem(ctx, name, region)
	return err
}

// createOrAdoptFilesystem creates the named filesystem upstream, treating an
// already-exists rejection as success rather than a failure (§9: "Concurrent launches
// that both try to create the same SSH key / filesystem must treat 'already exists' as
// a success, not an error" — the same contract already applied to ensureSSHKey). A
// concurrent caller may have created the same (name, region) filesystem between this
// resolver's initial list and this create call; re-listing finds it.
func (r *Resolver) createOrAdoptFilesystem(ctx context.Context, name, region string) (*provider.Filesystem, error) {
	created, err := r.provider.CreateFilesystem(ctx, name, region)
	if err == nil {
		return created, nil
	}

	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindUpstreamPermanent {
		return nil, err
	}

	existing, listErr := r.provider.ListFilesystems(ctx)
	if listErr != nil {
		return nil, err
	}
	if found := findFilesystem(existing, name, region); found != nil {
		logger.Info("filesystem already exists upstream, adopting it", map[string]interface{}{
			"filesystem": name,
			"region":     region,
		})
		return found, nil
	}
	return nil, err
}

func findFilesystem(fsList []provider.Filesystem, name, region string) *provider.Filesystem {
	for i := range fsList {
		if fsList[i].Name == name && fsList[i].Region == region {
			return &fsList[i]
		}
	}
	return nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Sanitize lowercases s and collapses every run of non-alphanumeric characters into a
// single hyphen, trimming leading/trailing hyphens.
func Sanitize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PersonalFilesystemName computes the stable, length-bounded name for a candidate's
// personal filesystem in a region (§4.3).
func PersonalFilesystemName(email, region string) string {
	name := fmt.Sprintf("fs-%s-%s", Sanitize(email), Sanitize(region))
	const maxLen = 63
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	return strings.Trim(name, "-")
}

// SSHKeyName computes the deterministic upstream SSH key name for a candidate, so
// concurrent launches collapse to the same key instead of registering duplicates (§4.2
// step 5, §5d).
func SSHKeyName(email string) string {
	return "web-" + Sanitize(email)
}
