package models

import "time"

// Source type variants for loader-VM downloads: two object-store fetchers, each with its
// own credential shape. Only the completion-callback variant is supported — there is no
// "fire and forget" loader here.
const (
	FetcherObjectStoreA = "object_store_a"
	FetcherObjectStoreB = "object_store_b"
)

// DefaultFilesystem describes one admin-configured shared filesystem that should be
// auto-created and seeded in every region it's first requested in.
type DefaultFilesystem struct {
	Name           string            `json:"name"`
	SourceType     string            `json:"sourceType"`               // FetcherObjectStoreA | FetcherObjectStoreB
	SourceURL      string            `json:"sourceUrl"`
	Credentials    map[string]string `json:"credentials"`              // shape depends on SourceType
	DownloadScript string            `json:"downloadScript,omitempty"` // optional override; sees $NFS_PATH, $CREDS_FILE
}

// Settings is the singleton admin-configured record (§3).
type Settings struct {
	LambdaAPIKey       string               `json:"lambdaApiKey"`
	SetupScript        string               `json:"setupScript"`
	DefaultFilesystems []DefaultFilesystem  `json:"defaultFilesystems"`
	SeedCompleteSecret string               `json:"seedCompleteSecret"`

	// MaxVMHours is an optional, off-by-default administrative policy (O2): when > 0,
	// the Reconciler terminates any VM whose wall-clock age exceeds this many hours,
	// independent of and in addition to the dollar-quota rule.
	MaxVMHours int `json:"maxVmHours"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Masked returns a copy of Settings safe to return to API clients: the provider API key
// and any shared-filesystem credentials are redacted (§6.1: "API key and credentials are
// returned masked").
func (s Settings) Masked() Settings {
	masked := s
	masked.LambdaAPIKey = maskSecret(s.LambdaAPIKey)
	masked.SeedCompleteSecret = maskSecret(s.SeedCompleteSecret)
	masked.DefaultFilesystems = make([]DefaultFilesystem, len(s.DefaultFilesystems))
	for i, fs := range s.DefaultFilesystems {
		maskedFS := fs
		maskedFS.Credentials = make(map[string]string, len(fs.Credentials))
		for k := range fs.Credentials {
			maskedFS.Credentials[k] = "****"
		}
		masked.DefaultFilesystems[i] = maskedFS
	}
	return masked
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
