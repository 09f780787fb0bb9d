package fsresolver

import (
	"strings"
	"testing"

	"github.com/payperplay/hosting/internal/models"
)

func TestBuildLoaderSpec_ObjectStoreA(t *testing.T) {
	r := &Resolver{}
	fs := models.DefaultFilesystem{
		Name:        "shared-data",
		SourceType:  models.FetcherObjectStoreA,
		SourceURL:   "s3a://bucket/path",
		Credentials: map[string]string{"token": "tok-123"},
	}

	spec := r.buildLoaderSpec(fs, "us-east-1", "https://cp.example.org", "seedsecret")

	if !strings.Contains(spec.UserData, "objstore-a-cli") {
		t.Error("object store A loader script should invoke objstore-a-cli")
	}
	if !strings.Contains(spec.UserData, "OBJSTORE_A_TOKEN") {
		t.Error("object store A loader script should export the token credential")
	}
	if !strings.Contains(spec.UserData, "sudo shutdown -h now") {
		t.Error("loader script must shut itself down on completion")
	}
	if !strings.Contains(spec.UserData, "Authorization: Bearer seedsecret") {
		t.Error("loader script must send the seed-complete bearer secret")
	}
}

func TestBuildLoaderSpec_ObjectStoreB(t *testing.T) {
	r := &Resolver{}
	fs := models.DefaultFilesystem{
		Name:        "shared-data",
		SourceType:  models.FetcherObjectStoreB,
		SourceURL:   "gs://bucket/path",
		Credentials: map[string]string{"accessKey": "ak", "secretKey": "sk"},
	}

	spec := r.buildLoaderSpec(fs, "us-east-1", "https://cp.example.org", "seedsecret")

	if !strings.Contains(spec.UserData, "objstore-b-cli") {
		t.Error("object store B loader script should invoke objstore-b-cli")
	}
	if !strings.Contains(spec.UserData, "OBJSTORE_B_ACCESS_KEY") || !strings.Contains(spec.UserData, "OBJSTORE_B_SECRET_KEY") {
		t.Error("object store B loader script should export both credential parts")
	}
}

func TestBuildLoaderSpec_CustomDownloadScriptOverride(t *testing.T) {
	r := &Resolver{}
	fs := models.DefaultFilesystem{
		Name:           "shared-data",
		DownloadScript: "#!/bin/bash\nmy-custom-downloader \"$NFS_PATH\" \"$CREDS_FILE\"\n",
		Credentials:    map[string]string{"token": "tok"},
	}

	spec := r.buildLoaderSpec(fs, "us-east-1", "https://cp.example.org", "seedsecret")

	if !strings.Contains(spec.UserData, "my-custom-downloader") {
		t.Error("a custom downloadScript override should appear verbatim in the loader script")
	}
	if !strings.Contains(spec.UserData, "NFS_PATH") || !strings.Contains(spec.UserData, "CREDS_FILE") {
		t.Error("custom downloadScript should receive NFS_PATH and CREDS_FILE")
	}
	if strings.Contains(spec.UserData, "#!/bin/bash\n#!/bin/bash") {
		t.Error("the custom script's own shebang should be stripped before splicing")
	}
}

func TestBuildLoaderSpec_MountPathUnderMountRoot(t *testing.T) {
	r := &Resolver{}
	fs := models.DefaultFilesystem{Name: "shared-data", SourceType: models.FetcherObjectStoreA}
	spec := r.buildLoaderSpec(fs, "us-east-1", "https://cp.example.org", "secret")

	if !strings.Contains(spec.UserData, MountRoot+"/shared-data") {
		t.Errorf("loader script should mount at %s/shared-data", MountRoot)
	}
}
