package fsresolver

import (
	"fmt"

	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
)

// buildLoaderSpec composes the shell script a loader VM runs: download the source tree,
// report completion, remount read-only, shut down. Only the completion-callback variant
// is supported — there is no fire-and-forget path.
func (r *Resolver) buildLoaderSpec(fs models.DefaultFilesystem, region, appBaseURL, seedCompleteSecret string) provider.LaunchSpec {
	mountPath := fmt.Sprintf("%s/%s", MountRoot, fs.Name)
	callbackURL := appBaseURL + "/api/seed-complete"

	script := fmt.Sprintf("#!/bin/bash\nset -euo pipefail\n\n%s\n\n%s\n%s\n",
		downloadSection(fs, mountPath),
		reportCompletionSection(callbackURL, seedCompleteSecret, fs.Name, region),
		shutdownSection(mountPath),
	)

	return provider.LaunchSpec{
		InstanceType:    "",
		Region:          region,
		FilesystemNames: []string{fs.Name},
		UserData:        script,
		Name:            "loader-" + Sanitize(fs.Name) + "-" + Sanitize(region),
	}
}

func downloadSection(fs models.DefaultFilesystem, mountPath string) string {
	if fs.DownloadScript != "" {
		return fmt.Sprintf("export NFS_PATH=%q\nexport CREDS_FILE=/tmp/seed-creds.json\ncat > \"$CREDS_FILE\" <<'EOF'\n%s\nEOF\n%s", mountPath, credsJSON(fs.Credentials), stripShebang(fs.DownloadScript))
	}

	switch fs.SourceType {
	case models.FetcherObjectStoreB:
		return fmt.Sprintf(
			"mkdir -p %s\nexport OBJSTORE_B_ACCESS_KEY=%q\nexport OBJSTORE_B_SECRET_KEY=%q\nobjstore-b-cli sync %q %s\n",
			mountPath, fs.Credentials["accessKey"], fs.Credentials["secretKey"], fs.SourceURL, mountPath,
		)
	default: // models.FetcherObjectStoreA
		return fmt.Sprintf(
			"mkdir -p %s\nexport OBJSTORE_A_TOKEN=%q\nobjstore-a-cli cp --recursive %q %s\n",
			mountPath, fs.Credentials["token"], fs.SourceURL, mountPath,
		)
	}
}

func credsJSON(creds map[string]string) string {
	out := "{"
	first := true
	for k, v := range creds {
		if !first {
			out += ","
		}
		out += fmt.Sprintf("%q:%q", k, v)
		first = false
	}
	return out + "}"
}

func reportCompletionSection(callbackURL, secret, filesystemName, region string) string {
	return fmt.Sprintf(
		"curl -sf -X POST %q \\\n  -H \"Authorization: Bearer %s\" \\\n  -H 'Content-Type: application/json' \\\n  -d '{\"filesystemName\":%q,\"region\":%q}'\n",
		callbackURL, secret, filesystemName, region,
	)
}

func shutdownSection(mountPath string) string {
	return fmt.Sprintf("sudo mount -o remount,ro %s\nsudo shutdown -h now\n", mountPath)
}
