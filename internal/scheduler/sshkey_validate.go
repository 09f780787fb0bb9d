package scheduler

import (
	"golang.org/x/crypto/ssh"

	"github.com/payperplay/hosting/internal/apperr"
)

// validateSSHPublicKey rejects anything that isn't a well-formed single authorized_keys
// line before it is registered upstream (§4.2 admission step 2). The upstream provider
// otherwise surfaces a malformed key as an opaque 400, which admission should catch
// locally with a clearer message.
func validateSSHPublicKey(key string) error {
	if key == "" {
		return apperr.Validation("sshPublicKey is required")
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return apperr.Validation("sshPublicKey is not a valid authorized_keys entry")
	}
	return nil
}
