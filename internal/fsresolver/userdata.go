package fsresolver

import "strings"

// ComposeUserData splices the admin-configured setup script and the resolver's
// read-only remount fragment into a single wrapper script (§4.3: "concatenated after the
// admin-configured setupScript inside a single #!/bin/bash\nset -euo pipefail wrapper").
// The setup script may or may not carry its own shebang; any shebang line is stripped
// before splicing so the result has exactly one.
func ComposeUserData(setupScript, readonlyRemountScript string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\nset -euo pipefail\n\n")
	if body := stripShebang(setupScript); body != "" {
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	if readonlyRemountScript != "" {
		b.WriteString(readonlyRemountScript)
	}
	return b.String()
}

// stripShebang removes a leading `#!...` line, if present, leaving the rest untouched.
func stripShebang(script string) string {
	trimmed := strings.TrimLeft(script, "\n")
	if !strings.HasPrefix(trimmed, "#!") {
		return script
	}
	idx := strings.IndexByte(trimmed, '\n')
	if idx == -1 {
		return ""
	}
	return trimmed[idx+1:]
}
