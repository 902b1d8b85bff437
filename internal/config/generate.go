package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultPreferences is the commented template emitted by the
// --generate-preferences flag, meant to be customized by the user.
const defaultPreferences = `# CUTIE preferences file.
# Credentials may be left empty here and supplied via the ALM_USERNAME and
# ALM_PASSWORD environment variables (or the matching CLI flags) instead.
alm:
    webdomain: http://localhost:8080
    domain: EXAMPLE
    project: QA
    # Test-plan folder to export, as shown in the ALM tree.
    tests_folder: Subject
    # Set to false to accept self-signed server certificates.
    https_strict: true
    username: ""
    password: ""

# Output workbook path. Empty means export_<timestamp>.xlsx in the working
# directory; the -o flag overrides this.
output: ""

# Optional test filter criteria, applied as ALM query clauses
# (vendor field name to value), e.g.:
#   owner: jdoe
#   subtype-id: MANUAL
filters: {}

email:
    sender_domain: example.com
    to_list: []
    cc_list: []
    smtp_host: localhost
    smtp_port: 25

# Vendor field to column-name mapping. Declaration order defines the column
# order of the export. A separate mapping file given with -m wins over this
# section.
mapping:
    user-12: Feature code
    user-10: Test case ID
    name: Test name
    creation-time: Creation date
    subtype-id: Type
    user-09: Test mode
    user-06: Test level
    user-13: Test execution time
    user-14: Requirement ID
    user-01: Config interface
    user-05: IP version
    user-02: LAN interface
    id: ALM internal ID
    user-04: WAN connection
    user-03: WAN mode
    user-16: Test title
    user-15: Test type
    owner: Owner
    description: Description
`

// WriteDefault writes the default preferences template. A directory path
// gets preferences.yaml appended; an existing file is never overwritten.
func WriteDefault(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "preferences.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s already exists, refusing to overwrite", ErrConfig, path)
	}
	// 0600: the customized file will hold credentials.
	if err := os.WriteFile(path, []byte(defaultPreferences), 0o600); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrConfig, path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
