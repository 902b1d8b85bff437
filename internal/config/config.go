// Package config loads the two user-authored documents the exporter runs
// from: the preferences file (connection parameters, output path, filters,
// email settings) and the field mapping file. Both accept YAML or JSON,
// selected by file extension. Loaded values are never mutated afterwards.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfig marks a missing or malformed configuration file or value.
var ErrConfig = errors.New("invalid configuration")

// Preferences is the flat runtime configuration record.
type Preferences struct {
	ALM     ALMSettings       `yaml:"alm"     json:"alm"`
	Output  string            `yaml:"output"  json:"output"`
	Filters map[string]string `yaml:"filters" json:"filters"`
	Email   EmailSettings     `yaml:"email"   json:"email"`

	// Mapping is an optional inline field mapping, used when no separate
	// mapping file is given on the command line.
	Mapping *Mapping `yaml:"mapping" json:"mapping"`
}

// ALMSettings holds the connection parameters for the QC ALM server.
type ALMSettings struct {
	WebDomain   string `yaml:"webdomain"    json:"webdomain"`
	Domain      string `yaml:"domain"       json:"domain"`
	Project     string `yaml:"project"      json:"project"`
	TestsFolder string `yaml:"tests_folder" json:"tests_folder"`
	HTTPSStrict *bool  `yaml:"https_strict" json:"https_strict"`
	Username    string `yaml:"username"     json:"username"`
	Password    string `yaml:"password"     json:"password"`
}

// StrictTLS reports whether server certificates must verify. Unset means
// strict.
func (a ALMSettings) StrictTLS() bool {
	return a.HTTPSStrict == nil || *a.HTTPSStrict
}

// EmailSettings configures the optional export-by-email delivery.
type EmailSettings struct {
	SenderDomain string   `yaml:"sender_domain" json:"sender_domain"`
	ToList       []string `yaml:"to_list"       json:"to_list"`
	CcList       []string `yaml:"cc_list"       json:"cc_list"`
	SMTPHost     string   `yaml:"smtp_host"     json:"smtp_host"`
	SMTPPort     int      `yaml:"smtp_port"     json:"smtp_port"`
}

// Load reads a preferences file and overlays the built-in defaults on
// missing values. Credentials may still be empty after Load; Validate is a
// separate step so the CLI can inject flag or environment overrides first.
func Load(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	prefs := new(Preferences)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, prefs); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, prefs); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: unknown file type %q, expected YAML or JSON",
			ErrConfig, path, ext)
	}

	prefs.applyDefaults()
	return prefs, nil
}

func (p *Preferences) applyDefaults() {
	if p.ALM.Domain == "" {
		p.ALM.Domain = defaultDomain
	}
	if p.ALM.Project == "" {
		p.ALM.Project = defaultProject
	}
	if p.ALM.TestsFolder == "" {
		p.ALM.TestsFolder = defaultTestsFolder
	}
	if p.Email.SMTPPort == 0 {
		p.Email.SMTPPort = defaultSMTPPort
	}
}

// Validate checks that every field required to reach the server is present.
func (p *Preferences) Validate() error {
	var missing []string
	if p.ALM.WebDomain == "" {
		missing = append(missing, "alm.webdomain")
	}
	if p.ALM.Username == "" {
		missing = append(missing, "alm.username")
	}
	if p.ALM.Password == "" {
		missing = append(missing, "alm.password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required values: %s",
			ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}
