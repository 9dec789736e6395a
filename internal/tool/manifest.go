package tool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

// semverPattern accepts the MAJOR.MINOR.PATCH core of semver (pre-release
// and build metadata suffixes are allowed but not validated further); no
// semver library appears anywhere in the example corpus, so this regex is
// the stdlib fallback.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// ValidateManifest checks the structural and capability invariants a
// manifest must satisfy before it can be registered. It does not touch the
// filesystem or any external policy; env-gated enforcement happens at
// invocation time in policy.go.
func ValidateManifest(m *Manifest) error {
	if strings.TrimSpace(m.Name) == "" {
		return agenterrors.InvalidRecord(fmt.Errorf("tool manifest: name is required"))
	}
	if strings.TrimSpace(m.Description) == "" {
		return agenterrors.InvalidRecord(fmt.Errorf("tool manifest %q: description is required", m.Name))
	}
	if !semverPattern.MatchString(m.Version) {
		return agenterrors.InvalidRecord(fmt.Errorf("tool manifest %q: version %q is not valid semver", m.Name, m.Version))
	}
	switch m.Kind {
	case KindNative, KindWasm, KindMCP:
	default:
		return agenterrors.InvalidRecord(fmt.Errorf("tool manifest %q: unknown kind %q", m.Name, m.Kind))
	}
	if strings.TrimSpace(m.EntryPoint) == "" {
		return agenterrors.InvalidRecord(fmt.Errorf("tool manifest %q: entry_point is required", m.Name))
	}
	for _, c := range m.Capabilities {
		if c.Kind == CapabilityFilesystem && c.Mode == ModeExecute {
			return agenterrors.CapabilityDenied(m.Name, "filesystem:execute")
		}
	}
	return nil
}

// LoadManifestFile reads and validates a single manifest JSON file.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tool: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, agenterrors.InvalidRecord(fmt.Errorf("tool: parse manifest %s: %w", path, err))
	}
	if err := ValidateManifest(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestDir walks dir for *.json manifest files, skipping and
// logging any that fail to parse or validate rather than aborting the
// whole load — one bad manifest should not prevent the rest of the
// registry from coming up.
func LoadManifestDir(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tool: read manifest dir %s: %w", dir, err)
	}

	var manifests []*Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		m, err := LoadManifestFile(path)
		if err != nil {
			slog.Warn("tool: rejecting invalid manifest", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
