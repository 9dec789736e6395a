package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

func validManifest() *Manifest {
	return &Manifest{
		Name:        "echo",
		Version:     "1.0.0",
		Description: "echoes its input",
		Kind:        KindNative,
		EntryPoint:  "echo",
	}
}

func TestValidateManifest_AcceptsWellFormedManifest(t *testing.T) {
	// Given: a manifest with every required field set
	m := validManifest()

	// When/Then: it validates without error
	assert.NoError(t, ValidateManifest(m))
}

func TestValidateManifest_RejectsEmptyName(t *testing.T) {
	// Given: a manifest with no name
	m := validManifest()
	m.Name = ""

	// When/Then: validation fails
	assert.Error(t, ValidateManifest(m))
}

func TestValidateManifest_RejectsNonSemverVersion(t *testing.T) {
	// Given: a manifest with a malformed version string
	m := validManifest()
	m.Version = "latest"

	// When/Then: validation fails
	assert.Error(t, ValidateManifest(m))
}

func TestValidateManifest_RejectsExecuteModeFilesystemCapability(t *testing.T) {
	// Given: a manifest declaring filesystem execute mode
	m := validManifest()
	m.Capabilities = []Capability{{Kind: CapabilityFilesystem, Mode: ModeExecute, Paths: []string{"/bin"}}}

	// When: it is validated
	err := ValidateManifest(m)

	// Then: it is rejected as a capability denial, not a generic error
	require.Error(t, err)
	assert.Equal(t, agenterrors.KindCapabilityDenied, agenterrors.GetKind(err))
}

func TestLoadManifestDir_SkipsInvalidAndKeepsValid(t *testing.T) {
	// Given: a directory with one valid and one invalid manifest file
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{
		"name": "good", "version": "1.0.0", "description": "fine",
		"type": "native", "entry_point": "good"
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{
		"name": "", "version": "1.0.0", "description": "", "type": "native", "entry_point": "bad"
	}`), 0o644))

	// When: the directory is loaded
	manifests, err := LoadManifestDir(dir)

	// Then: only the valid manifest survives
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "good", manifests[0].Name)
}

func TestLoadManifestDir_MissingDirReturnsEmpty(t *testing.T) {
	// Given: a directory that does not exist
	dir := filepath.Join(t.TempDir(), "missing")

	// When: it is loaded
	manifests, err := LoadManifestDir(dir)

	// Then: no error, no manifests
	require.NoError(t, err)
	assert.Empty(t, manifests)
}
