package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/interpolation"
	"rbfinterp/pkg/rbf"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rbffit.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "biharmonic", cfg.Kernel.Name)
	assert.Equal(t, 0, cfg.Model.Degree)
	assert.Nil(t, cfg.Model.Nugget)
	assert.Equal(t, 1e-4, cfg.Solver.Tolerance)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rbffit.yaml")
	yaml := `
kernel:
  name: Multiquadric
  parameters: [1.0, 0.01, 0.0]
model:
  degree: 1
  nugget: 0.002
solver:
  domainSize: 128
  numCores: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	// Unset fields keep their defaults.
	assert.Equal(t, 3, cfg.Model.Dim)
	assert.Equal(t, 1e-4, cfg.Solver.Tolerance)

	model, err := cfg.BuildModel()
	require.NoError(t, err)
	assert.Equal(t, "multiquadric", model.Kernel().Name())
	assert.Equal(t, 1, model.PolyDegree())
	assert.Equal(t, 4, model.PolyBasisSize())
	assert.Equal(t, 0.002, model.Nugget())

	opts := cfg.FitterOptions()
	assert.Equal(t, 128, opts.DomainSize)
	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, cfg.Solver.CoarseSize, opts.CoarseSize)
}

func TestBuildModelErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kernel.Name = "thin_plate"
	_, err := cfg.BuildModel()
	assert.ErrorIs(t, err, rbf.ErrConfiguration)

	cfg = DefaultConfig()
	cfg.Kernel.Parameters = []float64{1}
	_, err = cfg.BuildModel()
	assert.ErrorIs(t, err, rbf.ErrConfiguration)

	// The biharmonic kernel needs at least a constant trend.
	cfg = DefaultConfig()
	cfg.Model.Degree = -1
	_, err = cfg.BuildModel()
	assert.ErrorIs(t, err, rbf.ErrConfiguration)

	cfg = DefaultConfig()
	negative := -1.0
	cfg.Model.Nugget = &negative
	_, err = cfg.BuildModel()
	assert.ErrorIs(t, err, rbf.ErrConfiguration)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kernel: [unclosed"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestFitterOptionsZeroOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rbffit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  overlap: 0\n"), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, interpolation.NoOverlap, cfg.FitterOptions().Overlap)

	assert.Equal(t, DefaultConfig().Solver.Overlap, DefaultConfig().FitterOptions().Overlap)
}
