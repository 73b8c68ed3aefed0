package vkconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsNonDividingBands(t *testing.T) {
	cfg := Default()
	cfg.LSH.NumBands = 7
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_bands")
}

func TestValidateRejectsOutOfRangeSimilarity(t *testing.T) {
	cfg := Default()
	cfg.LSH.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadCalibration(t *testing.T) {
	cfg := Default()
	cfg.Denoise.AutoCalibration.QualityTarget = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Denoise.AutoCalibration.SampleSize = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadOverridesDefaultsAndKeepsTheRest(t *testing.T) {
	doc := []byte(`
[lsh]
num_bands = 16
similarity_threshold = 0.7

[quality_gate]
enabled = false
`)
	cfg, err := Load(doc)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.LSH.NumBands)
	assert.Equal(t, 0.7, cfg.LSH.SimilarityThreshold)
	assert.False(t, cfg.QualityGate.Enabled)

	// Unmentioned sections keep their defaults.
	assert.Equal(t, Default().Denoise.KgramSize, cfg.Denoise.KgramSize)
	assert.Equal(t, Default().Analysis.MaxFileSizeBytes, cfg.Analysis.MaxFileSizeBytes)
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	_, err := Load([]byte(`[lsh]
num_bands = 9
`))
	assert.Error(t, err, "9 does not divide the signature width")
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load([]byte(`this is not toml = = =`))
	assert.Error(t, err)
}
