package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirClappington/synq/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestConfigDefaults(t *testing.T) {
	cfg := domain.SynthesisConfig{}.WithDefaults()
	assert.Equal(t, "wav", cfg.OutputFormat)
	assert.Equal(t, 22050, cfg.SampleRate)
	require.NotNil(t, cfg.Speed)
	assert.Equal(t, 1.0, *cfg.Speed)
	require.NotNil(t, cfg.Pitch)
	assert.Equal(t, 1.0, *cfg.Pitch)
	require.NotNil(t, cfg.Volume)
	assert.Equal(t, 1.0, *cfg.Volume)

	cfg = domain.SynthesisConfig{OutputFormat: "mp3", Speed: f(0.5)}.WithDefaults()
	assert.Equal(t, "mp3", cfg.OutputFormat)
	assert.Equal(t, 0.5, *cfg.Speed)
}

// An explicit volume of 0.0 is a valid mute request, not an unset field:
// it must survive normalization and keep its own fingerprint.
func TestExplicitZeroVolumeSurvivesNormalization(t *testing.T) {
	cfg := domain.SynthesisConfig{Volume: f(0.0)}.WithDefaults()
	require.NotNil(t, cfg.Volume)
	assert.Equal(t, 0.0, *cfg.Volume)
	assert.Nil(t, domain.SynthesisConfig{Volume: f(0.0)}.Validate())

	muted := domain.SynthesisConfig{Volume: f(0.0)}.Normalized()
	dflt := domain.SynthesisConfig{}.Normalized()
	assert.Equal(t, 0.0, muted["volume"])
	assert.Equal(t, 1.0, dflt["volume"])
}

func TestConfigValidateReportsAllFields(t *testing.T) {
	fields := domain.SynthesisConfig{
		OutputFormat: "aiff",
		SampleRate:   12345,
		Speed:        f(0.01),
		Pitch:        f(4.0),
		Volume:       f(-1),
	}.Validate()

	require.Len(t, fields, 5)
	assert.Contains(t, fields["output_format"], "wav")
	assert.Contains(t, fields["sample_rate"], "22050")
	assert.Contains(t, fields["speed"], "0.1")
	assert.Contains(t, fields["pitch"], "3")
	assert.Contains(t, fields["volume"], "0")
}

func TestConfigValidateAcceptsDefaultsAndExtras(t *testing.T) {
	assert.Nil(t, domain.SynthesisConfig{}.Validate())
	assert.Nil(t, domain.SynthesisConfig{
		OutputFormat: "flac",
		SampleRate:   48000,
		Speed:        f(3.0),
		Volume:       f(2.0),
		Extra:        map[string]any{"emotion": "whatever goes here"},
	}.Validate())
}

func TestNormalizedKeepsExtensionFields(t *testing.T) {
	m := domain.SynthesisConfig{
		Extra: map[string]any{"style": "calm", "speed": "should not clobber"},
	}.Normalized()

	assert.Equal(t, "wav", m["output_format"])
	assert.Equal(t, "calm", m["style"])
	assert.Equal(t, 1.0, m["speed"], "recognized names win on collision")
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, domain.StatusPending.CanTransition(domain.StatusProcessing))
	assert.True(t, domain.StatusFailed.CanTransition(domain.StatusPending))
	assert.False(t, domain.StatusCompleted.CanTransition(domain.StatusPending))
	assert.False(t, domain.StatusPending.CanTransition(domain.StatusCompleted))
	assert.False(t, domain.StatusPending.CanTransition(domain.Status("bogus")))

	assert.True(t, domain.StatusCompleted.Terminal())
	assert.True(t, domain.StatusFailed.Terminal())
	assert.True(t, domain.StatusCancelled.Terminal())
	assert.False(t, domain.StatusProcessing.Terminal())
	assert.False(t, domain.Status("bogus").Valid())
}

func TestErrorCodes(t *testing.T) {
	err := domain.Errorf(domain.CodeNotFound, "job %s not found", "abc")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	assert.False(t, domain.IsCode(err, domain.CodeAccessDenied))
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "NOT_FOUND")

	verr := domain.NewValidationError(map[string]string{"speed": "too fast"})
	assert.True(t, domain.IsCode(verr, domain.CodeValidation))
	assert.Equal(t, "too fast", verr.Fields["speed"])

	assert.Equal(t, domain.Code(""), domain.CodeOf(assert.AnError))
}
