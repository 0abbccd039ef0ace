package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Recognized output formats and sample rates. Anything else is rejected at
// the boundary before a job is created.
const (
	DefaultOutputFormat = "wav"
	DefaultSampleRate   = 22050
)

// SynthesisConfig carries the recognized synthesis parameters explicitly,
// plus an opaque extension map that passes through unvalidated. The prosody
// fields are pointers so an explicit 0.0 (a valid mute volume) stays
// distinguishable from unset.
type SynthesisConfig struct {
	OutputFormat string         `json:"output_format" validate:"oneof=wav mp3 flac ogg"`
	SampleRate   int            `json:"sample_rate" validate:"oneof=8000 16000 22050 44100 48000"`
	Speed        *float64       `json:"speed,omitempty" validate:"gte=0.1,lte=3"`
	Pitch        *float64       `json:"pitch,omitempty" validate:"gte=0.1,lte=3"`
	Volume       *float64       `json:"volume,omitempty" validate:"gte=0,lte=2"`
	Extra        map[string]any `json:"extra,omitempty" validate:"-"`
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WithDefaults fills unset recognized fields. Only nil prosody fields get
// the 1.0 default; explicit values, including a mute volume of 0.0, are
// preserved.
func (c SynthesisConfig) WithDefaults() SynthesisConfig {
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Speed == nil {
		c.Speed = f64(1.0)
	}
	if c.Pitch == nil {
		c.Pitch = f64(1.0)
	}
	if c.Volume == nil {
		c.Volume = f64(1.0)
	}
	return c
}

func f64(v float64) *float64 { return &v }

// Validate normalizes the config and checks every recognized field,
// returning a field->message map covering all failures, or nil when the
// config is valid. Extension fields are never validated.
func (c SynthesisConfig) Validate() map[string]string {
	err := configValidator.Struct(c.WithDefaults())
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"config": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = messageFor(fe)
	}
	return fields
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Normalized returns the canonical key-value form used for fingerprinting:
// defaults applied, recognized fields under their wire names, extension
// fields alongside. Recognized names win on collision.
func (c SynthesisConfig) Normalized() map[string]any {
	c = c.WithDefaults()
	m := map[string]any{
		"output_format": c.OutputFormat,
		"sample_rate":   c.SampleRate,
		"speed":         *c.Speed,
		"pitch":         *c.Pitch,
		"volume":        *c.Volume,
	}
	for k, v := range c.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return m
}
