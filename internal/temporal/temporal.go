// Package temporal implements time-decay and lifecycle policy over memory
// records: the time-adjusted confidence formula and the archive/forget
// predicates derived from it.
package temporal

import (
	"math"
	"time"

	"github.com/memorai/memoraid/internal/model"
)

// Params holds the per-memory-type decay parameters named in spec §4.5.
type Params struct {
	ImportanceWeight  float64
	FrequencyWeight   float64
	EmotionalWeight   float64
	BaseDecayRatePerDay float64
}

// DefaultParams follows the monotone ordering from spec §4.5: personality
// decays slowest, thread fastest, task and procedure in the middle.
var DefaultParams = map[model.MemoryType]Params{
	model.TypePersonality: {ImportanceWeight: 0.6, FrequencyWeight: 0.15, EmotionalWeight: 0.2, BaseDecayRatePerDay: 0.01},
	model.TypeProcedure:   {ImportanceWeight: 0.5, FrequencyWeight: 0.2, EmotionalWeight: 0.1, BaseDecayRatePerDay: 0.03},
	model.TypePreference:  {ImportanceWeight: 0.5, FrequencyWeight: 0.2, EmotionalWeight: 0.15, BaseDecayRatePerDay: 0.025},
	model.TypeFact:        {ImportanceWeight: 0.55, FrequencyWeight: 0.2, EmotionalWeight: 0.1, BaseDecayRatePerDay: 0.02},
	model.TypeTask:        {ImportanceWeight: 0.45, FrequencyWeight: 0.25, EmotionalWeight: 0.1, BaseDecayRatePerDay: 0.035},
	model.TypeEmotion:     {ImportanceWeight: 0.4, FrequencyWeight: 0.2, EmotionalWeight: 0.35, BaseDecayRatePerDay: 0.04},
	model.TypeThread:      {ImportanceWeight: 0.3, FrequencyWeight: 0.25, EmotionalWeight: 0.1, BaseDecayRatePerDay: 0.08},
}

// Engine evaluates decay and lifecycle policy against a fixed set of
// thresholds and per-type parameters.
type Engine struct {
	params           map[model.MemoryType]Params
	archiveThreshold float64
	forgetThreshold  float64
}

// New constructs a temporal engine. A nil or empty params map uses
// DefaultParams; any type missing from a supplied map falls back to its
// DefaultParams entry.
func New(params map[model.MemoryType]Params, archiveThreshold, forgetThreshold float64) *Engine {
	merged := make(map[model.MemoryType]Params, len(DefaultParams))
	for t, p := range DefaultParams {
		merged[t] = p
	}
	for t, p := range params {
		merged[t] = p
	}
	return &Engine{params: merged, archiveThreshold: archiveThreshold, forgetThreshold: forgetThreshold}
}

func (e *Engine) paramsFor(t model.MemoryType) Params {
	if p, ok := e.params[t]; ok {
		return p
	}
	return DefaultParams[model.TypeThread]
}

// AdjustedConfidence computes the time-adjusted confidence for r as of now,
// per the formula in spec §4.5, clamped to [0,1].
func (e *Engine) AdjustedConfidence(r *model.MemoryRecord, now time.Time) float64 {
	p := e.paramsFor(r.Type)

	ageDays := now.Sub(r.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	idleDays := now.Sub(r.LastAccessedAt).Hours() / 24
	if idleDays < 0 {
		idleDays = 0
	}

	ageDecay := math.Exp(-p.BaseDecayRatePerDay * ageDays)
	idleDecay := math.Exp(-p.BaseDecayRatePerDay * idleDays * 0.5)

	importance := r.Importance
	if importance <= 0 {
		importance = 1e-9 // avoid 0^(positive exponent) collapsing to 0 for a legitimately-scored record
	}
	importanceFactor := math.Pow(importance, 1-p.ImportanceWeight)

	frequencyFactor := 1 + math.Log(float64(r.AccessCount)+2)*p.FrequencyWeight

	emotionalMagnitude := 0.0
	if r.EmotionalWeight != nil {
		emotionalMagnitude = math.Abs(*r.EmotionalWeight)
	}
	emotionalFactor := 1 + emotionalMagnitude*p.EmotionalWeight

	adjusted := r.Confidence * ageDecay * idleDecay * importanceFactor * frequencyFactor * emotionalFactor
	return clamp01(adjusted)
}

// ShouldArchive reports whether r's adjusted confidence has fallen below the
// archive threshold.
func (e *Engine) ShouldArchive(r *model.MemoryRecord, now time.Time) bool {
	return e.AdjustedConfidence(r, now) < e.archiveThreshold
}

// ShouldForget reports whether r's TTL has passed or its adjusted confidence
// has fallen below the forget threshold.
func (e *Engine) ShouldForget(r *model.MemoryRecord, now time.Time) bool {
	if r.Expired(now) {
		return true
	}
	return e.AdjustedConfidence(r, now) < e.forgetThreshold
}

// UpdateAccess sets last_accessed_at and updated_at to now and increments
// access_count, mutating r in place.
func UpdateAccess(r *model.MemoryRecord, now time.Time) {
	r.LastAccessedAt = now
	r.UpdatedAt = now
	r.AccessCount++
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
