package decay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplySubThresholdAccessLeavesSalienceUnchanged(t *testing.T) {
	res := Apply(0.5, 0.1, Episodic, 0, LowActivity)
	assert.Equal(t, 0.5, res.NewSalience)
	assert.Equal(t, 0.0, res.DecayAmount)
}

func TestApplyNeverGoesBelowFloor(t *testing.T) {
	res := Apply(0.12, 10000, Episodic, 0, LowActivity)
	assert.InDelta(t, 0.10, res.NewSalience, 1e-9)
}

func TestApplyIsMonotoneWithoutRehearsal(t *testing.T) {
	s := 0.9
	for h := 1.0; h < 500; h += 10 {
		res := Apply(s, h, Semantic, 0, LowActivity)
		assert.LessOrEqual(t, res.NewSalience, s)
		s = res.NewSalience
	}
}

func TestResistanceBandBoundaryUsesLowerFactor(t *testing.T) {
	// §9 OQ: upper-inclusive bands, exact boundary uses the smaller factor.
	assert.Equal(t, 0.50, resistance(0.2))
	assert.Equal(t, 0.75, resistance(0.2000001))
	assert.Equal(t, 0.75, resistance(0.4))
	assert.Equal(t, 1.00, resistance(0.4000001))
	assert.Equal(t, 1.00, resistance(0.6))
	assert.Equal(t, 1.50, resistance(0.6000001))
	assert.Equal(t, 1.50, resistance(0.8))
	assert.Equal(t, 2.00, resistance(0.8000001))
}

func TestRecallBoostClampedAt30Percent(t *testing.T) {
	assert.InDelta(t, 0.30, recallBoost(100), 1e-9)
	assert.InDelta(t, 0.02, recallBoost(1), 1e-9)
	assert.InDelta(t, 0.0, recallBoost(0), 1e-9)
}

func TestLTPOrderingDecaysSlowerAtHigherSalience(t *testing.T) {
	high := Apply(0.9, 72, Default, 0, LowActivity)
	low := Apply(0.3, 72, Default, 0, LowActivity)

	highFraction := (0.9 - high.NewSalience) / 0.9
	lowFraction := (0.3 - low.NewSalience) / 0.3
	assert.Less(t, highFraction, lowFraction)
}

// SC1 Episodic decay at 48 h. s=0.8 sits on the resistance(0.8) boundary,
// which resolves to the lower band (ltp=1.50, §9 OQ2) rather than 2.00,
// giving an effective half-life of 24*1.50=36h and NewSalience ≈0.295.
func TestScenarioSC1EpisodicDecay48h(t *testing.T) {
	res := Apply(0.8, 48, Episodic, 0, LowActivity)
	assert.GreaterOrEqual(t, res.NewSalience, 0.29)
	assert.LessOrEqual(t, res.NewSalience, 0.30)
}

// SC2 Semantic high-recall.
func TestScenarioSC2SemanticHighRecall(t *testing.T) {
	res := Apply(0.7, 168, Semantic, 20, FocusedLearning)
	assert.GreaterOrEqual(t, res.NewSalience, 0.58)
}

// SC3 Floor clamp.
func TestScenarioSC3FloorClamp(t *testing.T) {
	res := Apply(0.12, 10000, Episodic, 0, LowActivity)
	assert.InDelta(t, 0.10, res.NewSalience, 1e-9)
}

func TestResolveContextWallClockWindows(t *testing.T) {
	date := func(hour int) time.Time {
		return time.Date(2026, 1, 1, hour, 0, 0, 0, time.Local)
	}
	assert.Equal(t, FocusedLearning, ResolveContext(date(9), nil))
	assert.Equal(t, FocusedLearning, ResolveContext(date(17), nil))
	assert.Equal(t, HighActivity, ResolveContext(date(18), nil))
	assert.Equal(t, HighActivity, ResolveContext(date(22), nil))
	assert.Equal(t, RestPeriod, ResolveContext(date(23), nil))
	assert.Equal(t, RestPeriod, ResolveContext(date(8), nil))
}

func TestResolveContextOverrideWinsAlways(t *testing.T) {
	got := ResolveContext(time.Now(), &LowActivity)
	assert.Equal(t, LowActivity, got)
}
