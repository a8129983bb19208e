// Package decay implements the pure salience decay function: exponential
// half-life blended with an Ebbinghaus forgetting curve, modulated by
// long-term potentiation resistance, recall boosts, and environmental
// context. Nothing here touches the database or the clock directly,
// which keeps the algebra independently testable.
package decay

import "math"

// MemoryType mirrors store.MemoryType without importing the store
// package, keeping this package dependency-free and purely functional.
type MemoryType string

const (
	Episodic   MemoryType = "episodic"
	Semantic   MemoryType = "semantic"
	Procedural MemoryType = "procedural"
	Emotional  MemoryType = "emotional"
	Default    MemoryType = "default"
)

// params holds the per-memory-type decay constants from the type table.
// boostMult is carried for parity with the table but the decay formula
// itself never multiplies by it; recall's effect on half-life runs
// entirely through recallBoost.
type params struct {
	halfLifeHours float64
	floor         float64
	boostMult     float64
}

var typeParams = map[MemoryType]params{
	Episodic:   {halfLifeHours: 24, floor: 0.10, boostMult: 1.20},
	Semantic:   {halfLifeHours: 168, floor: 0.15, boostMult: 1.00},
	Procedural: {halfLifeHours: 720, floor: 0.20, boostMult: 0.90},
	Emotional:  {halfLifeHours: 48, floor: 0.12, boostMult: 1.30},
	Default:    {halfLifeHours: 72, floor: 0.10, boostMult: 1.00},
}

func lookup(t MemoryType) params {
	if p, ok := typeParams[t]; ok {
		return p
	}
	return typeParams[Default]
}

// Floor returns the salience floor for t, used by callers that need to
// clamp salience outside of a full Apply call (e.g. after a manual edit).
func Floor(t MemoryType) float64 {
	return lookup(t).floor
}

// resistance implements the LTP resistance bands: upper-inclusive, so a
// salience exactly on a boundary uses the band the boundary belongs to.
func resistance(s float64) float64 {
	switch {
	case s <= 0.2:
		return 0.50
	case s <= 0.4:
		return 0.75
	case s <= 0.6:
		return 1.00
	case s <= 0.8:
		return 1.50
	default:
		return 2.00
	}
}

// Context is an environmental modifier applied to the effective
// half-life. Label is carried through for audit logging and the run
// metric; Multiplier is what the formula actually uses.
type Context struct {
	Label      string
	Multiplier float64
}

var (
	FocusedLearning = Context{Label: "focused_learning", Multiplier: 0.5}
	HighActivity    = Context{Label: "high_activity", Multiplier: 0.7}
	RestPeriod      = Context{Label: "rest_period", Multiplier: 1.3}
	LowActivity     = Context{Label: "low_activity", Multiplier: 1.0}
)

// Modifiers records the intermediate values of one Apply call, for audit
// logging in decay-history entries.
type Modifiers struct {
	LTPFactor          float64
	RecallBoost        float64
	EnvMultiplier      float64
	EbbinghausModifier float64
}

// Result is the outcome of applying decay once.
type Result struct {
	NewSalience float64
	DecayAmount float64
	Modifiers   Modifiers
}

// Apply computes the new salience for an item with current salience s,
// hours since last access h, memory type t, recall count r, under
// environmental context ctx. It is pure and idempotent given its inputs.
func Apply(s float64, h float64, t MemoryType, r int, ctx Context) Result {
	p := lookup(t)

	if h < 0.25 {
		return Result{
			NewSalience: s,
			DecayAmount: 0,
			Modifiers: Modifiers{
				LTPFactor:     resistance(s),
				RecallBoost:   recallBoost(r),
				EnvMultiplier: ctx.Multiplier,
			},
		}
	}

	ltp := resistance(s)
	boost := recallBoost(r)
	envMult := ctx.Multiplier
	if envMult == 0 {
		envMult = 1.0
	}

	effectiveHalfLife := p.halfLifeHours * ltp * (1 + boost) / envMult

	b := math.Pow(0.5, h/effectiveHalfLife)

	tau := h / 24.0
	forget := 0.15 + 0.85*math.Exp(-1.5*tau)
	w := math.Exp(-tau)
	modifier := math.Max(b*(1-w)+forget*w, 0.15)

	newSalience := math.Max(s*modifier, p.floor)

	return Result{
		NewSalience: newSalience,
		DecayAmount: s - newSalience,
		Modifiers: Modifiers{
			LTPFactor:          ltp,
			RecallBoost:        boost,
			EnvMultiplier:      envMult,
			EbbinghausModifier: modifier,
		},
	}
}

func recallBoost(r int) float64 {
	return math.Min(float64(r)*0.02, 0.30)
}
