package rulesets

import "math"

// CrossCombinations expands groups of mutually exclusive mods into every
// legal legacy combination: for each group either no mod or exactly one of
// its members is present. The first yielded combination is always no-mod.
func CrossCombinations(groups ...[]Mod) [][]Mod {
	combos := [][]Mod{nil}
	for _, group := range groups {
		next := make([][]Mod, 0, len(combos)*(len(group)+1))
		for _, c := range combos {
			next = append(next, c)
			for _, m := range group {
				withMod := make([]Mod, len(c), len(c)+1)
				copy(withMod, c)
				next = append(next, append(withMod, m))
			}
		}
		combos = next
	}
	return combos
}

// SumLegacyBits is the shared ConvertToLegacyMods implementation:
// nightcore implies double time in the legacy encoding.
func SumLegacyBits(mods []Mod) int64 {
	var v int64
	for _, m := range mods {
		v |= m.Bit
		if m.Bit == BitNightcore {
			v |= BitDoubleTime
		}
	}
	return v
}

// HasMod reports whether the acronym is present.
func HasMod(mods []Mod, acronym string) bool {
	for _, m := range mods {
		if m.Acronym == acronym {
			return true
		}
	}
	return false
}

// RateOf is the combined playback-rate multiplier of a combination.
func RateOf(mods []Mod) float64 {
	rate := 1.0
	for _, m := range mods {
		if m.RateMultiplier > 0 {
			rate *= m.RateMultiplier
		}
	}
	return rate
}

// ScaleDifficulty applies the hard-rock / easy adjustment used for the
// AR/OD/HP settings: HR multiplies (capped at 10), EZ halves.
func ScaleDifficulty(v float64, mods []Mod, hardRockFactor float64) float64 {
	if HasMod(mods, "HR") {
		v = math.Min(10, v*hardRockFactor)
	}
	if HasMod(mods, "EZ") {
		v /= 2
	}
	return v
}

// Approach-rate / preempt conversion, used to fold the playback rate back
// into an effective AR.
func PreemptFromAR(ar float64) float64 {
	if ar <= 5 {
		return 1800 - 120*ar
	}
	return 1200 - 150*(ar-5)
}

func ARFromPreempt(preempt float64) float64 {
	if preempt > 1200 {
		return (1800 - preempt) / 120
	}
	return 5 + (1200-preempt)/150
}

// EffectiveAR is the approach rate after HR/EZ scaling and rate adjustment.
func EffectiveAR(base float64, mods []Mod) float64 {
	ar := ScaleDifficulty(base, mods, 1.4)
	return ARFromPreempt(PreemptFromAR(ar) / RateOf(mods))
}

// Hit window of a perfect hit in ms, after OD scaling and rate adjustment.
func HitWindow300(od float64, mods []Mod) float64 {
	return (80 - 6*ScaleDifficulty(od, mods, 1.4)) / RateOf(mods)
}

// EffectiveOD folds a rate-adjusted perfect-hit window back into an OD.
func EffectiveOD(od float64, mods []Mod) float64 {
	return (80 - HitWindow300(od, mods)) / 6
}
