package gamestate

import "sync/atomic"

// Snapshot is the raw key/value mapping carried by one state frame. Keys
// mirror the Lua bridge's memory watch names; absent keys read as zero.
type Snapshot map[string]int

// View is a read-only projection over one Snapshot. It is recomputed per
// received frame and never fails on missing keys.
type View struct {
	raw Snapshot
}

// NewView wraps a raw snapshot. A nil snapshot yields an all-zero view.
func NewView(raw Snapshot) View {
	return View{raw: raw}
}

func (v View) get(key string) int {
	if v.raw == nil {
		return 0
	}
	return v.raw[key]
}

// InBattle reports whether the battle flag is set in the snapshot.
func (v View) InBattle() bool {
	return v.get("in_battle_flag") != 0
}

// PlayerHP returns the lead party member's current HP.
func (v View) PlayerHP() int {
	return v.get("player_hp")
}

// PlayerMaxHP returns the lead party member's maximum HP.
func (v View) PlayerMaxHP() int {
	return v.get("player_max_hp")
}

// PPBySlot returns the remaining PP for move slots 0..3.
func (v View) PPBySlot() map[int]int {
	return map[int]int{
		0: v.get("battle_pp_1"),
		1: v.get("battle_pp_2"),
		2: v.get("battle_pp_3"),
		3: v.get("battle_pp_4"),
	}
}

// Encounter describes the current wild opponent. A fresh value is constructed
// on every frame where a battle is active; the unexported generation token
// gives each constructed value a distinct identity, so two structurally equal
// back-to-back encounters still count as separate events.
type Encounter struct {
	Species     int
	Shiny       bool
	TrainerID   int
	SecretID    int
	Personality int

	gen uint64
}

var encounterGen atomic.Uint64

// Same reports whether two encounter values were produced by the same
// construction, not whether their fields match.
func (e *Encounter) Same(other *Encounter) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.gen == other.gen
}

// Encounter derives the current wild encounter from the snapshot. It returns
// nil outside of battle or when the species slot reads as empty (<= 0).
func (v View) Encounter() *Encounter {
	if !v.InBattle() {
		return nil
	}
	species := v.get("enemy_species")
	if species <= 0 {
		return nil
	}
	tid := v.get("enemy_tid")
	sid := v.get("enemy_sid")
	pid := v.get("enemy_personality")
	return &Encounter{
		Species:     species,
		Shiny:       IsShiny(tid, sid, pid),
		TrainerID:   tid,
		SecretID:    sid,
		Personality: pid,
		gen:         encounterGen.Add(1),
	}
}

// IsShiny implements the generation-III shininess test: the XOR of the
// trainer ID, secret ID, and the two 16-bit halves of the personality value
// must be below 8. The personality halves are taken from the masked unsigned
// representation, so no sign extension leaks into the upper half.
func IsShiny(trainerID, secretID, personality int) bool {
	p := uint32(personality)
	x := uint32(trainerID) ^ uint32(secretID) ^ (p & 0xFFFF) ^ (p >> 16)
	return x < 8
}
