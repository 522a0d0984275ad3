package hunt

// Mode is the hunting state machine's current state. Exactly one mode is
// active at a time and the polling loop is the only writer.
type Mode int

const (
	Idle Mode = iota
	WalkToGrass
	Encounter
	CatchShiny
	Battle
	Heal
	ReturnToGrass
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case WalkToGrass:
		return "walk_to_grass"
	case Encounter:
		return "encounter"
	case CatchShiny:
		return "catch_shiny"
	case Battle:
		return "battle"
	case Heal:
		return "heal"
	case ReturnToGrass:
		return "return_to_grass"
	default:
		return "unknown"
	}
}
