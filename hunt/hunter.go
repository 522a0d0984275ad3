package hunt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pkmn-tools/shinyhunt-go/bridge"
	"github.com/pkmn-tools/shinyhunt-go/gamestate"
	"github.com/pkmn-tools/shinyhunt-go/logger"
)

// ErrConnectTimeout is returned by Start when the connect deadline elapses
// without the emulator bridge coming up.
var ErrConnectTimeout = errors.New("timed out waiting for emulator bridge")

// Conn is the bridge surface the hunter drives. *bridge.Bridge satisfies it;
// tests substitute mocks so the transition logic runs without a live socket.
type Conn interface {
	Connect() error
	Close() error
	SendButtons(buttons []string) error
	SendMacro(steps []bridge.MacroStep) error
	ResetInput() error
	ReceiveState() (*gamestate.View, error)
}

// EncounterLogger records each newly observed encounter exactly once.
// Implementations must absorb their own failures; the hunting loop never
// stops because a sink misbehaved.
type EncounterLogger interface {
	Log(enc gamestate.Encounter, ordinal int)
}

// Tuning holds the hot-reloadable part of the hunter's configuration.
type Tuning struct {
	ToGrassMacro    []bridge.MacroStep
	ToCenterMacro   []bridge.MacroStep
	PPThreshold     int
	PPRecoveryMoves []int
}

// Options holds the loop timing knobs.
type Options struct {
	PollInterval         time.Duration
	ConnectTimeout       time.Duration
	ConnectRetryInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	if o.ConnectRetryInterval <= 0 {
		o.ConnectRetryInterval = time.Second
	}
	return o
}

// attackMacro selects the first move: confirm into the fight menu, confirm
// the highlighted move.
var attackMacro = []bridge.MacroStep{
	{Duration: 2, Buttons: []string{"A"}},
	{Duration: 2, Buttons: []string{"A"}},
}

// catchMacro dismisses dialogue, opens the item menu, selects the bag, and
// uses the topmost ball. It is reissued every tick while the battle lasts;
// the Lua side tolerates the redundancy.
var catchMacro = []bridge.MacroStep{
	{Duration: 2, Buttons: []string{"B"}},
	{Duration: 2, Buttons: []string{"DOWN"}},
	{Duration: 2, Buttons: []string{"A"}},
	{Duration: 2, Buttons: []string{"A"}},
}

// EncounterSummary is the status-facing record of the last logged encounter.
type EncounterSummary struct {
	Ordinal     int       `json:"ordinal"`
	Species     int       `json:"species"`
	Shiny       bool      `json:"shiny"`
	TrainerID   int       `json:"trainer_id"`
	SecretID    int       `json:"secret_id"`
	Personality int       `json:"personality"`
	SeenAt      time.Time `json:"seen_at"`
}

// Status is a point-in-time snapshot of the hunter for the operator surface.
type Status struct {
	Mode           string            `json:"mode"`
	EncountersSeen int               `json:"encounters_seen"`
	ShinyFound     bool              `json:"shiny_found"`
	LastEncounter  *EncounterSummary `json:"last_encounter,omitempty"`
}

// Hunter is the shiny-hunting state machine. A single goroutine drives the
// polling loop, so mode and counters need no synchronization among
// transitions; the mutex only covers the fields the status server and the
// config watcher read or swap from outside.
type Hunter struct {
	conn Conn
	sink EncounterLogger
	opts Options

	mu       sync.Mutex
	tuning   Tuning
	mode     Mode
	prevMode Mode
	seen     int
	shiny    bool
	last     *EncounterSummary

	current *gamestate.Encounter
}

// New builds a hunter around a connected or yet-to-connect bridge.
func New(conn Conn, tuning Tuning, sink EncounterLogger, opts Options) *Hunter {
	return &Hunter{
		conn:   conn,
		sink:   sink,
		opts:   opts.withDefaults(),
		tuning: tuning,
		mode:   Idle,
	}
}

// Mode returns the current state machine mode.
func (h *Hunter) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

func (h *Hunter) setMode(mode Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if mode != h.mode {
		logger.Debug("Mode transition", "from", h.mode.String(), "to", mode.String())
	}
	h.prevMode = h.mode
	h.mode = mode
}

// EncountersSeen returns the monotonically increasing encounter counter.
func (h *Hunter) EncountersSeen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seen
}

// Status snapshots the hunter for the operator surface.
func (h *Hunter) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := Status{
		Mode:           h.mode.String(),
		EncountersSeen: h.seen,
		ShinyFound:     h.shiny,
	}
	if h.last != nil {
		last := *h.last
		status.LastEncounter = &last
	}
	return status
}

// UpdateTuning swaps the hot-reloadable configuration. The next loop
// iteration picks it up.
func (h *Hunter) UpdateTuning(tuning Tuning) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tuning = tuning
	logger.Info("Hunter tuning updated",
		"pp_threshold", tuning.PPThreshold,
		"pp_recovery_moves", tuning.PPRecoveryMoves,
		"to_grass_steps", len(tuning.ToGrassMacro),
		"to_center_steps", len(tuning.ToCenterMacro))
}

func (h *Hunter) tuningSnapshot() Tuning {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tuning
}

// Start connects with retry against the configured deadline, then runs the
// polling loop until the context is cancelled or an unrecoverable I/O error
// surfaces. The bridge is closed before the error propagates.
func (h *Hunter) Start(ctx context.Context) error {
	if err := h.connectWithRetry(ctx); err != nil {
		return err
	}
	defer h.conn.Close()

	h.setMode(WalkToGrass)
	logger.Info("Hunting loop started", "poll_interval", h.opts.PollInterval)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		view, err := h.conn.ReceiveState()
		if err != nil {
			// Shutdown closes the bridge under us, report that as
			// cancellation rather than an I/O failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("hunting loop: %w", err)
		}
		if view == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.opts.PollInterval):
			}
			continue
		}
		if err := h.step(*view); err != nil {
			return fmt.Errorf("hunting loop: %w", err)
		}
	}
}

func (h *Hunter) connectWithRetry(ctx context.Context) error {
	var deadline time.Time
	if h.opts.ConnectTimeout > 0 {
		deadline = time.Now().Add(h.opts.ConnectTimeout)
	}

	for {
		err := h.conn.Connect()
		if err == nil {
			logger.Info("Connected to emulator bridge")
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		logger.Debug("Bridge connect attempt failed", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.opts.ConnectRetryInterval):
		}
	}
}

// step dispatches one received frame to the current mode's handler.
func (h *Hunter) step(view gamestate.View) error {
	switch h.Mode() {
	case WalkToGrass:
		if err := h.runMacro(h.tuningSnapshot().ToGrassMacro); err != nil {
			return err
		}
		if view.InBattle() {
			// Handle the frame that started the battle immediately so a
			// shiny is logged and reset-caught without waiting a tick.
			h.setMode(Encounter)
			return h.handleEncounter(view)
		}
	case Encounter:
		return h.handleEncounter(view)
	case CatchShiny:
		return h.catchSequence(view)
	case Battle:
		return h.handleBattle(view)
	case Heal:
		if err := h.runMacro(h.tuningSnapshot().ToCenterMacro); err != nil {
			return err
		}
		if !view.InBattle() && view.PlayerHP() == view.PlayerMaxHP() {
			h.setMode(ReturnToGrass)
		}
	case ReturnToGrass:
		if err := h.runMacro(h.tuningSnapshot().ToGrassMacro); err != nil {
			return err
		}
		if view.InBattle() {
			h.setMode(Encounter)
			return h.handleEncounter(view)
		}
	case Idle:
		// Nothing to do until Start switches to WalkToGrass.
	}
	return nil
}

func (h *Hunter) runMacro(steps []bridge.MacroStep) error {
	if len(steps) == 0 {
		return nil
	}
	return h.conn.SendMacro(steps)
}

// handleEncounter classifies the current encounter. A newly observed
// encounter is counted and logged before any shiny branching, so every
// encounter is recorded regardless of what happens next.
func (h *Hunter) handleEncounter(view gamestate.View) error {
	enc := view.Encounter()
	if enc == nil {
		return nil
	}
	if !enc.Same(h.current) {
		ordinal := h.record(enc)
		h.sink.Log(*enc, ordinal)
		if enc.Shiny {
			logger.Info("Shiny encounter", "species", enc.Species, "ordinal", ordinal)
		} else {
			logger.Debug("Encounter", "species", enc.Species, "ordinal", ordinal)
		}
	}
	if enc.Shiny {
		h.setMode(CatchShiny)
		return h.conn.ResetInput()
	}
	return h.decideNonShiny(view)
}

func (h *Hunter) record(enc *gamestate.Encounter) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen++
	h.current = enc
	if enc.Shiny {
		h.shiny = true
	}
	h.last = &EncounterSummary{
		Ordinal:     h.seen,
		Species:     enc.Species,
		Shiny:       enc.Shiny,
		TrainerID:   enc.TrainerID,
		SecretID:    enc.SecretID,
		Personality: enc.Personality,
		SeenAt:      time.Now().UTC(),
	}
	return h.seen
}

func (h *Hunter) decideNonShiny(view gamestate.View) error {
	tuning := h.tuningSnapshot()
	if ppLow(view, tuning) {
		h.setMode(Heal)
		return h.runMacro(tuning.ToCenterMacro)
	}
	return h.attack()
}

// ppLow reports whether every monitored move slot is at or below the
// threshold, which means the hunter cannot keep attacking and must heal.
func ppLow(view gamestate.View, tuning Tuning) bool {
	pp := view.PPBySlot()
	for _, slot := range tuning.PPRecoveryMoves {
		if pp[slot] > tuning.PPThreshold {
			return false
		}
	}
	return true
}

// attack selects the lowest-index move. Smarter move selection would hook in
// here; the PP-low check in decideNonShiny must stay ahead of it.
func (h *Hunter) attack() error {
	if err := h.conn.SendMacro(attackMacro); err != nil {
		return err
	}
	h.setMode(WalkToGrass)
	return nil
}

func (h *Hunter) catchSequence(view gamestate.View) error {
	if !view.InBattle() {
		h.setMode(ReturnToGrass)
		return nil
	}
	return h.conn.SendMacro(catchMacro)
}

func (h *Hunter) handleBattle(view gamestate.View) error {
	if !view.InBattle() {
		h.mu.Lock()
		cameFromHeal := h.prevMode == Heal
		h.mu.Unlock()
		if cameFromHeal {
			h.setMode(ReturnToGrass)
		} else {
			h.setMode(WalkToGrass)
		}
		return nil
	}
	return h.attack()
}
