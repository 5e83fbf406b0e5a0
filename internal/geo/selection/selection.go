// Package selection governs which farm marker is selected and which of the
// two mutually exclusive overlays presents it: the bottom action sheet on
// touch layouts or the anchored popover on pointer layouts.
//
// The machine is the single writer of selection state. Every transition
// replaces the previous selection and its overlay atomically; there is no
// intermediate state with two overlays, or with a selection and no overlay.
package selection

import (
	"sync"

	"github.com/farmshopfinder/farmmap/internal/service"
)

// Mode is the overlay presenting the current selection.
type Mode string

const (
	ModeNone    Mode = "none"
	ModeSheet   Mode = "sheet"
	ModePopover Mode = "popover"
)

// DeviceClass decides which overlay a selection renders as. It is supplied
// by the host page; the machine never toggles the two independently.
type DeviceClass int

const (
	DeviceTouch DeviceClass = iota
	DevicePointer
)

// ScreenPoint is a screen-space coordinate captured for popover anchoring.
type ScreenPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// State is the externally visible selection state. Exactly one of the three
// modes holds at any time; Farm is nil iff Mode is ModeNone.
type State struct {
	Farm   *service.FarmShop
	Mode   Mode
	Anchor ScreenPoint // meaningful only for ModePopover
}

// Idle reports whether nothing is selected.
func (s State) Idle() bool { return s.Mode == ModeNone }

// Haptics is the platform vibration hook. Implementations are best-effort;
// a nil Haptics silently no-ops.
type Haptics interface {
	Tap()
}

// Machine is the selection state machine.
type Machine struct {
	mu       sync.Mutex
	device   DeviceClass
	lookup   func(id string) (service.FarmShop, bool)
	flyTo    func(lat, lng float64)
	haptics  Haptics
	onChange func(State)
	state    State
}

// Option configures a Machine.
type Option func(*Machine)

// WithHaptics wires the vibration hook fired on entering Selected.
func WithHaptics(h Haptics) Option {
	return func(m *Machine) { m.haptics = h }
}

// WithFlyTo wires the camera flight requested by external selections.
func WithFlyTo(fn func(lat, lng float64)) Option {
	return func(m *Machine) { m.flyTo = fn }
}

// WithListener wires the state-change observer (typically the event bus).
func WithListener(fn func(State)) Option {
	return func(m *Machine) { m.onChange = fn }
}

// NewMachine creates an idle machine. lookup resolves farm IDs against the
// current farm set; a failed lookup makes any selection attempt a no-op.
func NewMachine(device DeviceClass, lookup func(id string) (service.FarmShop, bool), opts ...Option) *Machine {
	m := &Machine{
		device: device,
		lookup: lookup,
		state:  State{Mode: ModeNone},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Click handles a marker tap/click. Selecting a farm while another is
// selected replaces it in one transition. An unknown ID is a no-op.
func (m *Machine) Click(farmID string, at ScreenPoint) bool {
	return m.doSelect(farmID, at, false)
}

// SelectFarm handles an external trigger (search result, deep link). On
// success it additionally requests a camera flight to the farm, so a
// far-away selection always comes into view. An unknown or stale ID leaves
// the machine untouched and never panics.
func (m *Machine) SelectFarm(farmID string) bool {
	return m.doSelect(farmID, ScreenPoint{}, true)
}

func (m *Machine) doSelect(farmID string, at ScreenPoint, fly bool) bool {
	m.mu.Lock()

	farm, ok := m.lookup(farmID)
	if !ok {
		m.mu.Unlock()
		return false
	}

	next := State{Farm: &farm}
	switch m.device {
	case DevicePointer:
		next.Mode = ModePopover
		next.Anchor = at
	default:
		next.Mode = ModeSheet
	}
	m.state = next
	haptics, onChange, flyTo := m.haptics, m.onChange, m.flyTo
	m.mu.Unlock()

	if haptics != nil {
		haptics.Tap()
	}
	if fly && flyTo != nil {
		flyTo(farm.Lat, farm.Lng)
	}
	if onChange != nil {
		onChange(next)
	}
	return true
}

// Close returns to Idle. It covers the explicit close button, a background
// map tap, and the navigate/share quick actions. Closing while idle is a
// no-op.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.state.Idle() {
		m.mu.Unlock()
		return
	}
	m.state = State{Mode: ModeNone}
	next := m.state
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}
}
