package ui

import "time"

// Phase is the visibility state of one loading indicator element.
type Phase int

const (
	PhaseHidden Phase = iota
	PhaseVisible
)

func (p Phase) String() string {
	if p == PhaseVisible {
		return "visible"
	}
	return "hidden"
}

type Transition struct {
	Duration time.Duration `json:"duration"`
	Ease     string        `json:"ease"`
}

var dotTransition = Transition{Duration: 300 * time.Millisecond, Ease: "easeInOut"}

// LineStyle styles a bar of the line loader.
type LineStyle struct {
	Width      string `json:"width"`
	Background string `json:"background"`
}

var lineVariants = map[Phase]LineStyle{
	PhaseHidden:  {Width: "0", Background: "rgba(128, 0, 128, 0.2)"},
	PhaseVisible: {Width: "20px", Background: "rgba(128, 0, 128, 0.8)"},
}

// StarStyle styles a glyph of the star loader.
type StarStyle struct {
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale"`
	Color   string  `json:"color"`
}

var starVariants = map[Phase]StarStyle{
	PhaseHidden:  {Opacity: 0, Scale: 0.5, Color: "rgba(255, 215, 0, 1)"},
	PhaseVisible: {Opacity: 1, Scale: 1, Color: "rgba(255, 215, 0, 1)"},
}

func LineVariant(p Phase) LineStyle { return lineVariants[p] }

func StarVariant(p Phase) StarStyle { return starVariants[p] }

// DialogPhase is the open state of a modal.
type DialogPhase int

const (
	DialogClosed DialogPhase = iota
	DialogOpen
)

func (p DialogPhase) String() string {
	if p == DialogOpen {
		return "open"
	}
	return "closed"
}

// Motion positions and fades a dialog or its backdrop.
type Motion struct {
	X          string     `json:"x,omitempty"`
	Y          string     `json:"y,omitempty"`
	Scale      float64    `json:"scale,omitempty"`
	Opacity    float64    `json:"opacity"`
	Transition Transition `json:"transition"`
}

var dialogTransition = Transition{Duration: 300 * time.Millisecond, Ease: "cubic-bezier(0.4, 0, 0.2, 1)"}

var dialogVariants = map[DialogPhase]Motion{
	DialogClosed: {X: "-50%", Y: "-40%", Scale: 0.98, Opacity: 0, Transition: dialogTransition},
	DialogOpen:   {X: "-50%", Y: "-50%", Scale: 1, Opacity: 1, Transition: dialogTransition},
}

var backdropVariants = map[DialogPhase]Motion{
	DialogClosed: {Opacity: 0, Transition: dialogTransition},
	DialogOpen:   {Opacity: 1, Transition: dialogTransition},
}

func DialogVariant(p DialogPhase) Motion { return dialogVariants[p] }

func BackdropVariant(p DialogPhase) Motion { return backdropVariants[p] }

// PanelPhase covers the panel header's entry and hover states.
type PanelPhase int

const (
	PanelInitial PanelPhase = iota
	PanelAnimate
	PanelHover
)

func (p PanelPhase) String() string {
	switch p {
	case PanelAnimate:
		return "animate"
	case PanelHover:
		return "hover"
	default:
		return "initial"
	}
}

type PanelStyle struct {
	Opacity    float64    `json:"opacity"`
	Background string     `json:"background"`
	Transition Transition `json:"transition"`
}

var panelVariants = map[PanelPhase]PanelStyle{
	PanelInitial: {Opacity: 0.7, Background: "rgba(128, 0, 128, 0.1)"},
	PanelAnimate: {Opacity: 1, Background: "rgba(128, 0, 128, 0.2)", Transition: Transition{Duration: 300 * time.Millisecond}},
	PanelHover:   {Opacity: 1, Background: "rgba(128, 0, 128, 0.3)", Transition: Transition{Duration: 200 * time.Millisecond}},
}

func PanelVariant(p PanelPhase) PanelStyle { return panelVariants[p] }

// Motions is every dialog, backdrop and panel variant keyed by phase name.
type Motions struct {
	Dialog   map[string]Motion     `json:"dialog"`
	Backdrop map[string]Motion     `json:"backdrop"`
	Panel    map[string]PanelStyle `json:"panel"`
}

func MotionTable() Motions {
	m := Motions{
		Dialog:   make(map[string]Motion, len(dialogVariants)),
		Backdrop: make(map[string]Motion, len(backdropVariants)),
		Panel:    make(map[string]PanelStyle, len(panelVariants)),
	}
	for p := range dialogVariants {
		m.Dialog[p.String()] = DialogVariant(p)
		m.Backdrop[p.String()] = BackdropVariant(p)
	}
	for p := range panelVariants {
		m.Panel[p.String()] = PanelVariant(p)
	}
	return m
}

// DialogPhaseFor maps a dialog's open flag onto its phase.
func DialogPhaseFor(open bool) DialogPhase {
	if open {
		return DialogOpen
	}
	return DialogClosed
}
