package device

import "github.com/sarchlab/akita/v4/sim"

// deviceTicker adapts a Device to the event-driven engine's Ticker
// contract: one Tick is one clock, and returning false lets the
// component stop scheduling itself once the core drains.
type deviceTicker struct {
	dev *Device
}

func (t *deviceTicker) Tick() bool {
	t.dev.Tick()
	return t.dev.Active()
}

// Platform wraps a Device in a ticking component on an event-driven
// engine so the core can run alongside other simulated components.
type Platform struct {
	Engine sim.Engine
	Comp   *sim.TickingComponent
	Device *Device
}

// PlatformBuilder builds a Platform.
type PlatformBuilder struct {
	engine sim.Engine
	freq   sim.Freq
	cfg    *Config
}

// MakePlatformBuilder returns a builder with a 1 GHz clock and default
// device parameters.
func MakePlatformBuilder() PlatformBuilder {
	return PlatformBuilder{freq: 1 * sim.GHz}
}

// WithEngine sets the event engine. When unset, Build creates a serial
// engine.
func (b PlatformBuilder) WithEngine(engine sim.Engine) PlatformBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the core clock frequency.
func (b PlatformBuilder) WithFreq(freq sim.Freq) PlatformBuilder {
	b.freq = freq
	return b
}

// WithConfig sets the device parameters.
func (b PlatformBuilder) WithConfig(cfg *Config) PlatformBuilder {
	b.cfg = cfg
	return b
}

// Build creates the platform.
func (b PlatformBuilder) Build(name string) (*Platform, error) {
	dev, err := NewDevice(b.cfg)
	if err != nil {
		return nil, err
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	comp := sim.NewTickingComponent(name, engine, b.freq, &deviceTicker{dev})

	return &Platform{
		Engine: engine,
		Comp:   comp,
		Device: dev,
	}, nil
}

// Start schedules the first tick. Call it after programming the CSRs so
// the core has work when the engine runs.
func (p *Platform) Start() {
	p.Comp.TickLater()
}

// Run drives the event engine until no events remain.
func (p *Platform) Run() error {
	return p.Engine.Run()
}
