package sim

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/switchyard/ipc"
	"pkt.systems/switchyard/schema"
)

// Provider creates paint actors backed by goroutines that consume drawing
// commands. WebGL creation honors the configured GPU availability, which
// is how a sim run exercises the failure surface without real hardware.
type Provider struct {
	log    pslog.Logger
	gpu    bool
	limits schema.GLLimits

	mu   sync.Mutex
	live int
}

// NewProvider builds a Provider from the engine's GPU settings.
func NewProvider(cfg schema.EngineConfig, log pslog.Logger) *Provider {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Provider{log: log, gpu: cfg.GPUEnabled, limits: cfg.GPULimits}
}

// CreateCanvas starts a 2D paint actor and hands back its command sender.
func (p *Provider) CreateCanvas(size schema.CanvasSize) (ipc.Sender[schema.CanvasCommand], error) {
	tx, rx := ipc.New[schema.CanvasCommand]()
	p.track(1)
	go p.runActor(rx, size, "canvas")
	p.log.Debug("sim paint actor created", "kind", "canvas", "width", size.Width, "height", size.Height)
	return tx, nil
}

// CreateWebGL starts a WebGL paint actor, or fails when the GPU is
// configured off.
func (p *Provider) CreateWebGL(size schema.CanvasSize, attrs schema.GLContextAttributes) (ipc.Sender[schema.CanvasCommand], schema.GLLimits, error) {
	if !p.gpu {
		return ipc.Sender[schema.CanvasCommand]{}, schema.GLLimits{}, schema.ErrGPUUnavailable
	}
	tx, rx := ipc.New[schema.CanvasCommand]()
	p.track(1)
	go p.runActor(rx, size, "webgl")
	p.log.Debug("sim paint actor created", "kind", "webgl", "width", size.Width, "height", size.Height,
		"antialias", attrs.Antialias)
	return tx, p.limits, nil
}

// Live reports how many paint actors are currently running.
func (p *Provider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *Provider) track(delta int) {
	p.mu.Lock()
	p.live += delta
	p.mu.Unlock()
}

func (p *Provider) runActor(rx ipc.Receiver[schema.CanvasCommand], size schema.CanvasSize, kind string) {
	defer func() {
		_ = rx.Close()
		p.track(-1)
	}()
	ops := 0
	for {
		cmd, err := rx.Receive()
		if err != nil {
			p.log.Debug("sim paint channel closed", "kind", kind, "ops", ops)
			return
		}
		switch m := cmd.(type) {
		case schema.FillRect, schema.ClearRect:
			ops++
		case schema.Recreate:
			size = m.Size
			p.log.Debug("sim paint surface recreated", "kind", kind, "width", size.Width, "height", size.Height)
		case schema.CloseCanvas:
			p.log.Debug("sim paint actor closed", "kind", kind, "ops", ops)
			return
		}
	}
}
