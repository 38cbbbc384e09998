package connector

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/lnpush/agent/wallet"
)

// PluginConfigs gates which optional SDK plugins get started. A nil entry
// means the plugin is not requested, which is not an error.
type PluginConfigs struct {
	Nwc *wallet.NwcConfig
}

// Plugins lazily starts optional SDK sub-services, once per process
type Plugins struct {
	mu  sync.Mutex
	nwc wallet.NwcService
}

// NewPlugins constructs a new Plugins registry
func NewPlugins() *Plugins {
	return &Plugins{}
}

// Nwc returns the NWC plugin, starting it on first use. Returns nil without
// side effects when the configuration does not request it.
func (p *Plugins) Nwc(handle wallet.APICalls, configs PluginConfigs) (wallet.NwcService, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nwc != nil {
		glog.V(2).Info("NWC service already started")
		return p.nwc, nil
	}

	if configs.Nwc == nil {
		return nil, nil
	}

	glog.V(1).Info("Starting NWC service")
	nwc, err := handle.UseNwcPlugin(configs.Nwc)
	if err != nil {
		return nil, fmt.Errorf("could not start NWC service: %w", err)
	}
	p.nwc = nwc
	glog.V(1).Info("Started NWC service")

	return p.nwc, nil
}

// Shutdown stops all started plugins, safe to call when none ever started
func (p *Plugins) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nwc != nil {
		if err := p.nwc.Stop(); err != nil {
			glog.Warningf("NWC service stop failed: %v", err)
		}
		p.nwc = nil
	}
}
