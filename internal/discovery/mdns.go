package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/nerrad567/solarpower/internal/infrastructure/config"
)

// Domain is the mDNS domain services are registered in.
const Domain = "local."

// DefaultService is used when discovery.mdns.service is empty.
const DefaultService = "_wot._tcp"

// Info describes what is advertised.
type Info struct {
	Instance string // human-readable instance name
	Port     int
	TDPath   string // path of the Thing Description, e.g. "/api"
	UUID     string // optional thing identifier
}

// Advertiser publishes one DNS-SD service.
type Advertiser struct {
	cfg config.MDNSConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser. Nothing is announced until Advertise.
func NewAdvertiser(cfg config.MDNSConfig) *Advertiser {
	return &Advertiser{cfg: cfg}
}

// interfaces returns the configured interface, or nil for all of them.
func (a *Advertiser) interfaces() ([]net.Interface, error) {
	if a.cfg.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(a.cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("mdns interface %q: %w", a.cfg.Interface, err)
	}
	return []net.Interface{*iface}, nil
}

func (a *Advertiser) service() string {
	if a.cfg.Service == "" {
		return DefaultService
	}
	return a.cfg.Service
}

// Advertise starts announcing info, replacing any earlier announcement.
func (a *Advertiser) Advertise(info Info) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	ifaces, err := a.interfaces()
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(
		info.Instance,
		a.service(),
		Domain,
		info.Port,
		TXTRecords(info),
		ifaces,
	)
	if err != nil {
		return fmt.Errorf("registering %s service: %w", a.service(), err)
	}

	a.server = server
	return nil
}

// Stop withdraws the announcement. It is safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// TXTRecords builds the key=value strings of the TXT record.
func TXTRecords(info Info) []string {
	path := info.TDPath
	if path == "" {
		path = "/api"
	}
	txt := []string{"td=" + path, "type=Thing"}
	if info.UUID != "" {
		txt = append(txt, "uuid="+info.UUID)
	}
	return txt
}
