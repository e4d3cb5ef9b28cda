package thing

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Params are the inputs to NewConfig.
type Params struct {
	Protocol    string
	Hostname    string // empty means DefaultHostname()
	Port        int
	Device      int
	Directories []string
	TTL         int // seconds
}

// Config is the immutable identity of the running service.
// Construct it with NewConfig; the zero value is not useful.
type Config struct {
	protocol    string
	name        string
	port        int
	device      int
	directories []string
	ttl         int
	base        string
	uuid        string
}

// NewConfig derives the base URL and UUID from p.
// Empty directory entries are dropped.
func NewConfig(p Params) Config {
	name := p.Hostname
	if name == "" {
		name = DefaultHostname()
	}

	dirs := make([]string, 0, len(p.Directories))
	for _, d := range p.Directories {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}

	base := p.Protocol + "://" + name + ":" + strconv.Itoa(p.Port) + "/api"

	return Config{
		protocol:    p.Protocol,
		name:        name,
		port:        p.Port,
		device:      p.Device,
		directories: dirs,
		ttl:         p.TTL,
		base:        base,
		uuid:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(base)).String(),
	}
}

// DefaultHostname returns "<os hostname>.local", or "localhost.local" if
// the host name cannot be determined.
func DefaultHostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return host + ".local"
}

func (c Config) Protocol() string { return c.protocol }
func (c Config) Name() string     { return c.name }
func (c Config) Port() int        { return c.port }
func (c Config) Device() int      { return c.device }
func (c Config) Base() string     { return c.base }
func (c Config) UUID() string     { return c.uuid }

// TTL is the lease requested from directories.
func (c Config) TTL() time.Duration {
	return time.Duration(c.ttl) * time.Second
}

// TTLSeconds is TTL as sent in the lt query parameter.
func (c Config) TTLSeconds() int { return c.ttl }

// Directories returns a copy of the directory URLs.
func (c Config) Directories() []string {
	return append([]string(nil), c.directories...)
}
