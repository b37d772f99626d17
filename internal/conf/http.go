package conf

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Listen configures the HTTP endpoint that hosts the tunnel.
type Listen struct {
	Addr_             string `yaml:"addr"`
	Path              string `yaml:"path"`
	H2C               bool   `yaml:"h2c"`
	ReadHeaderTimeout int    `yaml:"read_header_timeout"` // seconds
	IdleTimeout       int    `yaml:"idle_timeout"`        // seconds
	ShutdownTimeout   int    `yaml:"shutdown_timeout"`    // seconds
	MaxBodySize       int    `yaml:"max_body_size"`       // bytes

	Addr *net.TCPAddr `yaml:"-"`
}

func (c *Listen) setDefaults() {
	if c.Addr_ == "" {
		c.Addr_ = ":8080"
	}
	if c.Path == "" {
		c.Path = "/proxy_path"
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 30
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 8 << 20
	}
}

func (c *Listen) validate() []error {
	var errors []error

	addr, err := validateAddr(c.Addr_)
	if err != nil {
		errors = append(errors, err)
	}
	c.Addr = addr

	if !strings.HasPrefix(c.Path, "/") {
		errors = append(errors, fmt.Errorf("listen path must start with '/', got %q", c.Path))
	}
	if c.ReadHeaderTimeout < 1 || c.ReadHeaderTimeout > 600 {
		errors = append(errors, fmt.Errorf("listen read_header_timeout must be between 1-600 seconds"))
	}
	if c.IdleTimeout < 1 || c.IdleTimeout > 3600 {
		errors = append(errors, fmt.Errorf("listen idle_timeout must be between 1-3600 seconds"))
	}
	if c.ShutdownTimeout < 1 || c.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Errorf("listen shutdown_timeout must be between 1-300 seconds"))
	}
	if c.MaxBodySize < 1024 {
		errors = append(errors, fmt.Errorf("listen max_body_size must be at least 1024 bytes"))
	}
	return errors
}

func (c *Listen) ReadHeaderTimeoutD() time.Duration {
	return time.Duration(c.ReadHeaderTimeout) * time.Second
}

func (c *Listen) IdleTimeoutD() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

func (c *Listen) ShutdownTimeoutD() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

func validateAddr(s string) (*net.TCPAddr, error) {
	if s == "" {
		return nil, fmt.Errorf("address is required")
	}
	addr, err := net.ResolveTCPAddr("tcp", s)
	if err != nil {
		return nil, fmt.Errorf("invalid address '%s': %v", s, err)
	}
	return addr, nil
}
