package conf

import (
	"fmt"
	"net"
	"strings"
	"time"
)

type Outbound struct {
	Type_       string   `yaml:"type"`
	Addr_       string   `yaml:"addr"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	DialTimeout int      `yaml:"dial_timeout"` // seconds
	Nameservers []string `yaml:"nameservers"`

	Type string `yaml:"-"`
	Addr string `yaml:"-"`
}

func (o *Outbound) setDefaults() {
	if o.Type_ == "" {
		o.Type = "direct"
	} else {
		o.Type = strings.ToLower(strings.TrimSpace(o.Type_))
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 10
	}
	for i, ns := range o.Nameservers {
		ns = strings.TrimSpace(ns)
		if _, _, err := net.SplitHostPort(ns); err != nil {
			ns = net.JoinHostPort(ns, "53")
		}
		o.Nameservers[i] = ns
	}
}

func (o *Outbound) validate() []error {
	var errors []error

	if o.Type == "" {
		o.Type = "direct"
	}
	if o.Type != "direct" && o.Type != "socks5" {
		errors = append(errors, fmt.Errorf("outbound type must be 'direct' or 'socks5', got %q", o.Type))
	}
	if o.Type == "socks5" {
		addr := strings.TrimSpace(o.Addr_)
		if addr == "" {
			errors = append(errors, fmt.Errorf("outbound addr is required when type is socks5"))
		} else {
			addr = strings.TrimPrefix(addr, "socks5://")
			_, err := net.ResolveTCPAddr("tcp", addr)
			if err != nil {
				errors = append(errors, fmt.Errorf("outbound addr invalid: %w", err))
			} else {
				o.Addr = addr
			}
		}
		if len(o.Nameservers) > 0 {
			errors = append(errors, fmt.Errorf("outbound nameservers are only used with type 'direct'"))
		}
	}
	if o.DialTimeout < 1 || o.DialTimeout > 300 {
		errors = append(errors, fmt.Errorf("outbound dial_timeout must be between 1-300 seconds"))
	}
	for _, ns := range o.Nameservers {
		host, _, err := net.SplitHostPort(ns)
		if err != nil || net.ParseIP(host) == nil {
			errors = append(errors, fmt.Errorf("outbound nameserver %q must be an IP address", ns))
		}
	}
	return errors
}

func (o *Outbound) DialTimeoutD() time.Duration {
	return time.Duration(o.DialTimeout) * time.Second
}
