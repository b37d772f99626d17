package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

type Conf struct {
	Log      Log      `yaml:"log"`
	Listen   Listen   `yaml:"listen"`
	Tunnel   Tunnel   `yaml:"tunnel"`
	Outbound Outbound `yaml:"outbound"`
	Limit    Limit    `yaml:"limit"`
}

func LoadFromFile(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func Load(data []byte) (*Conf, error) {
	var conf Conf

	if err := yaml.Unmarshal(data, &conf); err != nil {
		return &conf, err
	}

	conf.setDefaults()
	if err := conf.validate(); err != nil {
		return &conf, err
	}

	return &conf, nil
}

// Default returns a configuration with every default applied.
func Default() *Conf {
	var c Conf
	c.setDefaults()
	return &c
}

func (c *Conf) setDefaults() {
	c.Log.setDefaults()
	c.Listen.setDefaults()
	c.Tunnel.setDefaults()
	c.Outbound.setDefaults()
	c.Limit.setDefaults()
}

func (c *Conf) validate() error {
	var allErrors []error

	allErrors = append(allErrors, c.Log.validate()...)
	allErrors = append(allErrors, c.Listen.validate()...)
	allErrors = append(allErrors, c.Tunnel.validate()...)
	allErrors = append(allErrors, c.Outbound.validate()...)
	allErrors = append(allErrors, c.Limit.validate()...)

	return writeErr(allErrors)
}

func writeErr(allErrors []error) error {
	if len(allErrors) > 0 {
		var messages []string
		for _, err := range allErrors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}
