package cmd

import (
	"flag"
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"euphoria.io/fiber/stack"
)

var Version = "dev"

var configPath = flag.String("config", "", "path to local yaml config")

// Config carries the demo knobs. Defaults match the reference
// configuration: four-page stacks, round-robin forever.
type Config struct {
	HTTP struct {
		Listen string `yaml:"listen,omitempty"`
	} `yaml:"http,omitempty"`

	Fiber struct {
		StackSize int `yaml:"stack-size"`
		Rounds    int `yaml:"rounds,omitempty"`
	} `yaml:"fiber"`
}

func (cfg *Config) LoadFromFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}
	return nil
}

func getConfig() (*Config, error) {
	cfg := &Config{}
	cfg.Fiber.StackSize = stack.DefaultSize
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
