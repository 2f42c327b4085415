package config

import "time"

type Config struct {
	Input   Input    `yaml:"input"`
	Store   Store    `yaml:"store"`
	Metrics Metrics  `yaml:"metrics"`
	Engine  Engine   `yaml:"engine"`
	Outputs []Output `yaml:"outputs"`
}

type Input struct {
	IP         string `yaml:"ip"`
	ArtNetPort int    `yaml:"artnet_port"`
	AdminPort  int    `yaml:"admin_port"`
}

type Store struct {
	// Path of the settings database; empty keeps settings in memory only.
	Path string `yaml:"path"`
}

type Metrics struct {
	// Addr serves /metrics and /status; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

type Engine struct {
	ServiceInterval time.Duration `yaml:"service_interval"`
	StatsWindow     int           `yaml:"stats_window"`
	StatusInterval  time.Duration `yaml:"status_interval"`
}

// Output binds a physical port to a renderer driver.
type Output struct {
	Port   int              `yaml:"port"`
	Driver string           `yaml:"driver"`
	Lights map[string]Light `yaml:"lights"`
}

// Light is one BLE RGB light fed from three channels of a port's output buffer.
type Light struct {
	MACAddress string `yaml:"mac"`
	UUID       string `yaml:"uuid"`
	RedByte    int    `yaml:"red_byte"`
	GreenByte  int    `yaml:"green_byte"`
	BlueByte   int    `yaml:"blue_byte"`
}

// OutputFor returns the output configured for port index, or the default log driver.
func (c *Config) OutputFor(index int) Output {
	for _, o := range c.Outputs {
		if o.Port == index {
			return o
		}
	}
	return Output{Port: index, Driver: "log"}
}
