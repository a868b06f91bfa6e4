package params

import (
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

var Target = "local"
var Version = "1.0"

// Local params
var local = `
cpu:
  frequency_khz: 2500000
  raw_frequency_khz: 2500000
  threshold: 1ms
  precision: 200us

shim:
  spin_max: 8096
  send_explicit_block_message: true

stdio:
  file_mode: 0o644
`

// Params for hosts modeling slower remote machines
var remote = `
cpu:
  frequency_khz: 1000000
  raw_frequency_khz: 2500000
  threshold: 10ms
  precision: 1ms

shim:
  spin_max: -1
  send_explicit_block_message: true

stdio:
  file_mode: 0o644
`

type Config struct {
	CPU struct {
		// Modeled CPU frequency of a simulated host.
		FREQUENCY_KHZ uint64 `yaml:"frequency_khz"`
		// Raw frequency of the machine running the simulation.
		RAW_FREQUENCY_KHZ uint64 `yaml:"raw_frequency_khz"`
		// Accumulated delay above which a host CPU counts as blocked.
		THRESHOLD string `yaml:"threshold"`
		// Granularity at which CPU delay is charged to the clock.
		PRECISION string `yaml:"precision"`
	} `yaml:"cpu"`
	Shim struct {
		// Max iterations to busy-wait on the shim channel before
		// falling back to a futex sleep. -1 spins forever.
		SPIN_MAX int `yaml:"spin_max"`
		// Tell the preload shim to stop spinning when a syscall blocks.
		SEND_EXPLICIT_BLOCK_MESSAGE bool `yaml:"send_explicit_block_message"`
	} `yaml:"shim"`
	Stdio struct {
		// Mode bits for per-process stdout/stderr files.
		FILE_MODE uint32 `yaml:"file_mode"`
	} `yaml:"stdio"`
}

var Conf *Config

func init() {
	switch Target {
	case "remote":
		Conf = ReadConfig(remote)
	case "local":
		Conf = ReadConfig(local)
	default:
		log.Fatalf("Built for unknown target %s", Target)
	}
}

func ReadConfig(params string) *Config {
	config := &Config{}
	d := yaml.NewDecoder(strings.NewReader(params))
	if err := d.Decode(&config); err != nil {
		log.Fatalf("Yaml decode %v err %v\n", params, err)
	}

	return config
}
