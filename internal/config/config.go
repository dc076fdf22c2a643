// Package config implements the slave process's configuration surface:
// numeric, string, list-of-strings and boolean values accepted from CLI
// flags, with CLI flags taking precedence over a config file. The config
// file (--config) supplies only hostname, group, user, matlab, the three
// allow-lists and memavail/cpuavail/timavail; timeout, verbose, number,
// the smart* switches, port, socket and announce-group are read from CLI
// flags (or their defaults) alone.
//
// It is built on gopkg.in/alecthomas/kingpin.v2 for flag parsing and
// github.com/alecthomas/units for human-readable memory/time quantities.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/units"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Config is the fully resolved configuration surface for one slave
// process.
type Config struct {
	MemAvail uint64
	CPUAvail uint64
	TimAvail uint64

	// EngineIdleTimeoutSeconds is how long the engine may sit idle
	// before being closed.
	EngineIdleTimeoutSeconds int64

	// Verbose is 0..7, 4 is the default.
	Verbose int

	// Number is the supervised child count.
	Number int

	Hostname string
	Group    string
	User     string

	// Matlab is the engine start command template.
	Matlab string

	AllowHost  []string
	AllowUser  []string
	AllowGroup []string

	SmartMem   bool
	SmartCPU   bool
	SmartShare bool

	Port          int
	SocketPath    string
	AnnounceGroup string
	ConfigFile    string
}

// Default returns the documented defaults: verbose=4, no allow-lists
// (allow all), policy switches off, one child.
func Default() *Config {
	return &Config{
		MemAvail:                 types.Unbounded,
		CPUAvail:                 types.Unbounded,
		TimAvail:                 types.Unbounded,
		EngineIdleTimeoutSeconds: 180,
		Verbose:                  4,
		Number:                   1,
		Port:                     0,
		SocketPath:               "/tmp/peerslave.sock",
		AnnounceGroup:            "239.0.0.1:9521",
	}
}

// Parse builds a Config from CLI args, applying any --config file first
// so CLI flags always override config-file keys (kingpin handles --help
// by exiting the process with status 0 itself).
func Parse(args []string) (*Config, error) {
	cfg := Default()

	app := kingpin.New("peerslaved", "LAN peer-to-peer distributed-computing slave")
	app.Version("peerslaved (core)").Author("jabolina")

	configFile := app.Flag("config", "path to a config file (key=value per line)").String()
	memAvail := app.Flag("memavail", "advertised available memory in bytes (supports unit suffixes, e.g. 4GiB)").String()
	cpuAvail := app.Flag("cpuavail", "advertised available cpu percentage").String()
	timAvail := app.Flag("timavail", "advertised available wall-clock time budget (bare integer, or inf)").String()
	timeout := app.Flag("timeout", "seconds the engine may sit idle before being closed").Default("180").Int64()
	verbose := app.Flag("verbose", "log verbosity 0 (all) .. 7 (fatal only)").Default("4").Int()
	number := app.Flag("number", "number of supervised child slaves").Default("1").Int()
	hostname := app.Flag("hostname", "this host's advertised name").String()
	group := app.Flag("group", "this host's advertised group").String()
	user := app.Flag("user", "this host's advertised user").String()
	matlab := app.Flag("matlab", "engine start command template").String()
	allowHost := app.Flag("allowhost", "comma-separated allow-list of submitter hostnames").String()
	allowUser := app.Flag("allowuser", "comma-separated allow-list of submitter users").String()
	allowGroup := app.Flag("allowgroup", "comma-separated allow-list of submitter groups").String()
	smartMem := app.Flag("smartmem", "enable adaptive memory accounting").Bool()
	smartCPU := app.Flag("smartcpu", "enable adaptive cpu accounting").Bool()
	smartShare := app.Flag("smartshare", "enable adaptive fair-share accounting").Bool()
	port := app.Flag("port", "TCP intake port (0 = auto-assign)").Default("0").Int()
	socketPath := app.Flag("socket", "Unix-domain intake socket path").Default("/tmp/peerslave.sock").String()
	announceGroup := app.Flag("announce-group", "multicast group address for announce/discover").Default("239.0.0.1:9521").String()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	if *configFile != "" {
		fileValues, err := parseConfigFile(*configFile)
		if err != nil {
			return nil, err
		}
		applyFileDefaults(cfg, fileValues)
	}

	if *memAvail != "" {
		v, err := parseQuantity(*memAvail)
		if err != nil {
			return nil, err
		}
		cfg.MemAvail = v
	}
	if *cpuAvail != "" {
		v, err := parseQuantity(*cpuAvail)
		if err != nil {
			return nil, err
		}
		cfg.CPUAvail = v
	}
	if *timAvail != "" {
		v, err := parseQuantity(*timAvail)
		if err != nil {
			return nil, err
		}
		cfg.TimAvail = v
	}
	cfg.EngineIdleTimeoutSeconds = *timeout
	cfg.Verbose = *verbose
	cfg.Number = *number
	if *hostname != "" {
		cfg.Hostname = *hostname
	}
	if *group != "" {
		cfg.Group = *group
	}
	if *user != "" {
		cfg.User = *user
	}
	if *matlab != "" {
		cfg.Matlab = *matlab
	}
	if *allowHost != "" {
		cfg.AllowHost = splitList(*allowHost)
	}
	if *allowUser != "" {
		cfg.AllowUser = splitList(*allowUser)
	}
	if *allowGroup != "" {
		cfg.AllowGroup = splitList(*allowGroup)
	}
	cfg.SmartMem = *smartMem
	cfg.SmartCPU = *smartCPU
	cfg.SmartShare = *smartShare
	cfg.Port = *port
	cfg.SocketPath = *socketPath
	cfg.AnnounceGroup = *announceGroup
	cfg.ConfigFile = *configFile

	return cfg, nil
}

// parseQuantity parses a resource value as a bare integer, falling back
// to a byte quantity with a unit suffix via github.com/alecthomas/units,
// and maps the literal "inf" onto types.Unbounded.
func parseQuantity(raw string) (uint64, error) {
	if strings.EqualFold(raw, "inf") {
		return types.Unbounded, nil
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n, nil
	}
	v, err := units.ParseBase2Bytes(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, nil
	}
	return uint64(v), nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseConfigFile reads simple "key = value" lines, one per line,
// ignoring blank lines and '#' comments.
func parseConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out, nil
}

// applyFileDefaults seeds cfg from a config file's keys before CLI flags
// are applied, so CLI flags always take precedence.
func applyFileDefaults(cfg *Config, values map[string]string) {
	if v, ok := values["hostname"]; ok {
		cfg.Hostname = v
	}
	if v, ok := values["group"]; ok {
		cfg.Group = v
	}
	if v, ok := values["user"]; ok {
		cfg.User = v
	}
	if v, ok := values["matlab"]; ok {
		cfg.Matlab = v
	}
	if v, ok := values["allowhost"]; ok {
		cfg.AllowHost = splitList(v)
	}
	if v, ok := values["allowuser"]; ok {
		cfg.AllowUser = splitList(v)
	}
	if v, ok := values["allowgroup"]; ok {
		cfg.AllowGroup = splitList(v)
	}
	if v, ok := values["memavail"]; ok {
		if q, err := parseQuantity(v); err == nil {
			cfg.MemAvail = q
		}
	}
	if v, ok := values["cpuavail"]; ok {
		if q, err := parseQuantity(v); err == nil {
			cfg.CPUAvail = q
		}
	}
	if v, ok := values["timavail"]; ok {
		if q, err := parseQuantity(v); err == nil {
			cfg.TimAvail = q
		}
	}
}
