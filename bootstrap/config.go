package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultN is the matrix dimension of a run.
	DefaultN = 1000

	// DefaultMasterAddr names rank 0 when nothing else does.
	DefaultMasterAddr = "mpi-master"

	// DefaultMasterPort is the base port of the mesh.
	DefaultMasterPort = 29500

	// DefaultWorkerPattern names rank r > 0 in the generated host list.
	DefaultWorkerPattern = "mpi-worker-%d"

	// DefaultTimeout bounds mesh setup plus the run.
	DefaultTimeout = 10 * time.Minute
)

// Environment variables read by ApplyEnv.
const (
	EnvRank       = "MPI_RANK"
	EnvWorldSize  = "MPI_WORLD_SIZE"
	EnvMasterAddr = "MPI_MASTER_ADDR"
	EnvMasterPort = "MPI_MASTER_PORT"
	EnvPeers      = "MPI_PEERS"
	EnvHostfile   = "MPI_HOSTFILE"
)

// Config is the process configuration of one rank.
type Config struct {
	Rank       int      `toml:"rank"`
	WorldSize  int      `toml:"world_size"`
	MasterAddr string   `toml:"master_addr"`
	MasterPort int      `toml:"master_port"`
	Peers      []string `toml:"peers,omitempty"`
	Hostfile   string   `toml:"hostfile,omitempty"`

	N       int    `toml:"n"`
	Seed    uint64 `toml:"seed,omitempty"`
	Policy  string `toml:"policy,omitempty"`
	Workers int    `toml:"workers,omitempty"`
	Timeout string `toml:"timeout,omitempty"` // time.ParseDuration syntax

	Log LogConfig `toml:"log"`
}

// LogConfig selects the logger built by package logging.
type LogConfig struct {
	Level    string `toml:"level,omitempty"`
	Format   string `toml:"format,omitempty"`
	AllRanks bool   `toml:"all_ranks,omitempty"`
}

// Default returns a single-rank configuration.
func Default() Config {
	return Config{
		WorldSize:  1,
		MasterAddr: DefaultMasterAddr,
		MasterPort: DefaultMasterPort,
		N:          DefaultN,
	}
}

// LoadFile reads a TOML configuration on top of Default. Unknown keys are
// rejected.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("bootstrap: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Decode parses TOML from r on top of Default.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%s: %w", strict.String(), ErrBadConfig)
		}

		return Config{}, fmt.Errorf("%w: %w", ErrBadConfig, err)
	}

	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// FromEnv returns Default overlaid with the MPI_* variables.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overwrites the fields whose variable is set and non-empty.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if err := envInt(getenv, EnvRank, &cfg.Rank); err != nil {
		return err
	}
	if err := envInt(getenv, EnvWorldSize, &cfg.WorldSize); err != nil {
		return err
	}
	if err := envInt(getenv, EnvMasterPort, &cfg.MasterPort); err != nil {
		return err
	}
	if v := getenv(EnvMasterAddr); v != "" {
		cfg.MasterAddr = v
	}
	if v := getenv(EnvPeers); v != "" {
		cfg.Peers = splitList(v)
	}
	if v := getenv(EnvHostfile); v != "" {
		cfg.Hostfile = v
	}

	return nil
}

func envInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrBadEnv)
	}
	*dst = n

	return nil
}

// Validate checks the group shape. A peer list, when present, must name
// every rank.
func (c Config) Validate() error {
	if c.WorldSize < 1 {
		return fmt.Errorf("world size %d: %w", c.WorldSize, ErrBadWorldSize)
	}
	if c.Rank < 0 || c.Rank >= c.WorldSize {
		return fmt.Errorf("rank %d of %d: %w", c.Rank, c.WorldSize, ErrBadRank)
	}
	if len(c.Peers) > 0 && len(c.Peers) != c.WorldSize {
		return fmt.Errorf("%d peers for world size %d: %w", len(c.Peers), c.WorldSize, ErrPeerCount)
	}
	if c.MasterPort < 1 || c.MasterPort > 65535 {
		return fmt.Errorf("master port %d: %w", c.MasterPort, ErrBadConfig)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration parses Timeout, DefaultTimeout when empty.
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("timeout %q: %w", c.Timeout, ErrBadConfig)
	}

	return d, nil
}

// ResolvePeers returns the mesh address of every rank: the explicit peer
// list, else the hostfile expanded from MasterPort, else the generated
// master/worker names, all on MasterPort.
func (c Config) ResolvePeers() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c.Peers) > 0 {
		return c.Peers, nil
	}

	var hosts []Host
	if c.Hostfile != "" {
		f, err := os.Open(c.Hostfile)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		defer f.Close()
		if hosts, err = ParseHostfile(f); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Hostfile, err)
		}
	} else {
		hosts = GenerateHosts(c.MasterAddr, DefaultWorkerPattern, c.WorldSize)
	}

	peers := Peers(hosts, c.MasterPort)
	if len(peers) != c.WorldSize {
		return nil, fmt.Errorf("%d slots for world size %d: %w", len(peers), c.WorldSize, ErrPeerCount)
	}

	return peers, nil
}
