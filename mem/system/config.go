package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/mesil1/mem/coherence"
)

// EnvPrefix starts every environment key the configuration reads.
const EnvPrefix = "MESIL1_"

// Exploration strategies.
const (
	StrategyDFS    = "dfs"
	StrategyRandom = "random"
)

// Config describes a system of L1 caches sharing one home node and the
// workload that runs on it.
type Config struct {
	NumCaches    int
	NumSets      int
	NumWays      int
	BlockSize    int
	MSHRCapacity int

	AccessLatency uint64
	TagLatency    uint64
	MSHRLatency   uint64
	HomeLatency   uint64
	BytesPerCycle int

	WritebackCleanBlocks bool
	SnoopL1Invalidations bool

	// NACKRate is the fraction of requests the home node rejects in timed
	// runs.
	NACKRate float64
	Seed     int64

	NumOps    int
	NumAddrs  int
	MaxCycles uint64

	Strategy string
	MaxPaths int
	MaxSteps int
}

// DefaultConfig returns a two-cache system running a short random workload.
func DefaultConfig() Config {
	return Config{
		NumCaches:     2,
		NumSets:       4,
		NumWays:       2,
		BlockSize:     64,
		MSHRCapacity:  4,
		AccessLatency: 2,
		TagLatency:    1,
		MSHRLatency:   1,
		HomeLatency:   10,
		Seed:          1,
		NumOps:        200,
		NumAddrs:      8,
		MaxCycles:     1_000_000,
		Strategy:      StrategyDFS,
		MaxPaths:      10000,
		MaxSteps:      200,
	}
}

// LoadConfig starts from DefaultConfig, applies the MESIL1_* keys found in
// the given .env files and then the ones in the process environment. Missing
// files are skipped.
func LoadConfig(files ...string) (Config, error) {
	env := make(map[string]string)

	for _, f := range files {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}

		for k, v := range values {
			env[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	cfg := DefaultConfig()
	if err := cfg.apply(env); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

type setter func(value string) error

func intSetter(field *int) setter {
	return func(value string) error {
		v, err := strconv.Atoi(value)
		*field = v

		return err
	}
}

func int64Setter(field *int64) setter {
	return func(value string) error {
		v, err := strconv.ParseInt(value, 10, 64)
		*field = v

		return err
	}
}

func uint64Setter(field *uint64) setter {
	return func(value string) error {
		v, err := strconv.ParseUint(value, 10, 64)
		*field = v

		return err
	}
}

func floatSetter(field *float64) setter {
	return func(value string) error {
		v, err := strconv.ParseFloat(value, 64)
		*field = v

		return err
	}
}

func boolSetter(field *bool) setter {
	return func(value string) error {
		v, err := strconv.ParseBool(value)
		*field = v

		return err
	}
}

func (c *Config) setters() map[string]setter {
	return map[string]setter{
		"NUM_CACHES":             intSetter(&c.NumCaches),
		"NUM_SETS":               intSetter(&c.NumSets),
		"NUM_WAYS":               intSetter(&c.NumWays),
		"BLOCK_SIZE":             intSetter(&c.BlockSize),
		"MSHR_CAPACITY":          intSetter(&c.MSHRCapacity),
		"ACCESS_LATENCY":         uint64Setter(&c.AccessLatency),
		"TAG_LATENCY":            uint64Setter(&c.TagLatency),
		"MSHR_LATENCY":           uint64Setter(&c.MSHRLatency),
		"HOME_LATENCY":           uint64Setter(&c.HomeLatency),
		"BYTES_PER_CYCLE":        intSetter(&c.BytesPerCycle),
		"WRITEBACK_CLEAN_BLOCKS": boolSetter(&c.WritebackCleanBlocks),
		"SNOOP_L1_INVALIDATIONS": boolSetter(&c.SnoopL1Invalidations),
		"NACK_RATE":              floatSetter(&c.NACKRate),
		"SEED":                   int64Setter(&c.Seed),
		"NUM_OPS":                intSetter(&c.NumOps),
		"NUM_ADDRS":              intSetter(&c.NumAddrs),
		"MAX_CYCLES":             uint64Setter(&c.MaxCycles),
		"STRATEGY": func(value string) error {
			c.Strategy = strings.ToLower(value)
			return nil
		},
		"MAX_PATHS": intSetter(&c.MaxPaths),
		"MAX_STEPS": intSetter(&c.MaxSteps),
	}
}

func (c *Config) apply(env map[string]string) error {
	setters := c.setters()

	for key, value := range env {
		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok {
			continue
		}

		set, ok := setters[name]
		if !ok {
			return fmt.Errorf("unknown configuration key %s", key)
		}

		if err := set(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
	}

	return nil
}

// Validate reports the first setting that cannot be simulated.
func (c Config) Validate() error {
	switch {
	case c.NumCaches < 1:
		return fmt.Errorf("need at least one cache, got %d", c.NumCaches)
	case c.NumSets < 1 || c.NumWays < 1:
		return fmt.Errorf("cache geometry %dx%d is empty", c.NumSets, c.NumWays)
	case c.BlockSize < 8 || c.BlockSize&(c.BlockSize-1) != 0:
		return fmt.Errorf("block size %d is not a power of two of at least 8",
			c.BlockSize)
	case c.MSHRCapacity < 1:
		return fmt.Errorf("MSHR capacity must be positive, got %d",
			c.MSHRCapacity)
	case c.AccessLatency == 0 || c.TagLatency == 0 ||
		c.MSHRLatency == 0 || c.HomeLatency == 0:
		return errors.New("latencies must be at least one cycle")
	case c.BytesPerCycle < 0:
		return fmt.Errorf("bandwidth %d is negative", c.BytesPerCycle)
	case c.NACKRate < 0 || c.NACKRate >= 1:
		return fmt.Errorf("NACK rate %f is not in [0, 1)", c.NACKRate)
	case c.NumOps < 0 || c.NumAddrs < 1:
		return fmt.Errorf("workload of %d ops on %d addresses is invalid",
			c.NumOps, c.NumAddrs)
	case c.Strategy != StrategyDFS && c.Strategy != StrategyRandom:
		return fmt.Errorf("unknown exploration strategy %q", c.Strategy)
	case c.MaxSteps < 1:
		return fmt.Errorf("step limit must be positive, got %d", c.MaxSteps)
	}

	return nil
}

// CoherenceBuilder returns the controller options the configuration
// implies. Clean evictions are never silent, since the home node tracks
// sharers exactly.
func (c Config) CoherenceBuilder() coherence.Builder {
	return coherence.MakeBuilder().
		WithAccessLatency(c.AccessLatency).
		WithTagLatency(c.TagLatency).
		WithMSHRLatency(c.MSHRLatency).
		WithWritebackCleanBlocks(c.WritebackCleanBlocks).
		WithSnoopL1Invalidations(c.SnoopL1Invalidations)
}
