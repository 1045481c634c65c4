package execution

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/logging"
	"github.com/go-sif/sifplan/operations"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// LogLevelEnv overrides Config.Log.Level when set
const LogLevelEnv = "SIFPLAN_LOG_LEVEL"

// Config configures a LocalExecutor
type Config struct {
	Parallelism        int            `yaml:"parallelism"`          // the number of concurrent producer tasks per shuffle. Defaults to the number of CPUs.
	PartitionSize      int            `yaml:"partition_size"`       // the maximum number of rows per scanned Partition. Defaults to 128.
	SortSampleSize     int            `yaml:"sort_sample_size"`     // the number of rows sampled to choose Sort boundaries. Defaults to 1024.
	InMemoryPartitions int            `yaml:"in_memory_partitions"` // the number of Partitions to retain in memory before spilling. Defaults to 64.
	TempDir            string         `yaml:"temp_dir"`             // location for spilled Partitions. Defaults to os.TempDir().
	Log                logging.Config `yaml:"log"`

	// RemoteExchanges addresses the gRPC Exchanges, served by ServeExchange, which feed
	// ReduceMerge nodes, keyed by node id. Other shuffles use an in-memory Exchange.
	RemoteExchanges map[int]string `yaml:"remote_exchanges"`
}

// DefaultConfig returns a Config holding every default value
func DefaultConfig() *Config {
	conf := &Config{}
	ensureDefaultConfigValues(conf)
	return conf
}

func ensureDefaultConfigValues(conf *Config) {
	if conf.Parallelism == 0 {
		conf.Parallelism = runtime.NumCPU()
	}
	if conf.PartitionSize == 0 {
		conf.PartitionSize = 128
	}
	if conf.SortSampleSize == 0 {
		conf.SortSampleSize = operations.DefaultSortSampleSize
	}
	if conf.InMemoryPartitions == 0 {
		conf.InMemoryPartitions = 64
	}
	if len(conf.TempDir) == 0 {
		conf.TempDir = os.TempDir()
	}
	if len(conf.Log.Level) == 0 {
		conf.Log.Level = "info"
	}
}

// Validate checks a Config for values which cannot be defaulted
func (conf *Config) Validate() error {
	if conf.Parallelism < 0 {
		return &errors.ConfigurationError{Op: "config", Reason: fmt.Sprintf("parallelism must not be negative, was %d", conf.Parallelism)}
	}
	if conf.PartitionSize < 0 {
		return &errors.ConfigurationError{Op: "config", Reason: fmt.Sprintf("partition_size must not be negative, was %d", conf.PartitionSize)}
	}
	if conf.SortSampleSize < 0 {
		return &errors.ConfigurationError{Op: "config", Reason: fmt.Sprintf("sort_sample_size must not be negative, was %d", conf.SortSampleSize)}
	}
	if conf.InMemoryPartitions < 0 {
		return &errors.ConfigurationError{Op: "config", Reason: fmt.Sprintf("in_memory_partitions must not be negative, was %d", conf.InMemoryPartitions)}
	}
	for node, addr := range conf.RemoteExchanges {
		if len(addr) == 0 {
			return &errors.ConfigurationError{Op: "config", Reason: fmt.Sprintf("remote exchange for node #%d has no address", node)}
		}
	}
	if _, err := logging.ParseLevel(conf.Log.Level); err != nil {
		return &errors.ConfigurationError{Op: "config", Reason: err.Error()}
	}
	return nil
}

// LoadConfig reads a YAML Config from path within fs, applies environment overrides
// and fills in defaults. An empty path produces the default Config.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	conf := &Config{}
	if len(path) > 0 {
		if fs == nil {
			fs = afero.NewOsFs()
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, err
		}
		if err := yaml.UnmarshalStrict(data, conf); err != nil {
			return nil, &errors.ConfigurationError{Op: "config", Reason: err.Error()}
		}
	}
	applyEnvironment(conf, os.LookupEnv)
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	ensureDefaultConfigValues(conf)
	return conf, nil
}

func applyEnvironment(conf *Config, lookup func(string) (string, bool)) {
	if lvl, ok := lookup(LogLevelEnv); ok && len(lvl) > 0 {
		conf.Log.Level = lvl
	}
}
