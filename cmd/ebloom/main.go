// Command ebloom is a thin operator CLI around pkg/ebloom: create or load a
// filter at a configured location, insert items, check membership, print
// stats, and force a rotation check. It exists for scripting and manual
// inspection; nothing in pkg/ebloom depends on it.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"github.com/calvinalkan/ebloom/pkg/ebloom"
)

// fileConfig is the on-disk CLI configuration shape, loaded as JSONC via
// hujson the same way the teacher CLI's own config.go standardizes .tk.json
// before unmarshaling.
type fileConfig struct {
	DBPath           string `json:"db_path"`
	RedisAddr        string `json:"redis_addr,omitempty"`
	Backend          string `json:"backend,omitempty"` // "sqlite" (default) or "redis"
	CapacityPerLevel uint64 `json:"capacity_per_level,omitempty"`
	TargetFPR        float64 `json:"target_fpr,omitempty"`
	NumLevels        int     `json:"num_levels,omitempty"`
	LevelDurationSec int64   `json:"level_duration_seconds,omitempty"`
}

const defaultConfigFile = ".ebloom.json"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "insert":
		return runInsert(rest)
	case "contains":
		return runContains(rest)
	case "stats":
		return runStats(rest)
	case "rotate":
		return runRotate(rest)
	case "-h", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "ebloom: unknown command %q\n", cmd)
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: ebloom <command> [flags]

Commands:
  insert <item>     insert an item into the filter
  contains <item>    report whether an item is (probably) present
  stats              print the filter's current stats as JSON
  rotate             run one expiration check, rotating if due

All commands accept --config to point at a JSONC config file (default: ./.ebloom.json).`)
}

func commonFlags(fs *flag.FlagSet) *string {
	return fs.String("config", defaultConfigFile, "path to a JSONC config file")
}

func openFilter(configPath string) (*ebloom.Filter, error) {
	cfg, err := loadFileConfig(configPath)
	if err != nil {
		return nil, err
	}

	filter, err := ebloom.CreateOrLoad(cfg.toEngineConfig())
	if err != nil {
		return nil, fmt.Errorf("open filter: %w", err)
	}

	logger, _ := zap.NewProduction()
	if logger != nil {
		filter.SetLogger(logger)
	}
	return filter, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return fileConfig{}, fmt.Errorf("no config file at %s (create one or pass --config)", path)
		}
		return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return fc, nil
}

func (fc fileConfig) toEngineConfig() ebloom.Config {
	cfg := ebloom.DefaultConfig()
	if fc.CapacityPerLevel > 0 {
		cfg.CapacityPerLevel = fc.CapacityPerLevel
	}
	if fc.TargetFPR > 0 {
		cfg.TargetFPR = fc.TargetFPR
	}
	if fc.NumLevels > 0 {
		cfg.NumLevels = fc.NumLevels
	}
	if fc.LevelDurationSec > 0 {
		cfg.LevelDuration = time.Duration(fc.LevelDurationSec) * time.Second
	}

	backend := ebloom.BackendSQLite
	if strings.EqualFold(fc.Backend, "redis") {
		backend = ebloom.BackendRedis
	}
	cfg.Persistence = &ebloom.PersistenceConfig{
		DBPath:       fc.DBPath,
		RedisAddr:    fc.RedisAddr,
		Backend:      backend,
		AutoSnapshot: true,
	}
	return cfg
}

func runInsert(args []string) int {
	fs := flag.NewFlagSet("insert", flag.ContinueOnError)
	configPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ebloom insert <item>")
		return 2
	}

	filter, err := openFilter(*configPath)
	if err != nil {
		return fail(err)
	}
	defer filter.Close()

	if err := filter.Insert([]byte(fs.Arg(0))); err != nil {
		return fail(fmt.Errorf("insert: %w", err))
	}
	return 0
}

func runContains(args []string) int {
	fs := flag.NewFlagSet("contains", flag.ContinueOnError)
	configPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ebloom contains <item>")
		return 2
	}

	filter, err := openFilter(*configPath)
	if err != nil {
		return fail(err)
	}
	defer filter.Close()

	ok, err := filter.Contains([]byte(fs.Arg(0)))
	if err != nil {
		return fail(fmt.Errorf("contains: %w", err))
	}
	if ok {
		fmt.Println("true")
		return 0
	}
	fmt.Println("false")
	return 1
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	configPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}

	filter, err := openFilter(*configPath)
	if err != nil {
		return fail(err)
	}
	defer filter.Close()

	data, err := json.MarshalIndent(filter.Stats(), "", "  ")
	if err != nil {
		return fail(fmt.Errorf("marshal stats: %w", err))
	}
	fmt.Println(string(data))
	return 0
}

func runRotate(args []string) int {
	fs := flag.NewFlagSet("rotate", flag.ContinueOnError)
	configPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}

	filter, err := openFilter(*configPath)
	if err != nil {
		return fail(err)
	}
	defer filter.Close()

	if err := filter.CleanupExpiredLevels(); err != nil {
		return fail(fmt.Errorf("rotate: %w", err))
	}
	return 0
}

func exitCodeFor(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintln(os.Stderr, "ebloom:", err)
	return 2
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, "ebloom:", err)
	return 1
}
