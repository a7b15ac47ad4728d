// Package config loads and holds the compactor's process-wide configuration.
// Loading goes through viper (as in joshyorko-rcc and dbsmedya-goarchive);
// the loaded value is held behind an atomic pointer the way the teacher
// holds cmn.GCO, so hot paths read it without a lock.
/*
 * Copyright 2025 BergLoom
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

type (
	// Config is the full process configuration: compaction defaults, the
	// catalog driver and DSN, the server bind address, and the log level.
	// It carries no object-store credentials or endpoints.
	Config struct {
		Compaction CompactionDefaults `mapstructure:"compaction"`
		Catalog    CatalogConf        `mapstructure:"catalog"`
		Server     ServerConf         `mapstructure:"server"`
		Log        LogConf            `mapstructure:"log"`
	}
	CompactionDefaults struct {
		BatchParallelism    int    `mapstructure:"batch_parallelism"`
		ReadFileParallelism int    `mapstructure:"read_file_parallelism"`
		TargetPartitions    int    `mapstructure:"target_partitions"`
		DataFilePrefix      string `mapstructure:"data_file_prefix"`
	}
	CatalogConf struct {
		Driver string        `mapstructure:"driver"` // "sql" | "memory"
		DSN    string        `mapstructure:"dsn"`
		Dial   time.Duration `mapstructure:"dial_timeout"`
	}
	ServerConf struct {
		ListenAddr string `mapstructure:"listen_addr"`
	}
	LogConf struct {
		Level string `mapstructure:"level"`
	}
)

var cur atomic.Pointer[Config]

func init() {
	cur.Store(Default())
}

// Default returns hard-coded defaults, used when no config file/env is present.
func Default() *Config {
	return &Config{
		Compaction: CompactionDefaults{
			BatchParallelism:    0, // 0 => implementation-chosen (one per CPU), resolved in compact.Compaction
			ReadFileParallelism: 8,
			TargetPartitions:    0, // 0 => same as BatchParallelism
			DataFilePrefix:      "",
		},
		Catalog: CatalogConf{
			Driver: "memory",
			Dial:   10 * time.Second,
		},
		Server: ServerConf{
			ListenAddr: ":8085",
		},
		Log: LogConf{Level: "info"},
	}
}

// Load reads configuration from cfgFile (if non-empty), environment
// variables prefixed BERGLOOM_, and falls back to Default() for anything
// unset, mirroring the viper setup in rcc/goarchive's cobra root commands.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BERGLOOM")
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("compaction.read_file_parallelism", cfg.Compaction.ReadFileParallelism)
	v.SetDefault("catalog.driver", cfg.Catalog.Driver)
	v.SetDefault("catalog.dial_timeout", cfg.Catalog.Dial)
	v.SetDefault("server.listen_addr", cfg.Server.ListenAddr)
	v.SetDefault("log.level", cfg.Log.Level)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	out := &Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cur.Store(out)
	return out, nil
}

// Get returns the current process configuration (defaults until Load runs).
func Get() *Config { return cur.Load() }
