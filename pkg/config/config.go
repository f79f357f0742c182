// Copyright 2023 ROBODRILL, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"go.uber.org/atomic"
)

// Log is the logging section of the configuration.
type Log struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `toml:"level" json:"level"`
	// Format is one of text, json.
	Format string `toml:"format" json:"format"`
	// File is the log output path. Empty logs to stderr.
	File string `toml:"file" json:"file"`
}

// Config is the process-wide planner configuration.
type Config struct {
	// DisableColocateJoin turns the colocate join alternative off cluster-wide,
	// regardless of session settings.
	DisableColocateJoin bool `toml:"disable-colocate-join" json:"disable-colocate-join"`
	Log                 Log  `toml:"log" json:"log"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		DisableColocateJoin: false,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML file on top of the defaults. Unknown keys are rejected so
// typos surface at startup instead of being silently ignored.
func Load(path string) (*Config, error) {
	conf := NewConfig()
	metadata, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, errors.Annotatef(err, "load config file %s", path)
	}
	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("config file %s contains unknown item %s", path, undecoded[0].String())
	}
	return conf, nil
}

var globalConf = atomic.NewPointer[Config](NewConfig())

// GetGlobalConfig returns the currently installed configuration. The engine
// never reads this itself; it is a convenience for process entry points.
func GetGlobalConfig() *Config {
	return globalConf.Load()
}

// StoreGlobalConfig installs a new configuration atomically.
func StoreGlobalConfig(conf *Config) {
	globalConf.Store(conf)
}
