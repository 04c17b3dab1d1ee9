// Copyright 2026 The nutsdb Author. All rights reserved.
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

package scanexec

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// fileConfig is the TOML layout accepted by LoadOptions:
//
//	node_num = 3
//	yield_iterations = 128
//	yield_period = "5ms"
type fileConfig struct {
	NodeNum         *int64  `toml:"node_num"`
	YieldIterations *int    `toml:"yield_iterations"`
	YieldPeriod     *string `toml:"yield_period"`
}

// LoadOptions reads a TOML file and applies it on top of DefaultOptions.
// Keys missing from the file keep their default.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions

	var cfg fileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return opts, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return opts, errors.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	if cfg.NodeNum != nil {
		opts.NodeNum = *cfg.NodeNum
	}
	if cfg.YieldIterations != nil {
		opts.YieldIterations = *cfg.YieldIterations
	}
	if cfg.YieldPeriod != nil {
		d, err := time.ParseDuration(*cfg.YieldPeriod)
		if err != nil {
			return opts, errors.Wrapf(err, "config %s: yield_period", path)
		}
		opts.YieldPeriod = d
	}
	return opts, nil
}
