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

package logutil

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// InitLogger sets up the global zap logger from the given settings. level is
// one of debug, info, warn, error, fatal; format is text or json; file is the
// output path, empty meaning stderr.
func InitLogger(level, format, file string) error {
	conf := &log.Config{
		Level:  level,
		Format: format,
		File:   log.FileLogConfig{Filename: file},
	}
	logger, props, err := log.InitLogger(conf)
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

// BgLogger returns the global background logger.
func BgLogger() *zap.Logger {
	return log.L()
}
