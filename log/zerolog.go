//
// DISCLAIMER
//
// Copyright 2020 ArangoDB GmbH, Cologne, Germany
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Copyright holder is ArangoDB GmbH, Cologne, Germany
//

package log

import (
	"time"

	"github.com/rs/zerolog"
)

// NewZeroLog wraps a zerolog.Logger as a Logger.
func NewZeroLog(l zerolog.Logger) Logger {
	return zeroLogger{log: l}
}

type zeroLogger struct {
	log zerolog.Logger
}

func (z zeroLogger) Trace() Event { return zeroEvent{z.log.Trace()} }
func (z zeroLogger) Debug() Event { return zeroEvent{z.log.Debug()} }
func (z zeroLogger) Info() Event  { return zeroEvent{z.log.Info()} }
func (z zeroLogger) Error(err error) Event {
	return zeroEvent{z.log.Error().Err(err)}
}

type zeroEvent struct {
	e *zerolog.Event
}

func (z zeroEvent) Str(key, value string) Event {
	return zeroEvent{z.e.Str(key, value)}
}

func (z zeroEvent) Int(key string, value int) Event {
	return zeroEvent{z.e.Int(key, value)}
}

func (z zeroEvent) Int64(key string, value int64) Event {
	return zeroEvent{z.e.Int64(key, value)}
}

func (z zeroEvent) Bool(key string, value bool) Event {
	return zeroEvent{z.e.Bool(key, value)}
}

func (z zeroEvent) Duration(key string, value time.Duration) Event {
	return zeroEvent{z.e.Dur(key, value)}
}

func (z zeroEvent) Msgf(format string, args ...interface{}) {
	z.e.Msgf(format, args...)
}
