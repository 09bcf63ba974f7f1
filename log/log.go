//
// DISCLAIMER
//
// Copyright 2017 ArangoDB GmbH, Cologne, Germany
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

// Package log decouples the query-lifecycle engine from any concrete
// logging framework. Call sites only ever see Logger/Event; NewZeroLog
// provides a zerolog-backed implementation, and NewNoop is the default
// when no Logger is configured.
package log

import "time"

// Logger starts a structured log entry. Implementations must be safe for
// concurrent use, since multiple queries on the same connection may log
// independently.
type Logger interface {
	Trace() Event
	Debug() Event
	Info() Event
	Error(err error) Event
}

// Event accumulates structured fields before being emitted with Msgf.
type Event interface {
	Str(key, value string) Event
	Int(key string, value int) Event
	Int64(key string, value int64) Event
	Bool(key string, value bool) Event
	Duration(key string, value time.Duration) Event
	Msgf(format string, args ...interface{})
}

// noop is the default Logger used when none is configured.
type noop struct{}

func NewNoop() Logger { return noop{} }

func (noop) Trace() Event        { return noopEvent{} }
func (noop) Debug() Event        { return noopEvent{} }
func (noop) Info() Event         { return noopEvent{} }
func (noop) Error(error) Event   { return noopEvent{} }

type noopEvent struct{}

func (noopEvent) Str(string, string) Event                { return noopEvent{} }
func (noopEvent) Int(string, int) Event                   { return noopEvent{} }
func (noopEvent) Int64(string, int64) Event                { return noopEvent{} }
func (noopEvent) Bool(string, bool) Event                  { return noopEvent{} }
func (noopEvent) Duration(string, time.Duration) Event     { return noopEvent{} }
func (noopEvent) Msgf(string, ...interface{})              {}
