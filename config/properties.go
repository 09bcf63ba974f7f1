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

// Package config is the Config Layer of spec.md §2.1: a destructive
// property-bag parser (spec.md §9 design note) that turns a flat
// map<string,string> into ConnectionProperties, StatementProperties, and
// rpc.ChannelProperties. Each parser removes the keys it recognizes;
// whatever remains after all parsers run is a typo or an unsupported
// property, and parsing fails with CONFIG_REJECTED naming the offenders.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/rpc"
)

// Properties is the mutable bag parsers consume from. Parse* functions
// delete recognized keys so Residual() reflects what is left unclaimed.
type Properties map[string]string

// Residual returns the sorted list of keys nobody claimed.
func (p Properties) Residual() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Properties) take(key string) (string, bool) {
	v, ok := p[key]
	if ok {
		delete(p, key)
	}
	return v, ok
}

// StatementProperties is spec.md §3's StatementProperties entity: mutable
// via setters before execute.
type StatementProperties struct {
	QueryTimeout                  time.Duration
	LocalEnforcementGrace         time.Duration
	QuerySettings                 map[string]string
	TargetMaxRows                 uint64
	TargetMaxBytes                uint64
}

// DefaultStatementProperties matches spec.md §3/§6 defaults.
func DefaultStatementProperties() StatementProperties {
	return StatementProperties{
		QueryTimeout:          0,
		LocalEnforcementGrace: 5 * time.Second,
		QuerySettings:         map[string]string{},
		TargetMaxRows:         0,
		TargetMaxBytes:        rpc.MaxBytes,
	}
}

// EffectiveQueryTimeout is the duration the client enforces locally:
// query_timeout + local_enforcement_grace (spec.md §5 timeout composition
// rule 2). A zero QueryTimeout means infinite and is returned as 0.
func (s StatementProperties) EffectiveQueryTimeout() time.Duration {
	if s.QueryTimeout <= 0 {
		return 0
	}
	return s.QueryTimeout + s.LocalEnforcementGrace
}

// ConnectionProperties is spec.md §3's ConnectionProperties entity:
// immutable after connect.
type ConnectionProperties struct {
	Workload             string
	ExternalClientContext string
	Dataspace            string
	AdditionalHeaders    map[string]string
	NetworkTimeout       time.Duration
	Statement            StatementProperties
}

// DefaultConnectionProperties matches spec.md §6's documented defaults.
func DefaultConnectionProperties() ConnectionProperties {
	return ConnectionProperties{
		Workload:          "jdbcv3",
		AdditionalHeaders: map[string]string{},
		NetworkTimeout:    0,
		Statement:         DefaultStatementProperties(),
	}
}

// querySettingPrefix/headerPrefix are the dotted-key namespaces of
// spec.md §6.
const (
	querySettingPrefix = "querySetting."
	headerPrefix       = "headers."
	reservedQuerySetting = querySettingPrefix + "query_timeout"
)

// ParseConnectionProperties parses workload/externalClientContext/
// dataspace/headers.*/queryTimeout/queryTimeoutLocalEnforcementDelay/
// querySetting.* out of p, destructively. Reserved key
// querySetting.query_timeout is rejected (spec.md §5, §6, §8 scenario 6).
func ParseConnectionProperties(p Properties) (ConnectionProperties, error) {
	out := DefaultConnectionProperties()

	if v, ok := p.take("workload"); ok && v != "" {
		out.Workload = v
	}
	if v, ok := p.take("externalClientContext"); ok {
		out.ExternalClientContext = v
	}
	if v, ok := p.take("dataspace"); ok {
		out.Dataspace = v
	}
	if v, ok := p.take("networkTimeout"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc,
				"networkTimeout: %v", err)
		}
		out.NetworkTimeout = d
	}

	for key := range p {
		if strings.HasPrefix(key, headerPrefix) {
			name := strings.TrimPrefix(key, headerPrefix)
			v, _ := p.take(key)
			out.AdditionalHeaders[name] = v
		}
	}

	stmt, err := parseStatementProperties(p)
	if err != nil {
		return out, err
	}
	out.Statement = stmt

	return out, nil
}

func parseStatementProperties(p Properties) (StatementProperties, error) {
	out := DefaultStatementProperties()

	if _, rejected := p[reservedQuerySetting]; rejected {
		return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc,
			"property %q is reserved; use queryTimeout instead", reservedQuerySetting)
	}

	if v, ok := p.take("queryTimeout"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "queryTimeout: %v", err)
		}
		out.QueryTimeout = d
	}
	if v, ok := p.take("queryTimeoutLocalEnforcementDelay"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc,
				"queryTimeoutLocalEnforcementDelay: %v", err)
		}
		out.LocalEnforcementGrace = d
	}
	if v, ok := p.take("maxRows"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "maxRows: %v", err)
		}
		out.TargetMaxRows = n
	}
	if v, ok := p.take("maxBytes"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "maxBytes: %v", err)
		}
		if n < rpc.MinBytes || n > rpc.MaxBytes {
			return out, hypererr.Newf(hypererr.KindInvalidConfig, hypererr.SQLStateMisc,
				"maxBytes %d out of range [%d, %d]", n, rpc.MinBytes, rpc.MaxBytes)
		}
		out.TargetMaxBytes = n
	}

	for key := range p {
		if strings.HasPrefix(key, querySettingPrefix) {
			name := strings.TrimPrefix(key, querySettingPrefix)
			v, _ := p.take(key)
			out.QuerySettings[name] = v
		}
	}

	return out, nil
}

// ParseChannelProperties parses grpc.* keys into rpc.ChannelProperties,
// destructively, per spec.md §6's Channel property group.
func ParseChannelProperties(p Properties) (rpc.ChannelProperties, error) {
	out := rpc.DefaultChannelProperties()

	if v, ok := p.take("grpc.keepAlive"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.keepAlive: %v", err)
		}
		out.KeepAliveEnabled = b
	}
	if v, ok := p.take("grpc.keepAlive.time"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.keepAlive.time: %v", err)
		}
		out.KeepAliveTime = d
	}
	if v, ok := p.take("grpc.keepAlive.timeout"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.keepAlive.timeout: %v", err)
		}
		out.KeepAliveTimeout = d
	}
	if v, ok := p.take("grpc.keepAlive.withoutCalls"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.keepAlive.withoutCalls: %v", err)
		}
		out.KeepAliveWithoutCalls = b
	}
	if v, ok := p.take("grpc.idleTimeoutSeconds"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.idleTimeoutSeconds: %v", err)
		}
		out.IdleTimeout = d
	}

	if v, ok := p.take("grpc.enableRetries"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.enableRetries: %v", err)
		}
		out.RetriesEnabled = b
	}
	if v, ok := p.take("grpc.retryPolicy.maxAttempts"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.retryPolicy.maxAttempts: %v", err)
		}
		out.RetryMaxAttempts = n
	}
	if v, ok := p.take("grpc.retryPolicy.initialBackoff"); ok {
		d, err := parseGrpcDuration(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.retryPolicy.initialBackoff: %v", err)
		}
		out.RetryInitialBackoff = d
	}
	if v, ok := p.take("grpc.retryPolicy.maxBackoff"); ok {
		d, err := parseGrpcDuration(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.retryPolicy.maxBackoff: %v", err)
		}
		out.RetryMaxBackoff = d
	}
	if v, ok := p.take("grpc.retryPolicy.backoffMultiplier"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.retryPolicy.backoffMultiplier: %v", err)
		}
		out.RetryBackoffMultiplier = f
	}
	if v, ok := p.take("grpc.retryPolicy.retryableStatusCodes"); ok {
		out.RetryableStatusCodes = splitCSV(v)
	}

	// grpc.poolSize is the supplemental PoolSize knob of SPEC_FULL.md §10,
	// not part of spec.md's original Channel group but parsed here since
	// it shares the grpc.* namespace.
	if v, ok := p.take("grpc.poolSize"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return out, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.poolSize: %v", err)
		}
		_ = n // consumed by the caller via PoolSize(p) below; left in residual purge here.
	}

	return out, nil
}

// PoolSize reads the supplemental grpc.poolSize knob without removing it
// twice; callers invoke this before ParseChannelProperties, or read it
// from a copy, since ParseChannelProperties already consumes the key.
func PoolSize(p Properties) (int, error) {
	v, ok := p["grpc.poolSize"]
	if !ok || v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, hypererr.Newf(hypererr.KindConfigRejected, hypererr.SQLStateMisc, "grpc.poolSize: invalid value %q", v)
	}
	return n, nil
}

// ParseAll runs every parser in turn and fails with CONFIG_REJECTED if any
// keys remain unclaimed, per spec.md §9's destructive-parsing design note.
func ParseAll(raw map[string]string) (ConnectionProperties, rpc.ChannelProperties, int, error) {
	p := make(Properties, len(raw))
	for k, v := range raw {
		p[k] = v
	}

	poolSize, err := PoolSize(p)
	if err != nil {
		return ConnectionProperties{}, rpc.ChannelProperties{}, 0, err
	}

	conn, err := ParseConnectionProperties(p)
	if err != nil {
		return ConnectionProperties{}, rpc.ChannelProperties{}, 0, err
	}
	channel, err := ParseChannelProperties(p)
	if err != nil {
		return ConnectionProperties{}, rpc.ChannelProperties{}, 0, err
	}

	if residual := p.Residual(); len(residual) > 0 {
		return ConnectionProperties{}, rpc.ChannelProperties{}, 0, hypererr.Newf(
			hypererr.KindConfigRejected, hypererr.SQLStateMisc,
			"unrecognized properties: %s", strings.Join(residual, ", "))
	}

	return conn, channel, poolSize, nil
}

// ToProperties is the symmetric encode half of the round-trip testable
// property of spec.md §8 ("headers round-trip"), mirroring the teacher's
// encode-go_1_8.go pattern of paired encode/decode helpers.
func (c ConnectionProperties) ToProperties() map[string]string {
	out := map[string]string{
		"workload": c.Workload,
	}
	if c.ExternalClientContext != "" {
		out["externalClientContext"] = c.ExternalClientContext
	}
	if c.Dataspace != "" {
		out["dataspace"] = c.Dataspace
	}
	if c.NetworkTimeout > 0 {
		out["networkTimeout"] = strconv.FormatFloat(c.NetworkTimeout.Seconds(), 'g', -1, 64)
	}
	for k, v := range c.AdditionalHeaders {
		out[headerPrefix+k] = v
	}
	if c.Statement.QueryTimeout > 0 {
		out["queryTimeout"] = strconv.FormatFloat(c.Statement.QueryTimeout.Seconds(), 'g', -1, 64)
	}
	out["queryTimeoutLocalEnforcementDelay"] = strconv.FormatFloat(c.Statement.LocalEnforcementGrace.Seconds(), 'g', -1, 64)
	for k, v := range c.Statement.QuerySettings {
		out[querySettingPrefix+k] = v
	}
	return out
}

func parseSeconds(v string) (time.Duration, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// parseGrpcDuration accepts both a bare "0.5s" grpc-style suffix string
// and a plain numeric seconds value.
func parseGrpcDuration(v string) (time.Duration, error) {
	if strings.HasSuffix(v, "s") {
		return parseSeconds(strings.TrimSuffix(v, "s"))
	}
	return parseSeconds(v)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
