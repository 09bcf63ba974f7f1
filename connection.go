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

// Package hyperdriver is the public entry point of the query-lifecycle
// core: it wires the Config Layer (package config), the Stub Provider and
// RPC Client Executor (package rpc), the credential seam (package
// credential), and the query iterators (package engine) into a single
// Connection/Statement API, the way the teacher wires pkg/connection,
// authentication, and the cursor/collection surface behind Client/Database.
package hyperdriver

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperdb/go-driver/config"
	"github.com/hyperdb/go-driver/credential"
	"github.com/hyperdb/go-driver/engine"
	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/log"
	"github.com/hyperdb/go-driver/rpc"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// DriverIdentifier is sent as the user-agent on every call (spec.md §6).
const DriverIdentifier = "hyperdb-go-driver/1.0"

// ConnectConfig is the caller-facing configuration surface: either Raw
// properties (parsed destructively per spec.md §9) or pre-built typed
// configs, plus the pieces the config layer cannot produce on its own
// (endpoints, TLS, credentials).
type ConnectConfig struct {
	Endpoints  []string
	Raw        map[string]string
	TLS        *tls.Config // nil means plaintext, per spec.md §6's ssl.disabled=true mode
	Credential credential.Interceptor
	Logger     log.Logger
}

// Connection owns a Stub Provider and RPC Client Executor, and is the
// factory for Statements. It mirrors the ownership rule of spec.md §3:
// the connection exclusively owns the stub provider it created.
type Connection struct {
	executor   *rpc.Executor
	stubs      rpc.StubProvider
	ownership  rpc.Ownership
	properties config.ConnectionProperties
	logger     log.Logger
}

// Connect parses cfg.Raw into typed properties, dials a pooled
// StubProvider it owns, and returns a ready Connection.
func Connect(ctx context.Context, cfg ConnectConfig) (*Connection, error) {
	connProps, channelProps, poolSize, err := config.ParseAll(cfg.Raw)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoop()
	}

	if connProps.ExternalClientContext == "" {
		connProps.ExternalClientContext = uuid.NewString()
	}

	rpcConfig := rpc.Config{
		Endpoints: cfg.Endpoints,
		PoolSize:  poolSize,
		DialOptions: channelProps.BuildDialOptions(),
	}
	if cfg.Credential != nil {
		rpcConfig.CredentialInterceptor = credential.UnaryClientInterceptor(cfg.Credential)
		rpcConfig.StreamCredential = credential.StreamClientInterceptor(cfg.Credential)
	}
	if cfg.TLS != nil {
		rpcConfig.TLSConfig = cfg.TLS
	}

	stubs, err := rpc.NewStubProvider(rpcConfig)
	if err != nil {
		return nil, err
	}

	return &Connection{
		executor:   rpc.NewExecutor(stubs),
		stubs:      stubs,
		ownership:  rpc.Owned,
		properties: connProps,
		logger:     logger,
	}, nil
}

// NewBorrowedConnection wraps an externally owned StubProvider; Close is
// then a no-op on the transport (spec.md §9's ownership enum, Borrowed
// variant).
func NewBorrowedConnection(stubs rpc.StubProvider, properties config.ConnectionProperties, logger log.Logger) *Connection {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Connection{
		executor:   rpc.NewExecutor(stubs),
		stubs:      stubs,
		ownership:  rpc.Borrowed,
		properties: properties,
		logger:     logger,
	}
}

// Close releases the stub provider only if this Connection owns it.
func (c *Connection) Close() error {
	if c.ownership == rpc.Owned {
		return c.stubs.Close()
	}
	return nil
}

// NewStatement creates a Statement carrying a clone of the connection's
// default StatementProperties (spec.md §5: "the query-settings map is
// cloned per statement execution").
func (c *Connection) NewStatement() *Statement {
	return &Statement{
		conn:       c,
		properties: cloneStatementProperties(c.properties.Statement),
	}
}

// Statement is mutable (via setters) until Execute/ExecuteAsync is
// called, per spec.md §3's StatementProperties entity.
type Statement struct {
	conn       *Connection
	properties config.StatementProperties

	active         *engine.Adaptive
	asyncID        string
	deadlineCancel context.CancelFunc
}

// SetQueryTimeout overrides the statement's query timeout (0 = infinite).
func (s *Statement) SetQueryTimeout(d time.Duration) *Statement {
	s.properties.QueryTimeout = d
	return s
}

// SetQuerySetting adds a server-bound query setting; "query_timeout" is
// rejected at Execute time, matching the parse-time rejection of
// spec.md §6/§8 scenario 6.
func (s *Statement) SetQuerySetting(name, value string) *Statement {
	s.properties.QuerySettings[name] = value
	return s
}

func (s *Statement) buildSettings() (map[string]string, error) {
	if _, reserved := s.properties.QuerySettings["query_timeout"]; reserved {
		return nil, hypererr.New(hypererr.KindConfigRejected, hypererr.SQLStateMisc,
			`querySetting "query_timeout" is reserved; use queryTimeout instead`)
	}
	settings := make(map[string]string, len(s.properties.QuerySettings)+1)
	for k, v := range s.properties.QuerySettings {
		settings[k] = v
	}
	if s.properties.QueryTimeout > 0 {
		settings["query_timeout"] = fmt.Sprintf("%d", int64(s.properties.QueryTimeout.Seconds()))
	}
	return settings, nil
}

// effectiveDeadline implements spec.md §5's timeout composition:
// min(network_timeout, query_timeout+grace).
func (s *Statement) effectiveDeadline() (time.Time, bool) {
	now := time.Now()
	var candidates []time.Time

	if s.conn.properties.NetworkTimeout > 0 {
		candidates = append(candidates, now.Add(s.conn.properties.NetworkTimeout))
	}
	if eff := s.properties.EffectiveQueryTimeout(); eff > 0 {
		candidates = append(candidates, now.Add(eff))
	}
	if len(candidates) == 0 {
		return time.Time{}, false
	}
	min := candidates[0]
	for _, c := range candidates[1:] {
		if c.Before(min) {
			min = c
		}
	}
	return min, true
}

// metadataModifiers builds the per-call metadata of spec.md §4.1/§6.
func (s *Statement) metadataModifiers() []rpc.MetadataModifier {
	p := s.conn.properties
	mods := []rpc.MetadataModifier{
		rpc.WithHeader("user-agent", DriverIdentifier),
		rpc.WithHeader("x-hyperdb-workload", p.Workload),
		rpc.WithHeader("x-hyperdb-external-client-context", p.ExternalClientContext),
		rpc.WithHeader("dataspace", p.Dataspace),
	}
	for k, v := range p.AdditionalHeaders {
		mods = append(mods, rpc.WithHeader(k, v))
	}
	return mods
}

// Execute runs sql through the adaptive execution state machine
// (spec.md §4.3) and returns a ByteChannel ready for an external Arrow
// IPC decoder to consume. At most one Execute/ExecuteAsync call is
// permitted per Statement (spec.md §8's "at-most-one concurrent
// execute").
func (s *Statement) Execute(ctx context.Context, sql string, parameters []hyperpb.TypedValue) (*engine.ByteChannel, error) {
	if s.active != nil || s.asyncID != "" {
		return nil, hypererr.New(hypererr.KindProtocolError, hypererr.SQLStateMisc, "execute already issued for this statement")
	}
	settings, err := s.buildSettings()
	if err != nil {
		return nil, err
	}
	ctx = s.withDeadlineAndMetadata(ctx)

	m := engine.NewAdaptive(s.conn.executor, s.conn.logger, engine.ExecuteParams{
		SQL:        sql,
		Parameters: parameters,
		Settings:   settings,
		MaxRows:    s.properties.TargetMaxRows,
		MaxBytes:   s.properties.TargetMaxBytes,
	})
	s.active = m
	return engine.NewByteChannel(ctx, m), nil
}

// ExecuteAsync issues the query in ASYNC transfer mode (spec.md §4.4) and
// returns once a query_id is known.
func (s *Statement) ExecuteAsync(ctx context.Context, sql string, parameters []hyperpb.TypedValue) (*engine.AsyncHandle, error) {
	if s.asyncID != "" || s.active != nil {
		return nil, hypererr.New(hypererr.KindProtocolError, hypererr.SQLStateMisc, "execute already issued for this statement")
	}
	settings, err := s.buildSettings()
	if err != nil {
		return nil, err
	}
	ctx = s.withDeadlineAndMetadata(ctx)

	handle, err := engine.ExecuteAsync(ctx, s.conn.executor, engine.ExecuteParams{
		SQL:        sql,
		Parameters: parameters,
		Settings:   settings,
		MaxRows:    s.properties.TargetMaxRows,
		MaxBytes:   s.properties.TargetMaxBytes,
	})
	if err != nil {
		return nil, err
	}
	s.asyncID = handle.QueryID()
	return handle, nil
}

// WaitFor delegates to the status waiter (spec.md §4.5) bound to this
// statement's query id and effective deadline.
func (s *Statement) WaitFor(ctx context.Context, queryID string, predicate engine.Predicate) (engine.Status, error) {
	waiter := engine.NewStatusWaiter(s.conn.executor, s.conn.logger)
	deadline, ok := s.effectiveDeadline()
	return waiter.WaitFor(ctx, queryID, predicate, deadline, ok)
}

// RowRange opens a row-range reader (spec.md §4.6) against last, the most
// recently observed Status for queryID.
func (s *Statement) RowRange(last engine.Status, offset, limit uint64) (*engine.ByteChannel, error) {
	r, err := engine.NewRowRangeReader(s.conn.executor, last, offset, limit, s.properties.TargetMaxBytes)
	if err != nil {
		return nil, err
	}
	return engine.NewByteChannel(context.Background(), r), nil
}

// ChunkRange opens a chunk-range reader (spec.md §4.7).
func (s *Statement) ChunkRange(last engine.Status, chunkID, limit uint64) (*engine.ByteChannel, error) {
	r, err := engine.NewChunkRangeReader(s.conn.executor, last, chunkID, limit, s.properties.TargetMaxBytes)
	if err != nil {
		return nil, err
	}
	return engine.NewByteChannel(context.Background(), r), nil
}

// Cancel is the uniform, idempotent cancel of spec.md §4.8.
func (s *Statement) Cancel(ctx context.Context) error {
	id := s.asyncID
	if s.active != nil {
		id = s.active.QueryID()
	}
	return engine.Cancel(ctx, s.conn.executor, id)
}

// Close cancels the statement's query if still running (spec.md §4.8:
// "closing an iterator invokes cancel implicitly if the underlying query
// is still running").
func (s *Statement) Close() error {
	defer func() {
		if s.deadlineCancel != nil {
			s.deadlineCancel()
		}
	}()
	if s.active != nil {
		return s.active.Close()
	}
	return s.Cancel(context.Background())
}

// withDeadlineAndMetadata attaches outbound metadata and the statement's
// effective deadline (spec.md §5) directly to ctx; grpc honors a context
// deadline on every call derived from it without needing a separate
// interceptor for this per-statement value.
func (s *Statement) withDeadlineAndMetadata(ctx context.Context) context.Context {
	ctx = rpc.ComposeMetadata(ctx, s.metadataModifiers()...)
	if deadline, ok := s.effectiveDeadline(); ok {
		ctx, s.deadlineCancel = context.WithDeadline(ctx, deadline)
	}
	return ctx
}

func cloneStatementProperties(p config.StatementProperties) config.StatementProperties {
	settings := make(map[string]string, len(p.QuerySettings))
	for k, v := range p.QuerySettings {
		settings[k] = v
	}
	p.QuerySettings = settings
	return p
}
