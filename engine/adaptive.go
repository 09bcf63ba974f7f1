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

package engine

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/log"
	"github.com/hyperdb/go-driver/rpc"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

type adaptiveState int

const (
	stateInitial adaptiveState = iota
	stateExecuting
	stateDrainInline
	stateDecide
	stateFetchKnown
	statePollStatus
	stateDone
	stateFailed
	stateCanceled
)

// ExecuteParams bundles the arguments a caller supplies to the adaptive
// execution state machine (spec.md §4.1's execute operation, bound to
// TransferMode=ADAPTIVE).
type ExecuteParams struct {
	SQL        string
	Parameters []hyperpb.TypedValue
	Settings   map[string]string
	MaxRows    uint64
	MaxBytes   uint64
}

// Adaptive is the adaptive execution state machine of spec.md §4.3: the
// hybrid first-call-plus-polling flow. It implements MessageSource so a
// ByteChannel can wrap it directly, and at-most-one Execute call is
// enforced by its own state (a second call to Execute while active is a
// caller error per spec.md §8).
type Adaptive struct {
	executor *rpc.Executor
	logger   log.Logger
	params   ExecuteParams

	state  adaptiveState
	status Status
	err    error

	emittedChunks    uint64
	schemaSent       bool
	pendingPayloads  [][]byte // awaiting query_id resolution, spec.md §4.3 tie-break

	inlineStream hyperpb.HyperService_ExecuteQueryClient
	resultStream hyperpb.HyperService_GetQueryResultClient
	infoStream   hyperpb.HyperService_GetQueryInfoClient

	closed    int32
	started   int32
}

// NewAdaptive constructs an idle adaptive state machine; Execute is not
// issued until the first call to Next.
func NewAdaptive(executor *rpc.Executor, logger log.Logger, params ExecuteParams) *Adaptive {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Adaptive{executor: executor, logger: logger, params: params}
}

// QueryID returns the query id once resolved from the server's first
// QueryInfo message; empty before that.
func (m *Adaptive) QueryID() string { return m.status.QueryID }

// Status returns the most recently observed status.
func (m *Adaptive) Status() Status { return m.status }

// Next pulls at most one message from whichever upstream is currently
// active and either returns a payload to emit, signals end-of-stream
// (ok=false, err=nil), or returns a terminal error (spec.md §4.3's
// DONE|FAILED|CANCELED).
func (m *Adaptive) Next(ctx context.Context) ([]byte, bool, error) {
	return m.next(ctx)
}

func (m *Adaptive) next(ctx context.Context) ([]byte, bool, error) {
	for {
		if atomic.LoadInt32(&m.closed) == 1 && m.state != stateCanceled {
			m.state = stateCanceled
			if m.err == nil {
				m.err = hypererr.New(hypererr.KindCanceled, hypererr.SQLStateCanceled, "canceled by user")
			}
		}

		switch m.state {
		case stateDone:
			return nil, false, nil
		case stateFailed, stateCanceled:
			return nil, false, m.err

		case stateInitial:
			if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
				return nil, false, hypererr.New(hypererr.KindProtocolError, hypererr.SQLStateMisc,
					"execute already issued for this query")
			}
			m.logger.Trace().Str("sql", m.params.SQL).Msgf("adaptive: issuing execute")
			m.state = stateExecuting

		case stateExecuting:
			stream, err := m.executor.Execute(ctx, rpc.ExecuteParams{
				SQL:          m.params.SQL,
				Parameters:   m.params.Parameters,
				TransferMode: hyperpb.TransferModeAdaptive,
				Settings:     m.params.Settings,
				MaxRows:      m.params.MaxRows,
				MaxBytes:     m.params.MaxBytes,
			})
			if err != nil {
				return m.fail(err)
			}
			m.inlineStream = stream
			m.state = stateDrainInline

		case stateDrainInline:
			resp, err := m.inlineStream.Recv()
			if err == io.EOF {
				m.inlineStream = nil
				m.state = stateDecide
				continue
			}
			if err != nil {
				if m.status.QueryID == "" {
					return m.fail(hypererr.Wrap(err, hypererr.KindProtocolError, hypererr.SQLStateMisc,
						"response stream failed before a query_id"))
				}
				return m.fail(err)
			}
			return m.observeExecuteResponse(resp)

		case stateDecide:
			if m.status.QueryID == "" {
				return m.fail(hypererr.New(hypererr.KindProtocolError, hypererr.SQLStateMisc,
					"response stream ended without a query_id"))
			}
			if len(m.pendingPayloads) > 0 {
				p := m.pendingPayloads[0]
				m.pendingPayloads = m.pendingPayloads[1:]
				m.emittedChunks++
				m.schemaSent = true
				return p, true, nil
			}
			if m.status.CompletionStatus == hyperpb.CompletionStatusFailed {
				return m.fail(terminalError(m.status))
			}
			if m.emittedChunks < m.status.ChunkCount {
				m.state = stateFetchKnown
				continue
			}
			if m.status.ExecutionFinished() && m.emittedChunks == m.status.ChunkCount {
				if m.status.CompletionStatus == hyperpb.CompletionStatusCanceled {
					return m.fail(terminalError(m.status))
				}
				m.logger.Debug().Str("query_id", m.status.QueryID).Int64("chunks", int64(m.emittedChunks)).Msgf("adaptive: execution finished")
				m.state = stateDone
				continue
			}
			m.state = statePollStatus

		case stateFetchKnown:
			if m.resultStream == nil {
				stream, err := m.executor.GetQueryResult(ctx, rpc.GetQueryResultParams{
					QueryID:    m.status.QueryID,
					ChunkID:    m.emittedChunks,
					Limit:      m.status.ChunkCount - m.emittedChunks,
					OmitSchema: m.schemaSent,
					MaxBytes:   m.params.MaxBytes,
				})
				if err != nil {
					return m.fail(err)
				}
				m.resultStream = stream
				continue
			}
			resp, err := m.resultStream.Recv()
			if err == io.EOF {
				m.resultStream = nil
				m.state = stateDecide
				continue
			}
			if err != nil {
				return m.fail(err)
			}
			if resp.QueryInfo != nil {
				applyQueryStatus(&m.status, resp.QueryInfo.QueryStatus)
				return nil, true, nil
			}
			if resp.BinaryPart != nil && len(resp.BinaryPart.Data) > 0 {
				m.emittedChunks++
				m.schemaSent = true
				return resp.BinaryPart.Data, true, nil
			}
			return nil, true, nil

		case statePollStatus:
			if m.infoStream == nil {
				stream, err := m.executor.GetQueryInfo(ctx, m.status.QueryID)
				if err != nil {
					return m.fail(err)
				}
				m.infoStream = stream
				continue
			}
			resp, err := m.infoStream.Recv()
			if err == io.EOF {
				m.infoStream = nil
				m.state = stateDecide
				continue
			}
			if err != nil {
				return m.fail(err)
			}
			applyQueryStatus(&m.status, resp.QueryStatus)
			return nil, true, nil
		}
	}
}

func (m *Adaptive) observeExecuteResponse(resp *hyperpb.ExecuteQueryResponse) ([]byte, bool, error) {
	if resp.QueryInfo != nil {
		applyQueryStatus(&m.status, resp.QueryInfo.QueryStatus)
	}
	if resp.QueryResult != nil && resp.QueryResult.QueryInfo != nil {
		applyQueryStatus(&m.status, resp.QueryResult.QueryInfo.QueryStatus)
	}
	payload, hasPayload := resp.Payload()
	if hasPayload && len(payload) > 0 {
		if m.status.QueryID == "" {
			m.pendingPayloads = append(m.pendingPayloads, payload)
			return nil, true, nil
		}
		m.emittedChunks++
		m.schemaSent = true
		return payload, true, nil
	}
	return nil, true, nil
}

func (m *Adaptive) fail(err error) ([]byte, bool, error) {
	m.err = err
	if hypererr.Is(err, hypererr.KindCanceled) {
		m.state = stateCanceled
	} else {
		m.state = stateFailed
	}
	m.logger.Debug().Str("query_id", m.status.QueryID).Msgf("adaptive: %v", err)
	return nil, false, m.err
}

// Close is idempotent; cancels the query server-side if still running and
// transitions to CANCELED (spec.md §4.3, §4.8).
func (m *Adaptive) Close() error {
	if !atomic.CompareAndSwapInt32(&m.closed, 0, 1) {
		return nil
	}
	if m.state != stateDone && m.state != stateFailed && m.state != stateCanceled && m.status.QueryID != "" {
		m.logger.Trace().Str("query_id", m.status.QueryID).Msgf("adaptive: canceling on close")
		_ = m.executor.Cancel(context.Background(), m.status.QueryID)
	}
	return nil
}
