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

package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// MinBytes/MaxBytes bound the optional per-call max_bytes of spec.md §4.1
// and §4.6/§4.7, exposed as part of the client's configuration surface.
const (
	MinBytes uint64 = 1024
	MaxBytes uint64 = 512 * 1024 * 1024
)

// Executor is the RPC Client Executor of spec.md §4.1: a thin layer over
// the stub offering exactly the four operations named by the spec, with
// request-shape validation and error translation. It never retries;
// retries are the transport's concern (see ChannelProperties).
type Executor struct {
	stubs StubProvider
}

// NewExecutor wraps a StubProvider.
func NewExecutor(stubs StubProvider) *Executor {
	return &Executor{stubs: stubs}
}

// ExecuteParams bundles the arguments of spec.md §4.1's execute operation.
type ExecuteParams struct {
	SQL          string
	Parameters   []hyperpb.TypedValue
	TransferMode hyperpb.TransferModeWire
	Settings     map[string]string
	MaxRows      uint64
	MaxBytes     uint64
}

// Execute submits a query. At-most-one call per query is the caller's
// contract to uphold (spec.md §8's "at-most-one concurrent execute");
// the executor itself is stateless across calls.
func (e *Executor) Execute(ctx context.Context, p ExecuteParams) (hyperpb.HyperService_ExecuteQueryClient, error) {
	if p.MaxRows > 0 {
		if p.MaxBytes < MinBytes || p.MaxBytes > MaxBytes {
			return nil, hypererr.Newf(hypererr.KindInvalidConfig, hypererr.SQLStateMisc,
				"max_bytes %d out of range [%d, %d] when max_rows > 0", p.MaxBytes, MinBytes, MaxBytes)
		}
	}
	paramStyle := hyperpb.ParamStyleNone
	for _, v := range p.Parameters {
		if v.Name != "" {
			paramStyle = hyperpb.ParamStyleNamed
		} else if paramStyle == hyperpb.ParamStyleNone {
			paramStyle = hyperpb.ParamStylePositional
		}
	}
	req := &hyperpb.QueryParam{
		SQL:          p.SQL,
		ParamStyle:   paramStyle,
		Parameters:   p.Parameters,
		TransferMode: p.TransferMode,
		OutputFormat: hyperpb.OutputFormatArrowIPC,
		Settings:     p.Settings,
		MaxRows:      p.MaxRows,
		MaxBytes:     p.MaxBytes,
	}
	stream, err := e.stubs.GetStub().ExecuteQuery(ctx, req)
	if err != nil {
		return nil, translate(err)
	}
	return stream, nil
}

// GetQueryInfo streams status updates for an already-executing query
// (spec.md §4.1). The server may terminate the stream at its own
// discretion before a terminal status is reached; callers (the status
// waiter) re-invoke in that case.
func (e *Executor) GetQueryInfo(ctx context.Context, queryID string) (hyperpb.HyperService_GetQueryInfoClient, error) {
	stream, err := e.stubs.GetStub().GetQueryInfo(ctx, &hyperpb.QueryInfoParam{QueryID: queryID})
	if err != nil {
		return nil, translate(err)
	}
	return stream, nil
}

// GetQueryResultParams bundles the arguments of spec.md §4.1's
// get_query_result operation.
type GetQueryResultParams struct {
	QueryID    string
	ChunkID    uint64
	Limit      uint64
	OmitSchema bool
	MaxBytes   uint64
}

// GetQueryResult fetches a bounded range of chunks.
func (e *Executor) GetQueryResult(ctx context.Context, p GetQueryResultParams) (hyperpb.HyperService_GetQueryResultClient, error) {
	stream, err := e.stubs.GetStub().GetQueryResult(ctx, &hyperpb.QueryResultParam{
		QueryID:    p.QueryID,
		ChunkID:    p.ChunkID,
		Limit:      p.Limit,
		OmitSchema: p.OmitSchema,
		MaxBytes:   p.MaxBytes,
	})
	if err != nil {
		return nil, translate(err)
	}
	return stream, nil
}

// Cancel is best-effort and idempotent: unknown or already-terminal
// query IDs return success (spec.md §4.1, §4.8).
func (e *Executor) Cancel(ctx context.Context, queryID string) error {
	_, err := e.stubs.GetStub().CancelQuery(ctx, &hyperpb.CancelParam{QueryID: queryID})
	if err != nil {
		st, ok := status.FromError(err)
		if ok && (st.Code() == codes.NotFound || st.Code() == codes.FailedPrecondition) {
			return nil
		}
		return translate(err)
	}
	return nil
}

// translate maps a transport-level error into the tagged taxonomy of
// package hypererr (spec.md §7). Server-side SQL diagnostics arrive via
// QueryStatus.Error, not via this path; translate only ever sees
// grpc/transport failures.
func translate(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return hypererr.Wrap(err, hypererr.KindTransportUnavailable, hypererr.SQLStateMisc, err.Error())
	}
	switch st.Code() {
	case codes.Canceled:
		return hypererr.Wrap(err, hypererr.KindCanceled, hypererr.SQLStateCanceled, st.Message())
	case codes.DeadlineExceeded:
		return hypererr.Wrap(err, hypererr.KindDeadlineExceeded, hypererr.SQLStateCanceled, st.Message())
	case codes.Unavailable:
		return hypererr.Wrap(err, hypererr.KindTransportUnavailable, hypererr.SQLStateMisc, st.Message())
	case codes.OutOfRange:
		return hypererr.Wrap(err, hypererr.KindOutOfRange, hypererr.SQLStateMisc, st.Message())
	case codes.InvalidArgument:
		return hypererr.Wrap(err, hypererr.KindConfigRejected, hypererr.SQLStateMisc, st.Message())
	default:
		return hypererr.Wrap(err, hypererr.KindProtocolError, hypererr.SQLStateMisc, st.Message())
	}
}
