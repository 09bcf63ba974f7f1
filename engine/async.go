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

	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/rpc"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// AsyncHandle is the async query handle of spec.md §4.4: it submits a
// query in ASYNC transfer mode, captures query_id from the first
// QueryInfo that carries one, and leaves the remainder of that stream
// unread. No results are iterated through this handle; callers pair it
// with the status waiter (§4.5) and the row/chunk-range readers
// (§4.6/§4.7).
type AsyncHandle struct {
	queryID string
}

// ExecuteAsync issues executeQuery in ASYNC transfer mode and blocks only
// until a query_id is known, per spec.md §4.4. Matches agency/transaction.go's
// "submit, capture id, return" idiom generalized from a document
// transaction id to a query id.
func ExecuteAsync(ctx context.Context, executor *rpc.Executor, params ExecuteParams) (*AsyncHandle, error) {
	stream, err := executor.Execute(ctx, rpc.ExecuteParams{
		SQL:          params.SQL,
		Parameters:   params.Parameters,
		TransferMode: hyperpb.TransferModeAsync,
		Settings:     params.Settings,
		MaxRows:      params.MaxRows,
		MaxBytes:     params.MaxBytes,
	})
	if err != nil {
		return nil, err
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil, hypererr.New(hypererr.KindProtocolError, hypererr.SQLStateMisc,
				"ASYNC execute stream ended without a query_id")
		}
		if err != nil {
			return nil, hypererr.Wrap(err, hypererr.KindProtocolError, hypererr.SQLStateMisc,
				"ASYNC execute stream failed before a query_id")
		}
		id := extractQueryID(resp)
		if id != "" {
			return &AsyncHandle{queryID: id}, nil
		}
	}
}

func extractQueryID(resp *hyperpb.ExecuteQueryResponse) string {
	if resp.QueryInfo != nil && resp.QueryInfo.QueryStatus != nil && resp.QueryInfo.QueryStatus.QueryID != "" {
		return resp.QueryInfo.QueryStatus.QueryID
	}
	if resp.QueryResult != nil && resp.QueryResult.QueryInfo != nil && resp.QueryResult.QueryInfo.QueryStatus != nil {
		return resp.QueryResult.QueryInfo.QueryStatus.QueryID
	}
	return ""
}

// QueryID returns the resolved query id.
func (h *AsyncHandle) QueryID() string { return h.queryID }
