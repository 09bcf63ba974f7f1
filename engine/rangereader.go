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

// pagedChunkReader is the shared paging engine behind both the row-range
// reader (spec.md §4.6) and the chunk-range reader (spec.md §4.7): both
// fetch a bounded chunk-id range via get_query_result and differ only in
// the unit their precondition is expressed in (rows vs. chunks) and the
// error Kind surfaced on an out-of-range request.
type pagedChunkReader struct {
	executor *rpc.Executor
	queryID  string

	nextChunk  uint64
	limit      uint64
	maxBytes   uint64
	schemaSent bool

	stream hyperpb.HyperService_GetQueryResultClient
	done   bool
}

func newPagedChunkReader(executor *rpc.Executor, queryID string, startChunk, chunkLimit, maxBytes uint64) *pagedChunkReader {
	return &pagedChunkReader{executor: executor, queryID: queryID, nextChunk: startChunk, limit: chunkLimit, maxBytes: maxBytes}
}

// next implements MessageSource, pulling at most one message per call
// from a single get_query_result stream that covers the whole requested
// chunk range, in chunk order (spec.md §5's ordering guarantee). The
// range is not split over several calls: when that one stream ends, the
// reader is exhausted.
func (r *pagedChunkReader) next(ctx context.Context) ([]byte, bool, error) {
	if r.done {
		return nil, false, nil
	}
	if r.stream == nil {
		if r.limit == 0 {
			r.done = true
			return nil, false, nil
		}
		stream, err := r.executor.GetQueryResult(ctx, rpc.GetQueryResultParams{
			QueryID:    r.queryID,
			ChunkID:    r.nextChunk,
			Limit:      r.limit,
			OmitSchema: r.schemaSent,
			MaxBytes:   r.maxBytes,
		})
		if err != nil {
			r.done = true
			return nil, false, err
		}
		r.stream = stream
	}

	resp, err := r.stream.Recv()
	if err == io.EOF {
		r.stream = nil
		r.done = true
		return nil, false, nil
	}
	if err != nil {
		r.done = true
		return nil, false, err
	}
	if resp.QueryInfo != nil {
		return nil, true, nil
	}
	if resp.BinaryPart != nil && len(resp.BinaryPart.Data) > 0 {
		r.schemaSent = true
		return resp.BinaryPart.Data, true, nil
	}
	return nil, true, nil
}

// RowRangeReader is the row-range reader of spec.md §4.6: random-access
// read of rows [offset, offset+limit) from a query whose results have
// already been produced.
type RowRangeReader struct {
	*pagedChunkReader
}

// NewRowRangeReader validates the precondition of spec.md §4.6 against
// the caller-supplied last-observed Status (obtained via the status
// waiter) before opening any stream: the caller must have waited for
// AllResultsProduced() or row_count >= offset+limit.
func NewRowRangeReader(executor *rpc.Executor, last Status, offset, limit, maxBytes uint64) (*RowRangeReader, error) {
	if !last.AllResultsProduced() && last.RowCount < offset+limit {
		return nil, hypererr.Newf(hypererr.KindRowRangeUnavailable, hypererr.SQLStateMisc,
			"row range [%d, %d) unavailable: only %d rows produced so far", offset, offset+limit, last.RowCount)
	}
	if limit > 0 {
		if maxBytes < rpc.MinBytes || maxBytes > rpc.MaxBytes {
			return nil, hypererr.Newf(hypererr.KindInvalidConfig, hypererr.SQLStateMisc,
				"max_bytes %d out of range [%d, %d]", maxBytes, rpc.MinBytes, rpc.MaxBytes)
		}
	}
	// The wire protocol addresses result pages by chunk id, not row id;
	// row-range reads still page chunk-by-chunk starting at chunk 0 and
	// rely on the decoded record batches to locate the requested rows
	// (row-to-chunk mapping is the record-batch decoder's concern, which
	// is out of scope per spec.md §1).
	return &RowRangeReader{pagedChunkReader: newPagedChunkReader(executor, last.QueryID, 0, last.ChunkCount, maxBytes)}, nil
}

// ChunkRangeReader is the chunk-range reader of spec.md §4.7:
// random-access read of chunks [chunk_id, chunk_id+limit).
type ChunkRangeReader struct {
	*pagedChunkReader
}

// NewChunkRangeReader validates the precondition of spec.md §4.7: default
// limit is 1 when unspecified (limit==0 here means "use default 1").
func NewChunkRangeReader(executor *rpc.Executor, last Status, chunkID, limit, maxBytes uint64) (*ChunkRangeReader, error) {
	if limit == 0 {
		limit = 1
	}
	if !last.AllResultsProduced() && last.ChunkCount < chunkID+limit {
		return nil, hypererr.Newf(hypererr.KindChunkRangeUnavailable, hypererr.SQLStateMisc,
			"chunk range [%d, %d) unavailable: only %d chunks advertised so far", chunkID, chunkID+limit, last.ChunkCount)
	}
	if maxBytes < rpc.MinBytes || maxBytes > rpc.MaxBytes {
		return nil, hypererr.Newf(hypererr.KindInvalidConfig, hypererr.SQLStateMisc,
			"max_bytes %d out of range [%d, %d]", maxBytes, rpc.MinBytes, rpc.MaxBytes)
	}
	return &ChunkRangeReader{pagedChunkReader: newPagedChunkReader(executor, last.QueryID, chunkID, limit, maxBytes)}, nil
}
