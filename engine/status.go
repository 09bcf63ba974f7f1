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

// Package engine is the query-lifecycle engine of spec.md §1: the
// adaptive execution state machine, async query handle, row/chunk-range
// readers, status waiter, and streaming byte channel, all built on top of
// package rpc's Executor.
package engine

import (
	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// Status is the engine's copy of spec.md §3's QueryStatus entity, plus the
// two derived predicates the spec names explicitly.
type Status struct {
	QueryID          string
	CompletionStatus hyperpb.CompletionStatus
	ChunkCount       uint64
	RowCount         uint64
	Progress         float64
	Error            *hyperpb.ErrorInfo
}

// AllResultsProduced is spec.md §3's all_results_produced predicate.
func (s Status) AllResultsProduced() bool {
	return s.CompletionStatus == hyperpb.CompletionStatusResultsProduced || s.CompletionStatus == hyperpb.CompletionStatusFinished
}

// ExecutionFinished is spec.md §3's execution_finished predicate.
func (s Status) ExecutionFinished() bool {
	switch s.CompletionStatus {
	case hyperpb.CompletionStatusFinished, hyperpb.CompletionStatusCanceled, hyperpb.CompletionStatusFailed:
		return true
	default:
		return false
	}
}

// applyQueryStatus merges a freshly observed QueryStatus into dst,
// enforcing the monotone-status invariant of spec.md §3: chunk_count and
// row_count never regress, and once terminal the completion_status is not
// overwritten by a non-terminal late arrival.
func applyQueryStatus(dst *Status, qs *hyperpb.QueryStatus) {
	if qs == nil {
		return
	}
	if qs.QueryID != "" {
		dst.QueryID = qs.QueryID
	}
	if qs.ChunkCount > dst.ChunkCount {
		dst.ChunkCount = qs.ChunkCount
	}
	if qs.RowCount > dst.RowCount {
		dst.RowCount = qs.RowCount
	}
	dst.Progress = qs.Progress
	if !dst.ExecutionFinished() {
		dst.CompletionStatus = qs.CompletionStatus
	}
	if qs.Error != nil {
		dst.Error = qs.Error
	}
}

// terminalError turns a FAILED or CANCELED Status into the structured
// error spec.md §4.3/§7 requires: FAILED becomes SERVER_SQL_ERROR (with the
// server's diagnostics when supplied, HY000 otherwise), CANCELED becomes
// CANCELED (SQLSTATE 57014).
func terminalError(s Status) error {
	switch s.CompletionStatus {
	case hyperpb.CompletionStatusFailed:
		if s.Error != nil {
			return hypererr.FromServerDiagnostics(s.QueryID, s.Error.SQLState, s.Error.PrimaryMessage, s.Error.Hint, s.Error.Detail)
		}
		return hypererr.New(hypererr.KindServerSQLError, hypererr.SQLStateMisc, "query failed with no diagnostics")
	case hyperpb.CompletionStatusCanceled:
		return hypererr.New(hypererr.KindCanceled, hypererr.SQLStateCanceled, "canceled by user")
	default:
		return nil
	}
}
