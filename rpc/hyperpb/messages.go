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

// Package hyperpb holds the wire-level message types for the HyperService
// RPC protocol. These would ordinarily be produced by protoc-gen-go from a
// hyperservice.proto file; this repository has no protoc toolchain
// available, so the message structs and the generated-shaped client
// interface below are hand-authored to the same shape protoc-gen-go-grpc
// would emit. See codec.go for how these are put on the wire.
package hyperpb

// ParamStyle is the binding style of ExecuteQuery parameters.
type ParamStyle int

const (
	ParamStyleNone ParamStyle = iota
	ParamStyleNamed
	ParamStylePositional
)

// TypedValue is a single bound query parameter.
type TypedValue struct {
	Name     string      `json:"name,omitempty"`
	Value    interface{} `json:"value"`
	TypeHint string      `json:"typeHint,omitempty"`
}

// OutputFormat names the wire encoding of result chunks. ARROW_IPC is the
// only format this driver requests; the field exists so the wire struct
// mirrors the service definition.
type OutputFormat int

const (
	OutputFormatUnspecified OutputFormat = iota
	OutputFormatArrowIPC
)

// TransferModeWire is the wire representation of spec.md's TransferMode.
type TransferModeWire int

const (
	TransferModeSync TransferModeWire = iota
	TransferModeAsync
	TransferModeAdaptive
)

// QueryParam is the request message for ExecuteQuery.
type QueryParam struct {
	SQL          string            `json:"sql"`
	ParamStyle   ParamStyle        `json:"paramStyle"`
	Parameters   []TypedValue      `json:"parameters,omitempty"`
	TransferMode TransferModeWire  `json:"transferMode"`
	OutputFormat OutputFormat      `json:"outputFormat"`
	Settings     map[string]string `json:"settings,omitempty"`
	MaxRows      uint64            `json:"maxRows,omitempty"`
	MaxBytes     uint64            `json:"maxBytes,omitempty"`
}

// CompletionStatus mirrors spec.md §3's completion_status enum, using the
// wire names of spec.md §6 (RUNNING_OR_UNSPECIFIED, RESULTS_PRODUCED,
// FINISHED) plus the client-only terminal states CANCELED/FAILED that the
// server communicates via the same field in this driver's abstraction.
type CompletionStatus int

const (
	CompletionStatusRunning CompletionStatus = iota
	CompletionStatusResultsProduced
	CompletionStatusFinished
	CompletionStatusCanceled
	CompletionStatusFailed
)

func (c CompletionStatus) String() string {
	switch c {
	case CompletionStatusRunning:
		return "RUNNING"
	case CompletionStatusResultsProduced:
		return "RESULTS_PRODUCED"
	case CompletionStatusFinished:
		return "FINISHED"
	case CompletionStatusCanceled:
		return "CANCELED"
	case CompletionStatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ErrorInfo carries server-side SQL diagnostics.
type ErrorInfo struct {
	SQLState      string `json:"sqlstate"`
	PrimaryMessage string `json:"primaryMessage"`
	Hint          string `json:"hint,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// QueryStatus is the wire representation of spec.md §3's QueryStatus.
type QueryStatus struct {
	QueryID          string           `json:"queryId"`
	CompletionStatus CompletionStatus `json:"completionStatus"`
	ChunkCount       uint64           `json:"chunkCount"`
	RowCount         uint64           `json:"rowCount"`
	Progress         float64          `json:"progress"`
	Error            *ErrorInfo       `json:"error,omitempty"`
}

// BinaryPart is an opaque, length-prefixable frame of Arrow IPC bytes. A
// query's full result is a sequence of these parts, chunked onto the wire
// and paged back in order by engine.pagedChunkReader.
type BinaryPart struct {
	Data []byte `json:"data"`
}

// QueryInfo is oneof{QueryStatus, BinarySchema} per spec.md §6.
type QueryInfo struct {
	QueryStatus  *QueryStatus `json:"queryStatus,omitempty"`
	BinarySchema *BinaryPart  `json:"binarySchema,omitempty"`
}

// QueryResult is oneof{QueryInfo, BinaryPart} per spec.md §6. Driver code
// treats QueryInfo arriving on a result stream as a skippable status
// message (spec.md §4.2's "skip predicate").
type QueryResult struct {
	QueryInfo  *QueryInfo  `json:"queryInfo,omitempty"`
	BinaryPart *BinaryPart `json:"binaryPart,omitempty"`
}

// ExecuteQueryResponse is the streamed response of ExecuteQuery: oneof{QueryInfo, QueryResult}.
type ExecuteQueryResponse struct {
	QueryInfo   *QueryInfo   `json:"queryInfo,omitempty"`
	QueryResult *QueryResult `json:"queryResult,omitempty"`
}

// Payload returns the binary payload carried by this response, if any, and
// whether one was present. Non-payload responses (pure status) are
// transparently skippable per spec.md §4.2.
func (r *ExecuteQueryResponse) Payload() ([]byte, bool) {
	if r == nil {
		return nil, false
	}
	if r.QueryResult != nil && r.QueryResult.BinaryPart != nil {
		return r.QueryResult.BinaryPart.Data, true
	}
	return nil, false
}

// QueryInfoParam is the request message for GetQueryInfo.
type QueryInfoParam struct {
	QueryID string `json:"queryId"`
}

// QueryResultParam is the request message for GetQueryResult.
type QueryResultParam struct {
	QueryID    string `json:"queryId"`
	ChunkID    uint64 `json:"chunkId"`
	Limit      uint64 `json:"limit"`
	OmitSchema bool   `json:"omitSchema"`
	MaxBytes   uint64 `json:"maxBytes,omitempty"`
}

// CancelParam is the request message for CancelQuery.
type CancelParam struct {
	QueryID string `json:"queryId"`
}

// CancelResponse is the (empty) response message for CancelQuery.
type CancelResponse struct{}
