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

// Package hypererr is the tagged error taxonomy of spec.md §7, replacing
// the nested Java exception chain with a single sum type carrying
// SQLSTATE, primary message, hint, detail, and cause. This generalizes
// the teacher's ArangoError/InvalidArgumentError pair (error.go) into a
// Kind-discriminated type wide enough for the whole taxonomy table.
package hypererr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the rows of spec.md §7's error taxonomy table.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransportUnavailable
	KindCanceled
	KindDeadlineExceeded
	KindServerSQLError
	KindProtocolError
	KindConfigRejected
	KindRowRangeUnavailable
	KindChunkRangeUnavailable
	KindChannelClosed
	KindPredicateUnsatisfied
	KindInvalidConfig
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindTransportUnavailable:
		return "TRANSPORT_UNAVAILABLE"
	case KindCanceled:
		return "CANCELED"
	case KindDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case KindServerSQLError:
		return "SERVER_SQL_ERROR"
	case KindProtocolError:
		return "PROTOCOL_ERROR"
	case KindConfigRejected:
		return "CONFIG_REJECTED"
	case KindRowRangeUnavailable:
		return "ROW_RANGE_UNAVAILABLE"
	case KindChunkRangeUnavailable:
		return "CHUNK_RANGE_UNAVAILABLE"
	case KindChannelClosed:
		return "CHANNEL_CLOSED"
	case KindPredicateUnsatisfied:
		return "PREDICATE_UNSATISFIED"
	case KindInvalidConfig:
		return "INVALID_CONFIG"
	case KindOutOfRange:
		return "OUT_OF_RANGE"
	default:
		return "UNKNOWN"
	}
}

// SQLSTATE codes named by spec.md §6.
const (
	SQLStateCanceled            = "57014"
	SQLStateFeatureNotSupported = "0A000"
	SQLStateColumnNotFound      = "42703"
	SQLStateDivisionByZero      = "22012"
	SQLStateTypeMismatch        = "2200G"
	SQLStateMisc                = "HY000"
)

// Error is the tagged error type this driver's core constructs. Every
// conversion (from a transport error, from a server ErrorInfo) preserves
// Kind, SQLState, and the diagnostic chain. Errors received from an open
// result or status stream are, outside the cases handled by the engine,
// passed through without conversion.
type Error struct {
	Kind          Kind
	SQLState      string
	PrimaryMessage string
	Hint          string
	Detail        string
	QueryID       string
	cause         error
}

func (e *Error) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s: %s [%s]", e.Kind, e.PrimaryMessage, e.SQLState)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.PrimaryMessage)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Cause() error { return e.cause }

// New constructs a taxonomy error with the given kind, default SQLSTATE,
// and message; WithStack-wraps it so Cause() round-trips through
// github.com/pkg/errors tooling used by the rest of the driver.
func New(kind Kind, sqlState, msg string) error {
	return errors.WithStack(&Error{Kind: kind, SQLState: sqlState, PrimaryMessage: msg})
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, sqlState, format string, args ...interface{}) error {
	return New(kind, sqlState, fmt.Sprintf(format, args...))
}

// Wrap attaches a Kind/SQLSTATE to an existing error without discarding it,
// so errors.Is/errors.As still reach the original cause.
func Wrap(cause error, kind Kind, sqlState, msg string) error {
	return errors.WithStack(&Error{Kind: kind, SQLState: sqlState, PrimaryMessage: msg, cause: cause})
}

// FromServerDiagnostics builds a SERVER_SQL_ERROR from the wire-level
// ErrorInfo carried by a terminal FAILED QueryStatus (spec.md §4.3).
func FromServerDiagnostics(queryID, sqlState, primary, hint, detail string) error {
	return errors.WithStack(&Error{
		Kind:           KindServerSQLError,
		SQLState:       sqlState,
		PrimaryMessage: primary,
		Hint:           hint,
		Detail:         detail,
		QueryID:        queryID,
	})
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// SQLState extracts the SQLSTATE from err, defaulting to HY000 when err is
// not one of ours.
func SQLState(err error) string {
	var e *Error
	if errors.As(err, &e) && e.SQLState != "" {
		return e.SQLState
	}
	return SQLStateMisc
}
