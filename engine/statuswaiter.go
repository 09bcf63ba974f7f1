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
	"time"

	"github.com/Rican7/retry/backoff"

	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/log"
	"github.com/hyperdb/go-driver/rpc"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// Predicate decides whether a Status satisfies the caller's wait
// condition (spec.md §4.5).
type Predicate func(Status) bool

// AllResultsProduced is a ready-made Predicate for the common "wait until
// results are available" case.
func AllResultsProduced(s Status) bool { return s.AllResultsProduced() }

// ExecutionFinished is a ready-made Predicate for "wait until the query is
// done, one way or another".
func ExecutionFinished(s Status) bool { return s.ExecutionFinished() }

// resubscribeBackoff is the binary-exponential backoff (no jitter) applied
// between get_query_info re-subscriptions when the server ends the stream
// without a terminal status, grounded on the dqlite driver's connection
// retry strategy (backoff.BinaryExponential plus a cap).
var resubscribeBackoff = backoff.BinaryExponential(25 * time.Millisecond)

const resubscribeBackoffCap = 2 * time.Second

// StatusWaiter is the query-status waiter of spec.md §4.5: it polls
// get_query_info until predicate accepts, the query finishes without a
// match, or the deadline elapses.
type StatusWaiter struct {
	executor *rpc.Executor
	logger   log.Logger
}

// NewStatusWaiter wraps an Executor.
func NewStatusWaiter(executor *rpc.Executor, logger log.Logger) *StatusWaiter {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &StatusWaiter{executor: executor, logger: logger}
}

// WaitFor blocks until predicate(status) is true, the query reaches a
// terminal state without satisfying predicate (PREDICATE_UNSATISFIED), a
// FAILED terminal status is observed (propagated as a structured error
// regardless of predicate), or the deadline elapses (DEADLINE_EXCEEDED).
// hasDeadline=false means wait indefinitely.
func (w *StatusWaiter) WaitFor(ctx context.Context, queryID string, predicate Predicate, deadline time.Time, hasDeadline bool) (Status, error) {
	status := Status{QueryID: queryID}

	for attempt := uint(0); ; attempt++ {
		if hasDeadline && !time.Now().Before(deadline) {
			return status, hypererr.New(hypererr.KindDeadlineExceeded, hypererr.SQLStateCanceled, "timed out waiting for query status")
		}

		if attempt > 0 {
			if err := w.sleepBeforeResubscribe(ctx, attempt, deadline, hasDeadline); err != nil {
				return status, err
			}
		}

		callCtx, cancel := w.withCallDeadline(ctx, deadline, hasDeadline)
		stream, err := w.executor.GetQueryInfo(callCtx, queryID)
		if err != nil {
			cancel()
			return status, err
		}

		matched, streamErr := w.drain(stream, &status, predicate)
		cancel()
		if streamErr != nil {
			if hasDeadline && !time.Now().Before(deadline) {
				return status, hypererr.Wrap(streamErr, hypererr.KindDeadlineExceeded, hypererr.SQLStateCanceled, "timed out waiting for query status")
			}
			return status, streamErr
		}
		switch status.CompletionStatus {
		case hyperpb.CompletionStatusFailed, hyperpb.CompletionStatusCanceled:
			// FAILED/CANCELED always propagate as a structured error,
			// regardless of whether predicate happened to match first.
			w.logger.Debug().Str("query_id", queryID).Msgf("status waiter observed terminal failure")
			return status, terminalError(status)
		}
		if matched {
			return status, nil
		}
		if status.ExecutionFinished() {
			return status, hypererr.New(hypererr.KindPredicateUnsatisfied, hypererr.SQLStateMisc,
				"query finished without satisfying predicate")
		}
		// non-terminal: the server ended the stream early; re-subscribe.
		w.logger.Trace().Str("query_id", queryID).Int("attempt", int(attempt)+1).Msgf("get_query_info stream ended early, resubscribing")
	}
}

// drain reads QueryStatus messages off stream, applying each to status,
// until predicate matches, the stream ends, or a transport error occurs.
// A FAILED or CANCELED terminal status always stops the drain immediately,
// even if predicate would also have matched it: WaitFor needs to see the
// terminal status, not a spurious predicate match, so it can propagate the
// structured error (spec.md §4.5).
func (w *StatusWaiter) drain(stream hyperpb.HyperService_GetQueryInfoClient, status *Status, predicate Predicate) (bool, error) {
	for {
		info, err := stream.Recv()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		applyQueryStatus(status, info.QueryStatus)
		switch status.CompletionStatus {
		case hyperpb.CompletionStatusFailed, hyperpb.CompletionStatusCanceled:
			return false, nil
		}
		if predicate != nil && predicate(*status) {
			return true, nil
		}
	}
}

// withCallDeadline derives the per-call deadline as deadline-now, bounded
// below by zero, per spec.md §4.5's deadline discipline.
func (w *StatusWaiter) withCallDeadline(ctx context.Context, deadline time.Time, hasDeadline bool) (context.Context, context.CancelFunc) {
	if !hasDeadline {
		return context.WithCancel(ctx)
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	return context.WithTimeout(ctx, remaining)
}

func (w *StatusWaiter) sleepBeforeResubscribe(ctx context.Context, attempt uint, deadline time.Time, hasDeadline bool) error {
	d := resubscribeBackoff(attempt)
	if d > resubscribeBackoffCap {
		d = resubscribeBackoffCap
	}
	if hasDeadline {
		if remaining := time.Until(deadline); remaining < d {
			d = remaining
		}
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return hypererr.Wrap(ctx.Err(), hypererr.KindDeadlineExceeded, hypererr.SQLStateCanceled, "context done while waiting for query status")
	}
}
