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

	"github.com/hyperdb/go-driver/rpc"
)

// Cancel implements the uniform cancellation rule of spec.md §4.8:
// idempotent, safe at any time, silent success against an unknown or
// already-terminal query id, and never touches the underlying transport.
// It is the single entry point every caller (Adaptive.Close, AsyncHandle
// owners, range-reader owners) funnels through.
func Cancel(ctx context.Context, executor *rpc.Executor, queryID string) error {
	if queryID == "" {
		return nil
	}
	return executor.Cancel(ctx, queryID)
}
