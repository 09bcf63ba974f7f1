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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperdb/go-driver/hypererr"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

func TestExecuteAsyncCapturesQueryID(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("async-1", hyperpb.CompletionStatusRunning, 0, 0)}},
		},
	}
	h, err := ExecuteAsync(context.Background(), newTestExecutor(client), ExecuteParams{SQL: "SELECT pg_sleep(1)"})
	require.NoError(t, err)
	assert.Equal(t, "async-1", h.QueryID())
}

func TestExecuteAsyncSkipsLeadingMessageWithoutQueryID(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryResult: &hyperpb.QueryResult{BinaryPart: &hyperpb.BinaryPart{Data: []byte("schema")}}},
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("async-2", hyperpb.CompletionStatusRunning, 1, 0)}},
		},
	}
	h, err := ExecuteAsync(context.Background(), newTestExecutor(client), ExecuteParams{SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "async-2", h.QueryID())
}

func TestExecuteAsyncProtocolErrorWithoutQueryID(t *testing.T) {
	client := &fakeHyperClient{}
	_, err := ExecuteAsync(context.Background(), newTestExecutor(client), ExecuteParams{SQL: "SELECT 1"})
	require.Error(t, err)
	assert.True(t, hypererr.Is(err, hypererr.KindProtocolError))
}
