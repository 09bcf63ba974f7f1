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

func TestAdaptiveInlineOnlyResult(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("q1", hyperpb.CompletionStatusFinished, 1, 1)}},
			{QueryResult: &hyperpb.QueryResult{BinaryPart: &hyperpb.BinaryPart{Data: []byte("rowbytes")}}},
		},
	}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT 1"})
	ctx := context.Background()

	payload, ok, err := m.next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, payload)
	assert.Equal(t, "q1", m.QueryID())

	payload, ok, err = m.next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "rowbytes", string(payload))

	_, ok, err = m.next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdaptiveDefersPayloadUntilQueryIDKnown(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryResult: &hyperpb.QueryResult{BinaryPart: &hyperpb.BinaryPart{Data: []byte("early")}}},
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("q2", hyperpb.CompletionStatusFinished, 1, 1)}},
		},
	}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT 1"})
	ctx := context.Background()

	// first message carries a payload but no query_id yet: deferred.
	payload, ok, err := m.next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, payload)
	assert.Empty(t, m.QueryID())

	// second message resolves the id.
	payload, ok, err = m.next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, payload)
	assert.Equal(t, "q2", m.QueryID())

	// stream ends; DECIDE flushes the deferred payload.
	payload, ok, err = m.next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "early", string(payload))

	_, ok, err = m.next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdaptiveProtocolErrorWhenNoQueryID(t *testing.T) {
	client := &fakeHyperClient{}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT 1"})

	_, ok, err := m.next(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, hypererr.Is(err, hypererr.KindProtocolError))
}

func TestAdaptiveServerFailureSurfacesDiagnostics(t *testing.T) {
	status := qs("q3", hyperpb.CompletionStatusFailed, 0, 0)
	status.Error = &hyperpb.ErrorInfo{SQLState: "22012", PrimaryMessage: "division by zero"}
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: status}},
		},
	}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT 1/0"})
	ctx := context.Background()

	_, _, _ = m.next(ctx) // consume the status message
	_, ok, err := m.next(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, hypererr.Is(err, hypererr.KindServerSQLError))
	assert.Equal(t, "22012", hypererr.SQLState(err))
}

func TestAdaptiveFetchKnownThenDone(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("q4", hyperpb.CompletionStatusRunning, 2, 2)}},
		},
		resultPages: [][]*hyperpb.QueryResult{
			{
				{BinaryPart: &hyperpb.BinaryPart{Data: []byte("c0")}},
				{BinaryPart: &hyperpb.BinaryPart{Data: []byte("c1")}},
				{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("q4", hyperpb.CompletionStatusFinished, 2, 2)}},
			},
		},
	}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT * FROM t"})
	ctx := context.Background()

	var chunks []string
	for {
		payload, ok, err := m.next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		if len(payload) > 0 {
			chunks = append(chunks, string(payload))
		}
	}
	assert.Equal(t, []string{"c0", "c1"}, chunks)
}

func TestAdaptiveRejectsSecondExecute(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("q5", hyperpb.CompletionStatusFinished, 0, 0)}},
		},
	}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT 1"})
	ctx := context.Background()
	_, _, _ = m.next(ctx)

	// Force state back to initial to simulate a caller re-invoking Execute
	// on an already-started machine; started flag must still reject it.
	m.state = stateInitial
	_, _, err := m.next(ctx)
	require.Error(t, err)
	assert.True(t, hypererr.Is(err, hypererr.KindProtocolError))
}

func TestAdaptiveCloseCancelsRunningQuery(t *testing.T) {
	client := &fakeHyperClient{
		executeResponses: []*hyperpb.ExecuteQueryResponse{
			{QueryInfo: &hyperpb.QueryInfo{QueryStatus: qs("q6", hyperpb.CompletionStatusRunning, 5, 0)}},
		},
	}
	m := NewAdaptive(newTestExecutor(client), nil, ExecuteParams{SQL: "SELECT pg_sleep(100)"})
	_, _, _ = m.next(context.Background())

	require.NoError(t, m.Close())
	assert.Equal(t, []string{"q6"}, client.canceled)

	// idempotent
	require.NoError(t, m.Close())
	assert.Equal(t, []string{"q6"}, client.canceled)
}
