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

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/hyperdb/go-driver/rpc"
	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// fakeClientStream implements grpc.ClientStream with no-op plumbing so
// fake typed streams below only need to implement Recv.
type fakeClientStream struct{}

func (fakeClientStream) Header() (metadata.MD, error) { return nil, nil }
func (fakeClientStream) Trailer() metadata.MD          { return nil }
func (fakeClientStream) CloseSend() error              { return nil }
func (fakeClientStream) Context() context.Context      { return context.Background() }
func (fakeClientStream) SendMsg(interface{}) error     { return nil }
func (fakeClientStream) RecvMsg(interface{}) error     { return nil }

type fakeExecuteStream struct {
	fakeClientStream
	responses []*hyperpb.ExecuteQueryResponse
	i         int
	err       error
}

func (s *fakeExecuteStream) Recv() (*hyperpb.ExecuteQueryResponse, error) {
	if s.i >= len(s.responses) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.responses[s.i]
	s.i++
	return r, nil
}

type fakeInfoStream struct {
	fakeClientStream
	infos []*hyperpb.QueryInfo
	i     int
	err   error
}

func (s *fakeInfoStream) Recv() (*hyperpb.QueryInfo, error) {
	if s.i >= len(s.infos) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.infos[s.i]
	s.i++
	return r, nil
}

type fakeResultStream struct {
	fakeClientStream
	results []*hyperpb.QueryResult
	i       int
	err     error
}

func (s *fakeResultStream) Recv() (*hyperpb.QueryResult, error) {
	if s.i >= len(s.results) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.results[s.i]
	s.i++
	return r, nil
}

// fakeHyperClient scripts canned responses for one test query; each
// GetQueryResult/GetQueryInfo call pops the next scripted page so tests
// can exercise multi-page fetch/poll sequences.
type fakeHyperClient struct {
	executeResponses []*hyperpb.ExecuteQueryResponse
	resultPages      [][]*hyperpb.QueryResult
	infoPages        [][]*hyperpb.QueryInfo
	resultCall       int
	infoCall         int
	canceled         []string
}

func (c *fakeHyperClient) ExecuteQuery(ctx context.Context, in *hyperpb.QueryParam, opts ...grpc.CallOption) (hyperpb.HyperService_ExecuteQueryClient, error) {
	return &fakeExecuteStream{responses: c.executeResponses}, nil
}

func (c *fakeHyperClient) GetQueryInfo(ctx context.Context, in *hyperpb.QueryInfoParam, opts ...grpc.CallOption) (hyperpb.HyperService_GetQueryInfoClient, error) {
	var page []*hyperpb.QueryInfo
	if c.infoCall < len(c.infoPages) {
		page = c.infoPages[c.infoCall]
	}
	c.infoCall++
	return &fakeInfoStream{infos: page}, nil
}

func (c *fakeHyperClient) GetQueryResult(ctx context.Context, in *hyperpb.QueryResultParam, opts ...grpc.CallOption) (hyperpb.HyperService_GetQueryResultClient, error) {
	var page []*hyperpb.QueryResult
	if c.resultCall < len(c.resultPages) {
		page = c.resultPages[c.resultCall]
	}
	c.resultCall++
	return &fakeResultStream{results: page}, nil
}

func (c *fakeHyperClient) CancelQuery(ctx context.Context, in *hyperpb.CancelParam, opts ...grpc.CallOption) (*hyperpb.CancelResponse, error) {
	c.canceled = append(c.canceled, in.QueryID)
	return &hyperpb.CancelResponse{}, nil
}

// fakeStubProvider always hands out the same fakeHyperClient.
type fakeStubProvider struct {
	client *fakeHyperClient
}

func (p *fakeStubProvider) GetStub() hyperpb.HyperServiceClient { return p.client }
func (p *fakeStubProvider) Close() error                        { return nil }

func newTestExecutor(client *fakeHyperClient) *rpc.Executor {
	return rpc.NewExecutor(&fakeStubProvider{client: client})
}

func qs(queryID string, status hyperpb.CompletionStatus, chunkCount, rowCount uint64) *hyperpb.QueryStatus {
	return &hyperpb.QueryStatus{QueryID: queryID, CompletionStatus: status, ChunkCount: chunkCount, RowCount: rowCount}
}
