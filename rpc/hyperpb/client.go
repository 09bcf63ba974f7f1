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

package hyperpb

import (
	"context"

	"google.golang.org/grpc"
)

// Service and method names, matching what a hyperservice.proto would
// declare; kept as constants so the stub and any test double agree on
// exactly one source of truth.
const (
	ServiceName = "hyperdb.hyperservice.v1.HyperService"

	MethodExecuteQuery   = "/" + ServiceName + "/ExecuteQuery"
	MethodGetQueryInfo   = "/" + ServiceName + "/GetQueryInfo"
	MethodGetQueryResult = "/" + ServiceName + "/GetQueryResult"
	MethodCancelQuery    = "/" + ServiceName + "/CancelQuery"
)

// HyperServiceClient is the shape protoc-gen-go-grpc would generate for
// the four RPCs of spec.md §6. It is hand-authored here because no protoc
// toolchain is available in this repository; NewHyperServiceClient below
// is the only constructor callers need.
type HyperServiceClient interface {
	ExecuteQuery(ctx context.Context, in *QueryParam, opts ...grpc.CallOption) (HyperService_ExecuteQueryClient, error)
	GetQueryInfo(ctx context.Context, in *QueryInfoParam, opts ...grpc.CallOption) (HyperService_GetQueryInfoClient, error)
	GetQueryResult(ctx context.Context, in *QueryResultParam, opts ...grpc.CallOption) (HyperService_GetQueryResultClient, error)
	CancelQuery(ctx context.Context, in *CancelParam, opts ...grpc.CallOption) (*CancelResponse, error)
}

type HyperService_ExecuteQueryClient interface {
	Recv() (*ExecuteQueryResponse, error)
	grpc.ClientStream
}

type HyperService_GetQueryInfoClient interface {
	Recv() (*QueryInfo, error)
	grpc.ClientStream
}

type HyperService_GetQueryResultClient interface {
	Recv() (*QueryResult, error)
	grpc.ClientStream
}

var (
	executeQueryStreamDesc = grpc.StreamDesc{StreamName: "ExecuteQuery", ServerStreams: true}
	getQueryInfoStreamDesc = grpc.StreamDesc{StreamName: "GetQueryInfo", ServerStreams: true}
	getQueryResultStreamDesc = grpc.StreamDesc{StreamName: "GetQueryResult", ServerStreams: true}
)

type hyperServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewHyperServiceClient wraps a grpc.ClientConnInterface (a *grpc.ClientConn
// in production, or a fake for tests) with the HyperService stub.
func NewHyperServiceClient(cc grpc.ClientConnInterface) HyperServiceClient {
	return &hyperServiceClient{cc: cc}
}

func (c *hyperServiceClient) ExecuteQuery(ctx context.Context, in *QueryParam, opts ...grpc.CallOption) (HyperService_ExecuteQueryClient, error) {
	stream, err := c.cc.NewStream(ctx, &executeQueryStreamDesc, MethodExecuteQuery, opts...)
	if err != nil {
		return nil, err
	}
	x := &executeQueryClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type executeQueryClient struct{ grpc.ClientStream }

func (x *executeQueryClient) Recv() (*ExecuteQueryResponse, error) {
	m := new(ExecuteQueryResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *hyperServiceClient) GetQueryInfo(ctx context.Context, in *QueryInfoParam, opts ...grpc.CallOption) (HyperService_GetQueryInfoClient, error) {
	stream, err := c.cc.NewStream(ctx, &getQueryInfoStreamDesc, MethodGetQueryInfo, opts...)
	if err != nil {
		return nil, err
	}
	x := &getQueryInfoClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type getQueryInfoClient struct{ grpc.ClientStream }

func (x *getQueryInfoClient) Recv() (*QueryInfo, error) {
	m := new(QueryInfo)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *hyperServiceClient) GetQueryResult(ctx context.Context, in *QueryResultParam, opts ...grpc.CallOption) (HyperService_GetQueryResultClient, error) {
	stream, err := c.cc.NewStream(ctx, &getQueryResultStreamDesc, MethodGetQueryResult, opts...)
	if err != nil {
		return nil, err
	}
	x := &getQueryResultClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type getQueryResultClient struct{ grpc.ClientStream }

func (x *getQueryResultClient) Recv() (*QueryResult, error) {
	m := new(QueryResult)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *hyperServiceClient) CancelQuery(ctx context.Context, in *CancelParam, opts ...grpc.CallOption) (*CancelResponse, error) {
	out := new(CancelResponse)
	err := c.cc.Invoke(ctx, MethodCancelQuery, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
