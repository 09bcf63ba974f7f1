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

package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// MetadataModifier mutates an outgoing metadata bag. Composition is by
// slice concatenation, generalizing the teacher's connection.RequestModifier
// (pkg/connection/modifiers.go) from per-field HTTP header setters to
// grpc metadata pairs.
type MetadataModifier func(md metadata.MD)

// WithHeader sets a single ASCII header verbatim (spec.md §6's "additional
// headers... pass verbatim").
func WithHeader(key, value string) MetadataModifier {
	return func(md metadata.MD) {
		if value != "" {
			md.Set(key, value)
		}
	}
}

// ComposeMetadata builds the outgoing metadata.MD for one call by applying
// every modifier in order, then attaching it to ctx.
func ComposeMetadata(ctx context.Context, modifiers ...MetadataModifier) context.Context {
	md := metadata.MD{}
	for _, m := range modifiers {
		m(md)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// DeadlineFunc returns the absolute deadline for the next call, or ok=false
// for an infinite deadline (spec.md §3's EffectiveDeadline).
type DeadlineFunc func() (deadline time.Time, ok bool)

// UnaryDeadlineInterceptor derives a per-call context.WithDeadline from a
// DeadlineFunc, implementing the timeout composition of spec.md §5:
// min(network_timeout, query_timeout+grace), as computed by fn. Nothing in
// this module installs it: Statement attaches its deadline to the call
// context directly. Retries applied by the transport each get the same
// absolute deadline, not a fresh relative one.
func UnaryDeadlineInterceptor(fn DeadlineFunc) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, cancel := withEffectiveDeadline(ctx, fn)
		defer cancel()
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamDeadlineInterceptor is the streaming-call counterpart of
// UnaryDeadlineInterceptor. Streaming RPCs (ExecuteQuery, GetQueryInfo,
// GetQueryResult) are exactly where this matters: the deadline must cover
// the whole stream, not just the initial handshake.
func StreamDeadlineInterceptor(fn DeadlineFunc) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, cancel := withEffectiveDeadline(ctx, fn)
		stream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			cancel()
			return nil, err
		}
		return &cancelOnFinishStream{ClientStream: stream, cancel: cancel}, nil
	}
}

func withEffectiveDeadline(ctx context.Context, fn DeadlineFunc) (context.Context, context.CancelFunc) {
	if fn == nil {
		return ctx, func() {}
	}
	deadline, ok := fn()
	if !ok {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

// cancelOnFinishStream releases the deadline's cancel func once the stream
// is done being read, rather than leaking it until the parent context ends.
type cancelOnFinishStream struct {
	grpc.ClientStream
	cancel context.CancelFunc
}

func (s *cancelOnFinishStream) RecvMsg(m interface{}) error {
	err := s.ClientStream.RecvMsg(m)
	if err != nil {
		s.cancel()
	}
	return err
}
