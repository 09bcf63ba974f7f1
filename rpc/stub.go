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

// Package rpc is the Stub Provider and RPC Client Executor of spec.md
// §2.2/§2.3: a thin, timeout- and metadata-aware layer over the
// hyperpb.HyperServiceClient stub.
package rpc

import (
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hyperdb/go-driver/rpc/hyperpb"
)

// Ownership mirrors spec.md §9's ownership enum, replacing a boolean
// "closeChannelWithConnection" flag.
type Ownership int

const (
	// Owned transports are closed when the StubProvider is closed.
	Owned Ownership = iota
	// Borrowed transports outlive the StubProvider; Close is a no-op.
	Borrowed
)

// StubProvider is an abstract factory yielding a blocking RPC handle bound
// to a transport (spec.md §2.2). Implementations must be safe for
// concurrent GetStub calls; each call may return a fresh interceptor
// composition over a shared channel.
type StubProvider interface {
	// GetStub returns a client bound to one transport from the pool. Round
	// robin across PoolSize transports when more than one endpoint/connection
	// was configured (spec.md §10 supplemental PoolSize knob).
	GetStub() hyperpb.HyperServiceClient
	Close() error
}

// Config configures the default grpc-backed StubProvider.
type Config struct {
	// Endpoints are one or more "host:port" targets. Multiple endpoints are
	// dialed independently and round-robined across by GetStub, generalizing
	// the teacher's cluster.ConnectionConfig fan-out.
	Endpoints []string
	// PoolSize is the number of independent grpc.ClientConn to open per
	// endpoint. Default 1 preserves plain single-connection behavior.
	PoolSize int
	// TLSConfig configures the transport credentials; nil means plaintext
	// (insecure), matching spec.md §6's ssl.disabled=true mode.
	TLSConfig *tls.Config
	// DialOptions are appended verbatim, e.g. for the retry/keepalive
	// service-config built by BuildDialOptions.
	DialOptions []grpc.DialOption
	// CredentialInterceptor attaches bearer credentials to each call; see
	// package credential for the seam contract.
	CredentialInterceptor grpc.UnaryClientInterceptor
	StreamCredential       grpc.StreamClientInterceptor
}

// NewStubProvider dials config.Endpoints (each config.PoolSize times) and
// returns an Owned StubProvider: Close() tears down every dialed
// grpc.ClientConn.
func NewStubProvider(cfg Config) (StubProvider, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("hyperdb/rpc: at least one endpoint is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	var creds credentials.TransportCredentials
	if cfg.TLSConfig != nil {
		creds = credentials.NewTLS(cfg.TLSConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(hyperpb.CodecName)),
	}, cfg.DialOptions...)
	if cfg.CredentialInterceptor != nil {
		opts = append(opts, grpc.WithUnaryInterceptor(cfg.CredentialInterceptor))
	}
	if cfg.StreamCredential != nil {
		opts = append(opts, grpc.WithStreamInterceptor(cfg.StreamCredential))
	}

	var conns []*grpc.ClientConn
	for _, ep := range cfg.Endpoints {
		for i := 0; i < poolSize; i++ {
			conn, err := grpc.NewClient(ep, opts...)
			if err != nil {
				closeAll(conns)
				return nil, fmt.Errorf("hyperdb/rpc: dial %s: %w", ep, err)
			}
			conns = append(conns, conn)
		}
	}

	return &roundRobinProvider{conns: conns, ownership: Owned}, nil
}

// NewBorrowedStubProvider wraps caller-owned grpc.ClientConn(s) (spec.md
// §2.2's "caller-owned reuse" mode): a shared channel across connections,
// with Close() a no-op since the core never owned the transport.
func NewBorrowedStubProvider(conns ...grpc.ClientConnInterface) StubProvider {
	return &borrowedProvider{conns: conns}
}

func closeAll(conns []*grpc.ClientConn) {
	for _, c := range conns {
		_ = c.Close()
	}
}

type roundRobinProvider struct {
	conns     []*grpc.ClientConn
	next      uint64
	ownership Ownership
	closeOnce sync.Once
}

func (p *roundRobinProvider) GetStub() hyperpb.HyperServiceClient {
	i := atomic.AddUint64(&p.next, 1) - 1
	conn := p.conns[int(i)%len(p.conns)]
	return hyperpb.NewHyperServiceClient(conn)
}

func (p *roundRobinProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.ownership == Borrowed {
			return
		}
		for _, c := range p.conns {
			if e := c.Close(); e != nil && err == nil {
				err = e
			}
		}
	})
	return err
}

type borrowedProvider struct {
	conns []grpc.ClientConnInterface
	next  uint64
}

func (p *borrowedProvider) GetStub() hyperpb.HyperServiceClient {
	i := atomic.AddUint64(&p.next, 1) - 1
	return hyperpb.NewHyperServiceClient(p.conns[int(i)%len(p.conns)])
}

func (p *borrowedProvider) Close() error { return nil }
