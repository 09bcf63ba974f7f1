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

// Package credential is the "opaque credential interceptor" seam of
// spec.md §1: authentication and OAuth/private-key-JWT token exchange are
// explicitly out of scope for the query-lifecycle engine, but the engine
// still needs a place to hang a bearer token on every outgoing call. This
// package defines that seam (mirroring the teacher's Authentication
// interface in authentication.go) and ships one minimal, replaceable
// implementation so the seam is exercised end-to-end in tests.
package credential

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Interceptor is called before every outgoing RPC to attach credentials.
// Real implementations (OAuth client-credentials, private-key JWT
// exchange, token refresh) live outside this repository; Interceptor is
// the only contract the query-lifecycle engine depends on.
type Interceptor interface {
	// Token returns the current bearer token, refreshing it first if
	// Refresher.Expired reports true.
	Token(ctx context.Context) (string, error)
}

// Refresher is implemented by credential sources that can mint a fresh
// token; NewBearerJWT returns one. StaticToken is an Interceptor only and
// does not implement Refresher.
type Refresher interface {
	Expired() bool
	Refresh(ctx context.Context) (string, time.Time, error)
}

// StaticToken is an Interceptor that always presents the same token; used
// in tests and for pre-exchanged tokens.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// cachingInterceptor refreshes its token lazily and caches it until it is
// within refreshSkew of expiry.
type cachingInterceptor struct {
	mu         sync.Mutex
	refresher  Refresher
	token      string
	expiresAt  time.Time
	refreshSkew time.Duration
}

// NewCachingInterceptor wraps a Refresher with expiry-aware caching so the
// per-call interceptor chain does not mint a new token on every RPC.
func NewCachingInterceptor(r Refresher, refreshSkew time.Duration) Interceptor {
	return &cachingInterceptor{refresher: r, refreshSkew: refreshSkew}
}

func (c *cachingInterceptor) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || c.refresher.Expired() || time.Until(c.expiresAt) < c.refreshSkew {
		tok, exp, err := c.refresher.Refresh(ctx)
		if err != nil {
			return "", err
		}
		c.token, c.expiresAt = tok, exp
	}
	return c.token, nil
}

// bearerJWT mints a local, self-signed bearer token. It exercises the seam
// (header attachment, expiry-driven refresh) without performing a real
// OAuth/private-key-JWT exchange against a token endpoint; production
// deployments replace it with a Refresher backed by the real exchange.
type bearerJWT struct {
	signingKey []byte
	subject    string
	ttl        time.Duration
}

// NewBearerJWT builds a Refresher that self-signs short-lived HS256 bearer
// tokens for the given subject. Intended for local/dev and for exercising
// the credential seam in tests, not for production token exchange.
func NewBearerJWT(signingKey []byte, subject string, ttl time.Duration) Refresher {
	return &bearerJWT{signingKey: signingKey, subject: subject, ttl: ttl}
}

func (b *bearerJWT) Expired() bool { return false }

func (b *bearerJWT) Refresh(context.Context) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(b.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   b.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(b.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// UnaryClientInterceptor attaches "authorization: Bearer <token>" to every
// unary call.
func UnaryClientInterceptor(ic Interceptor) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, err := attach(ctx, ic)
		if err != nil {
			return err
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the streaming-call counterpart, needed since
// all four HyperService RPCs but CancelQuery are streams.
func StreamClientInterceptor(ic Interceptor) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, err := attach(ctx, ic)
		if err != nil {
			return nil, err
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}

func attach(ctx context.Context, ic Interceptor) (context.Context, error) {
	if ic == nil {
		return ctx, nil
	}
	tok, err := ic.Token(ctx)
	if err != nil {
		return ctx, err
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok), nil
}
