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
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// ChannelProperties configures keep-alive and retry behavior of the grpc
// transport (spec.md §6 "Channel" property group). Retries are entirely
// the transport's concern (spec.md §4.1): they are expressed as a grpc
// service-config JSON blob, never as logic in the RPC Client Executor.
type ChannelProperties struct {
	KeepAliveEnabled     bool
	KeepAliveTime        time.Duration
	KeepAliveTimeout     time.Duration
	KeepAliveWithoutCalls bool
	IdleTimeout          time.Duration

	RetriesEnabled       bool
	RetryMaxAttempts     int
	RetryInitialBackoff  time.Duration
	RetryMaxBackoff      time.Duration
	RetryBackoffMultiplier float64
	RetryableStatusCodes []string

	MaxInboundMessageSize int
}

// DefaultChannelProperties matches the defaults listed in spec.md §6.
func DefaultChannelProperties() ChannelProperties {
	return ChannelProperties{
		KeepAliveEnabled:      false,
		KeepAliveTime:         60 * time.Second,
		KeepAliveTimeout:      10 * time.Second,
		KeepAliveWithoutCalls: false,
		IdleTimeout:           300 * time.Second,

		RetriesEnabled:         true,
		RetryMaxAttempts:       5,
		RetryInitialBackoff:    500 * time.Millisecond,
		RetryMaxBackoff:        30 * time.Second,
		RetryBackoffMultiplier: 2.0,
		RetryableStatusCodes:   []string{"UNAVAILABLE"},

		// MaxInboundMessageSize is fixed at 64 MiB per spec.md §6.
		MaxInboundMessageSize: 64 * 1024 * 1024,
	}
}

// BuildDialOptions translates ChannelProperties into grpc.DialOptions: a
// service-config retry policy (so the channel itself retries, per
// spec.md §4.1's "never retries at this layer"), keep-alive parameters,
// and the inbound message-size cap.
func (c ChannelProperties) BuildDialOptions() []grpc.DialOption {
	opts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(c.MaxInboundMessageSize)),
	}

	if c.KeepAliveEnabled {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.KeepAliveTime,
			Timeout:             c.KeepAliveTimeout,
			PermitWithoutStream: c.KeepAliveWithoutCalls,
		}))
	}

	if c.RetriesEnabled {
		opts = append(opts, grpc.WithDefaultServiceConfig(c.retryServiceConfigJSON()))
	}

	return opts
}

func (c ChannelProperties) retryServiceConfigJSON() string {
	codes := make([]string, len(c.RetryableStatusCodes))
	for i, code := range c.RetryableStatusCodes {
		codes[i] = fmt.Sprintf("%q", code)
	}
	return fmt.Sprintf(`{
		"methodConfig": [{
			"name": [{"service": "%s"}],
			"retryPolicy": {
				"maxAttempts": %d,
				"initialBackoff": "%s",
				"maxBackoff": "%s",
				"backoffMultiplier": %g,
				"retryableStatusCodes": [%s]
			}
		}]
	}`,
		serviceNamePlaceholder,
		c.RetryMaxAttempts,
		durationString(c.RetryInitialBackoff),
		durationString(c.RetryMaxBackoff),
		c.RetryBackoffMultiplier,
		strings.Join(codes, ","),
	)
}

// durationString renders a time.Duration in the "Ns" form grpc's service
// config JSON expects (e.g. "0.5s", "30s").
func durationString(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}

const serviceNamePlaceholder = "hyperdb.hyperservice.v1.HyperService"
