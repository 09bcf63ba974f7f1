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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperdb/go-driver/hypererr"
)

func TestParseAllDefaults(t *testing.T) {
	conn, channel, poolSize, err := ParseAll(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "jdbcv3", conn.Workload)
	assert.Equal(t, 5*time.Second, conn.Statement.LocalEnforcementGrace)
	assert.Equal(t, time.Duration(0), conn.Statement.QueryTimeout)
	assert.False(t, channel.KeepAliveEnabled)
	assert.Equal(t, 1, poolSize)
}

func TestParseAllRecognizesEveryProperty(t *testing.T) {
	raw := map[string]string{
		"workload":                          "analytics",
		"externalClientContext":             `{"app":"bi"}`,
		"dataspace":                         "prod",
		"headers.x-trace-id":                "abc123",
		"queryTimeout":                      "30",
		"queryTimeoutLocalEnforcementDelay": "2",
		"querySetting.lc_time":              "en_US",
		"grpc.keepAlive":                    "true",
		"grpc.keepAlive.time":               "45",
		"grpc.enableRetries":                "true",
		"grpc.retryPolicy.maxAttempts":      "3",
		"grpc.retryPolicy.initialBackoff":   "0.25s",
		"grpc.poolSize":                     "4",
	}
	conn, channel, poolSize, err := ParseAll(raw)
	require.NoError(t, err)
	assert.Equal(t, "analytics", conn.Workload)
	assert.Equal(t, "prod", conn.Dataspace)
	assert.Equal(t, "abc123", conn.AdditionalHeaders["x-trace-id"])
	assert.Equal(t, 30*time.Second, conn.Statement.QueryTimeout)
	assert.Equal(t, 2*time.Second, conn.Statement.LocalEnforcementGrace)
	assert.Equal(t, "en_US", conn.Statement.QuerySettings["lc_time"])
	assert.True(t, channel.KeepAliveEnabled)
	assert.Equal(t, 45*time.Second, channel.KeepAliveTime)
	assert.Equal(t, 3, channel.RetryMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, channel.RetryInitialBackoff)
	assert.Equal(t, 4, poolSize)
}

func TestReservedQuerySettingRejected(t *testing.T) {
	_, _, _, err := ParseAll(map[string]string{"querySetting.query_timeout": "5s"})
	require.Error(t, err)
	assert.True(t, hypererr.Is(err, hypererr.KindConfigRejected))
	assert.Contains(t, err.Error(), "queryTimeout")
}

func TestUnrecognizedPropertyRejected(t *testing.T) {
	_, _, _, err := ParseAll(map[string]string{"totaly.unknown.key": "x"})
	require.Error(t, err)
	assert.True(t, hypererr.Is(err, hypererr.KindConfigRejected))
	assert.Contains(t, err.Error(), "totaly.unknown.key")
}

func TestHeadersRoundTrip(t *testing.T) {
	conn, err := ParseConnectionProperties(Properties{
		"workload":           "jdbcv3",
		"dataspace":          "prod",
		"headers.x-a":        "1",
		"headers.x-b":        "2",
		"queryTimeout":       "10",
	})
	require.NoError(t, err)

	roundTripped := conn.ToProperties()
	conn2, err := ParseConnectionProperties(Properties(roundTripped))
	require.NoError(t, err)
	assert.Equal(t, conn.AdditionalHeaders, conn2.AdditionalHeaders)
	assert.Equal(t, conn.Workload, conn2.Workload)
	assert.Equal(t, conn.Dataspace, conn2.Dataspace)
	assert.Equal(t, conn.Statement.QueryTimeout, conn2.Statement.QueryTimeout)
}

func TestMaxBytesOutOfRangeRejected(t *testing.T) {
	_, err := ParseConnectionProperties(Properties{"maxBytes": "1"})
	require.Error(t, err)
	assert.True(t, hypererr.Is(err, hypererr.KindInvalidConfig))
}
