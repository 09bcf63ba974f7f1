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

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLogEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZeroLog(zerolog.New(&buf))

	logger.Info().Str("query_id", "q-1").Int("chunk_count", 3).Bool("finished", true).
		Duration("elapsed", 250*time.Millisecond).Msgf("query %s progressed", "q-1")

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "q-1", fields["query_id"])
	assert.Equal(t, float64(3), fields["chunk_count"])
	assert.Equal(t, true, fields["finished"])
	assert.Equal(t, "query q-1 progressed", fields["message"])
}

func TestZeroLogErrorAttachesCause(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZeroLog(zerolog.New(&buf))

	logger.Error(errors.New("transport reset")).Msgf("call failed")

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "transport reset", fields[zerolog.ErrorFieldName])
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	l := NewNoop()
	// must not panic, and chaining must return usable Events.
	l.Trace().Str("a", "b").Int("c", 1).Int64("d", 2).Bool("e", true).
		Duration("f", time.Second).Msgf("ignored")
	l.Debug().Msgf("ignored")
	l.Error(errors.New("x")).Msgf("ignored")
}
