// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec() Spec {
	return Spec{
		Input:           "udp://239.0.0.1:1234",
		Output:          "udp://239.0.0.2:1234",
		MarkerGlob:      "/var/lib/cue2ts/markers/splice_*.xml",
		PollInterval:    500 * time.Millisecond,
		MetricsInterval: 10 * time.Second,
		MetricsJSON:     true,
	}
}

func TestBuildInvocationPluginChain(t *testing.T) {
	inv := BuildInvocation("tsp", testSpec())

	assert.Equal(t, "tsp", inv.Bin)
	args := strings.Join(inv.Args, " ")

	assert.Contains(t, args, "-I ip udp://239.0.0.1:1234")
	assert.Contains(t, args, "-P spliceinject --files /var/lib/cue2ts/markers/splice_*.xml")
	assert.Contains(t, args, "--poll-interval 500")
	assert.Contains(t, args, "--pid 500")
	assert.Contains(t, args, "-P analyze --interval 10 --json-line")
	assert.Contains(t, args, "-O ip udp://239.0.0.2:1234")
}

func TestBuildInvocationOrdering(t *testing.T) {
	inv := BuildInvocation("tsp", testSpec())
	args := strings.Join(inv.Args, " ")

	// Input before plugins, output last.
	require.True(t, strings.HasPrefix(args, "-I ip "))
	require.True(t, strings.HasSuffix(args, "-O ip udp://239.0.0.2:1234"))
	assert.Less(t, strings.Index(args, "spliceinject"), strings.Index(args, "analyze"))
}

func TestBuildInvocationNoDeleteFilesByDefault(t *testing.T) {
	inv := BuildInvocation("tsp", testSpec())
	assert.NotContains(t, inv.Args, "--delete-files",
		"loop-owned cleanup must not be combined with engine-side deletion")
}

func TestBuildInvocationConsumerDeletes(t *testing.T) {
	s := testSpec()
	s.ConsumerDeletes = true
	inv := BuildInvocation("tsp", s)
	assert.Contains(t, inv.Args, "--delete-files")
}

func TestBuildInvocationFreeTextMetrics(t *testing.T) {
	s := testSpec()
	s.MetricsJSON = false
	inv := BuildInvocation("tsp", s)
	assert.NotContains(t, inv.Args, "--json-line")
}

func TestBuildInvocationDefaultInjectPID(t *testing.T) {
	s := testSpec()
	s.InjectPID = 600
	inv := BuildInvocation("tsp", s)

	idx := -1
	for i, a := range inv.Args {
		if a == "--pid" {
			idx = i
			break
		}
	}
	require.NotEqual(t, -1, idx)
	assert.Equal(t, "600", inv.Args[idx+1])
}
