package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const benchOutput = `goos: linux
BenchmarkVerify-8         	  300000	      4000 ns/op	     900 B/op	      12 allocs/op
BenchmarkVerify-8         	  300000	      4200 ns/op	     900 B/op	      12 allocs/op
BenchmarkRefresh-8        	   50000	     30000 ns/op
BenchmarkLogin-8          	     100	  12000000 ns/op
BenchmarkListUsersAll-8   	    2000	    600000 ns/op
BenchmarkUntracked-8      	    2000	       1 ns/op
PASS
`

func TestParseBenchmarks(t *testing.T) {
	samples, err := parseBenchmarks(strings.NewReader(benchOutput))
	require.NoError(t, err)
	assert.Equal(t, []float64{4000, 4200}, samples["BenchmarkVerify"]["ns/op"])
	assert.Equal(t, []float64{12, 12}, samples["BenchmarkVerify"]["allocs/op"])
	assert.NotContains(t, samples, "BenchmarkUntracked")
}

func TestCompareFlagsRegression(t *testing.T) {
	base, err := parseBenchmarks(strings.NewReader(benchOutput))
	require.NoError(t, err)
	slower := strings.Replace(benchOutput, "30000 ns/op", "60000 ns/op", 1)
	cand, err := parseBenchmarks(strings.NewReader(slower))
	require.NoError(t, err)

	_, failures := compare(base, base, defaultThreshold)
	assert.Empty(t, failures)

	_, failures = compare(base, cand, defaultThreshold)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "BenchmarkRefresh ns/op")
}

func TestCompareMissingSamples(t *testing.T) {
	_, failures := compare(sampleSet{}, sampleSet{}, defaultThreshold)
	assert.NotEmpty(t, failures)
}

func TestMedianAndName(t *testing.T) {
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.Equal(t, "BenchmarkVerify", normalizeBenchmarkName("BenchmarkVerify-16"))
	assert.Equal(t, "BenchmarkVerify", normalizeBenchmarkName("BenchmarkVerify"))
}
