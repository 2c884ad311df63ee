package builder_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
)

const (
	testPreamble  = "https://logs.xiti.com/hit.xiti?s=123456"
	testMultihit  = "42"
	errorFragment = "&mherr=1"
)

func testConfiguration(maxHitSize int) builder.Configuration {
	cfg := builder.DefaultConfiguration("123456")
	cfg.MaxHitSize = maxHitSize

	return cfg
}

func newTestBuilder(t *testing.T, maxHitSize int, options ...builder.Option) builder.Builder {
	t.Helper()

	options = append([]builder.Option{
		builder.WithMultihitIDGenerator(func() string { return testMultihit }),
	}, options...)

	b, err := builder.New(testConfiguration(maxHitSize), options...)
	require.NoError(t, err, "creating the builder failed")

	return b
}

func keysOf(params Parameters) []KeyString {
	keys := make([]KeyString, 0, len(params))
	for _, p := range params {
		keys = append(keys, p.Key())
	}

	return keys
}

// fragmentsOf returns the "key=value" fragments of a hit, without the preamble.
func fragmentsOf(t *testing.T, hitURL string) []string {
	t.Helper()

	require.True(t, strings.HasPrefix(hitURL, testPreamble), "hit must start with the preamble: %s", hitURL)

	body := strings.TrimPrefix(hitURL, testPreamble)
	if body == "" {
		return nil
	}

	return strings.Split(strings.TrimPrefix(body, "&"), "&")
}

// valuesOf returns the encoded values of every fragment with the given key, across all hits in order.
func valuesOf(t *testing.T, hits []string, key string) []string {
	t.Helper()

	var values []string
	for _, h := range hits {
		for _, fragment := range fragmentsOf(t, h) {
			if value, ok := strings.CutPrefix(fragment, key+"="); ok {
				values = append(values, value)
			}
		}
	}

	return values
}

func countWithErrorIndicator(hits []string) int {
	count := 0
	for _, h := range hits {
		if strings.HasSuffix(h, errorFragment) {
			count++
		}
	}

	return count
}

func arrayOf(n int, format string) []string {
	elems := make([]string, 0, n)
	for i := range n {
		elems = append(elems, fmt.Sprintf(format, i))
	}

	return elems
}
