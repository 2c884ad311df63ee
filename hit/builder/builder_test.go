package builder_test

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
)

func Test_New_ValidatesConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() builder.Configuration
		options []builder.Option
		wantErr error
	}{
		{
			name: "empty site",
			cfg: func() builder.Configuration {
				return builder.DefaultConfiguration("")
			},
			wantErr: builder.ErrEmptySite,
		},
		{
			name: "empty domain",
			cfg: func() builder.Configuration {
				cfg := builder.DefaultConfiguration("123456")
				cfg.Domain = ""
				return cfg
			},
			wantErr: builder.ErrEmptyDomain,
		},
		{
			name: "max hit size smaller than preamble and multihit reserve",
			cfg: func() builder.Configuration {
				return testConfiguration(len(testPreamble) + 30)
			},
			wantErr: builder.ErrInvalidMaxHitSize,
		},
		{
			name: "nil multihit id generator",
			cfg: func() builder.Configuration {
				return testConfiguration(builder.DefaultMaxHitSize)
			},
			options: []builder.Option{builder.WithMultihitIDGenerator(nil)},
			wantErr: builder.ErrNilMultihitIDGenerator,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := builder.New(tc.cfg(), tc.options...)

			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_New_AppliesDefaults(t *testing.T) {
	// act
	b, err := builder.New(builder.Configuration{Domain: "xiti.com", LogSSL: "logs", Site: "123456", Secure: true})

	// assert
	require.NoError(t, err)
	assert.Equal(t, builder.DefaultMaxHitSize, b.Configuration().MaxHitSize)
	assert.Equal(t, builder.DefaultPixelPath, b.Configuration().PixelPath)
	assert.Equal(t, testPreamble, b.Preamble())
	assert.True(t, b.IsSplittable("stc"))
	assert.False(t, b.IsSplittable("p"))
}

func Test_Preamble_UsesPlainLogSubdomainWhenNotSecure(t *testing.T) {
	cfg := testConfiguration(builder.DefaultMaxHitSize)
	cfg.Secure = false
	cfg.Site = "my site"

	b, err := builder.New(cfg)

	require.NoError(t, err)
	assert.Equal(t, "http://logp.xiti.com/hit.xiti?s=my%20site", b.Preamble())
}

func Test_WithSplittableKeys_ReplacesDefaults(t *testing.T) {
	b := newTestBuilder(t, builder.DefaultMaxHitSize, builder.WithSplittableKeys("tags"))

	assert.True(t, b.IsSplittable("tags"))
	assert.False(t, b.IsSplittable("stc"))
}

func Test_Build_EmptyBufferYieldsPreambleOnly(t *testing.T) {
	b := newTestBuilder(t, builder.DefaultMaxHitSize)

	hits := b.Build(context.Background(), NewBuffer().Snapshot())

	assert.Equal(t, []string{testPreamble}, hits)
}

func Test_Build_SingleHit(t *testing.T) {
	// arrange
	b := newTestBuilder(t, builder.DefaultMaxHitSize)
	buf := NewBuffer()
	buf.SetParam("p", String("home page"), TypeString)
	buf.SetParam("vtag", String("2.0.0"), TypeString, Persistent())
	buf.SetParam("tags", Array("a", "b"), TypeArray)

	// act
	hits := b.Build(context.Background(), buf.Snapshot())

	// assert
	assert.Equal(t, []string{testPreamble + "&vtag=2.0.0&p=home%20page&tags=a%2Cb"}, hits)
}

func Test_Build_DoesNotMutateTheBuffer(t *testing.T) {
	// arrange
	b := newTestBuilder(t, builder.DefaultMaxHitSize)
	buf := NewBuffer()
	buf.SetParam("a", String("1"), TypeString, Persistent())
	buf.SetParam("b", String("2"), TypeString, Last())

	// act
	_ = b.Build(context.Background(), buf.Snapshot())

	// assert
	assert.Equal(t, []KeyString{"a"}, buf.PersistentKeys())
	assert.Equal(t, []KeyString{"b"}, buf.VolatileKeys())
}

func Test_Build_IsDeterministic(t *testing.T) {
	// arrange
	b := newTestBuilder(t, 400)
	buf := NewBuffer()
	for i := range 40 {
		buf.SetParam(fmt.Sprintf("k%02d", i), String(fmt.Sprintf("value %02d", i)), TypeString)
	}
	buf.SetParam("stc", JSON(map[string]any{"z": 1, "a": []any{"x", "y"}, "m": map[string]any{"b": true}}), TypeJSON)
	snapshot := buf.Snapshot()

	// act
	first := b.Build(context.Background(), snapshot)
	second := b.Build(context.Background(), snapshot)

	// assert
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("builds differ (-first +second):\n%s", diff)
	}
}

func Test_Build_ReevaluatesLazyValuesOnEveryBuild(t *testing.T) {
	// arrange
	b := newTestBuilder(t, builder.DefaultMaxHitSize)
	calls := 0
	buf := NewBuffer()
	buf.SetParam("ts", Lazy(func() string {
		calls++
		return fmt.Sprintf("%d", calls)
	}), TypeString, Persistent())
	snapshot := buf.Snapshot()

	// act
	first := b.Build(context.Background(), snapshot)
	second := b.Build(context.Background(), snapshot)

	// assert
	assert.Equal(t, []string{testPreamble + "&ts=1"}, first)
	assert.Equal(t, []string{testPreamble + "&ts=2"}, second)
}

func Test_Build_ConservesEveryParameterExactlyOnce(t *testing.T) {
	// arrange
	b := newTestBuilder(t, 600)
	buf := NewBuffer()
	buf.SetParam("vtag", String("2.0.0"), TypeString, Persistent())
	buf.SetParam("ptag", String("go"), TypeString, Persistent())

	expected := []string{"vtag=2.0.0", "ptag=go"}
	for i := range 60 {
		key := fmt.Sprintf("key-%02d", i)
		value := fmt.Sprintf("value-%02d", i)
		buf.SetParam(key, String(value), TypeString)
		expected = append(expected, key+"="+value)
	}

	// act
	hits := b.Build(context.Background(), buf.Snapshot())

	// assert
	var actual []string
	for _, h := range hits {
		for _, fragment := range fragmentsOf(t, h) {
			if strings.HasPrefix(fragment, KeyMultihit+"=") {
				continue
			}
			actual = append(actual, fragment)
		}
	}

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("fragments differ (-want +got):\n%s", diff)
	}
}

func Test_Build_MultihitMarkerFollowsPreamble(t *testing.T) {
	// arrange
	b := newTestBuilder(t, 200)
	buf := NewBuffer()
	for i := range 20 {
		buf.SetParam(fmt.Sprintf("key-%02d", i), String(fmt.Sprintf("value-%02d", i)), TypeString)
	}

	// act
	hits := b.Build(context.Background(), buf.Snapshot())

	// assert
	require.Greater(t, len(hits), 1)
	for i, h := range hits {
		marker := fmt.Sprintf("&mh=%d-%d-%s&", i+1, len(hits), testMultihit)
		assert.True(t, strings.HasPrefix(h, testPreamble+marker), "hit %d lacks the multihit marker: %s", i, h)
		assert.LessOrEqual(t, len(h), 200)
	}
}

func Test_Build_TruncatesLongMultihitIDs(t *testing.T) {
	// arrange
	longID := strings.Repeat("x", 64)
	b := newTestBuilder(t, 200, builder.WithMultihitIDGenerator(func() string { return longID }))
	buf := NewBuffer()
	for i := range 20 {
		buf.SetParam(fmt.Sprintf("key-%02d", i), String(fmt.Sprintf("value-%02d", i)), TypeString)
	}

	// act
	hits := b.Build(context.Background(), buf.Snapshot())

	// assert
	require.Greater(t, len(hits), 1)
	for _, h := range hits {
		assert.LessOrEqual(t, len(h), 200)
		marker := fragmentsOf(t, h)[0]
		assert.LessOrEqual(t, len(marker)+1, 30)
	}
}

func Test_Build_TruncatesEncodedMultihitIDsAtCharacterBoundaries(t *testing.T) {
	// arrange
	b := newTestBuilder(t, 200, builder.WithMultihitIDGenerator(func() string { return strings.Repeat("é", 20) }))
	buf := NewBuffer()
	for i := range 20 {
		buf.SetParam(fmt.Sprintf("key-%02d", i), String(fmt.Sprintf("value-%02d", i)), TypeString)
	}

	// act
	hits := b.Build(context.Background(), buf.Snapshot())

	// assert
	require.Len(t, hits, 3)
	for i, h := range hits {
		marker := fragmentsOf(t, h)[0]
		assert.LessOrEqual(t, len(marker)+1, 30)

		prefix := fmt.Sprintf("mh=%d-3-", i+1)
		require.True(t, strings.HasPrefix(marker, prefix), "hit %d lacks the multihit marker: %s", i, h)

		id, err := url.PathUnescape(strings.TrimPrefix(marker, prefix))
		require.NoError(t, err, "the id must not end inside an escape sequence")
		assert.Equal(t, "ééé", id)
	}
}

func Test_Build_Formatting(t *testing.T) {
	tests := []struct {
		name  string
		write func(buf *Buffer)
		want  string
	}{
		{
			name: "spaces and reserved characters are percent encoded",
			write: func(buf *Buffer) {
				buf.SetParam("p", String("a b&c=d"), TypeString)
			},
			want: "&p=a%20b%26c%3Dd",
		},
		{
			name: "encode option adds a second pass",
			write: func(buf *Buffer) {
				buf.SetParam("p", String("a b"), TypeString, Encode())
			},
			want: "&p=a%2520b",
		},
		{
			name: "keys are percent encoded",
			write: func(buf *Buffer) {
				buf.SetParam("a key", String("v"), TypeString)
			},
			want: "&a%20key=v",
		},
		{
			name: "array with custom separator",
			write: func(buf *Buffer) {
				buf.SetParam("tags", Array("a", "b"), TypeArray, Separator("|"))
			},
			want: "&tags=a%7Cb",
		},
		{
			name: "appended values are joined with a comma",
			write: func(buf *Buffer) {
				buf.SetParam("events", Array("a", "b"), TypeArray)
				buf.SetParam("events", String("c"), TypeArray, Append())
			},
			want: "&events=a%2Cb%2Cc",
		},
		{
			name: "integer type truncates floats",
			write: func(buf *Buffer) {
				buf.SetParam("n", Float(3.9), TypeInteger)
			},
			want: "&n=3",
		},
		{
			name: "integer type maps bools",
			write: func(buf *Buffer) {
				buf.SetParam("n", Bool(true), TypeInteger)
			},
			want: "&n=1",
		},
		{
			name: "float keeps shortest representation",
			write: func(buf *Buffer) {
				buf.SetParam("f", Float(0.25), TypeFloat)
			},
			want: "&f=0.25",
		},
		{
			name: "bool",
			write: func(buf *Buffer) {
				buf.SetParam("b", Bool(false), TypeBool)
			},
			want: "&b=false",
		},
		{
			name: "json object with sorted keys",
			write: func(buf *Buffer) {
				buf.SetParam("stc", JSON(map[string]any{"b": 2, "a": "x"}), TypeJSON)
			},
			want: "&stc=%7B%22a%22%3A%22x%22%2C%22b%22%3A2%7D",
		},
		{
			name: "appended json objects are merged by key",
			write: func(buf *Buffer) {
				buf.SetParam("stc", JSON(map[string]any{"a": 1, "n": map[string]any{"x": 1}}), TypeJSON)
				buf.SetParam("stc", String(`{"b":2,"n":{"y":2}}`), TypeJSON, Append())
			},
			want: "&stc=%7B%22a%22%3A1%2C%22b%22%3A2%2C%22n%22%3A%7B%22x%22%3A1%2C%22y%22%3A2%7D%7D",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			b := newTestBuilder(t, builder.DefaultMaxHitSize)
			buf := NewBuffer()
			tc.write(buf)

			// act
			hits := b.Build(context.Background(), buf.Snapshot())

			// assert
			assert.Equal(t, []string{testPreamble + tc.want}, hits)
		})
	}
}

func Test_Build_MergingJSONDoesNotMutateCallerData(t *testing.T) {
	// arrange
	nested := map[string]any{"x": 1}
	b := newTestBuilder(t, builder.DefaultMaxHitSize)
	buf := NewBuffer()
	buf.SetParam("stc", JSON(map[string]any{"n": nested}), TypeJSON)
	buf.SetParam("stc", JSON(map[string]any{"n": map[string]any{"y": 2}}), TypeJSON, Append())

	// act
	_ = b.Build(context.Background(), buf.Snapshot())

	// assert
	assert.Equal(t, map[string]any{"x": 1}, nested)
}
