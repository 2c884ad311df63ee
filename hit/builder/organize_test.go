package builder_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	. "github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
)

//nolint:funlen
func Test_OrganizeParameters_Placement(t *testing.T) {
	tests := []struct {
		name  string
		write func(buf *Buffer)
		want  []KeyString
	}{
		{
			name: "protocol keys first in configured order, then persistent, then volatile",
			write: func(buf *Buffer) {
				buf.SetParam("v1", String("1"), TypeString)
				buf.SetParam("ts", String("1"), TypeString)
				buf.SetParam("p1", String("1"), TypeString, Persistent())
				buf.SetParam("vtag", String("1"), TypeString, Persistent())
			},
			want: []KeyString{"vtag", "ts", "p1", "v1"},
		},
		{
			name: "first goes right after the protocol keys",
			write: func(buf *Buffer) {
				buf.SetParam("vtag", String("1"), TypeString, Persistent())
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("f", String("1"), TypeString, First())
			},
			want: []KeyString{"vtag", "f", "a"},
		},
		{
			name: "several first keep baseline order",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("f1", String("1"), TypeString, First())
				buf.SetParam("f2", String("1"), TypeString, First())
			},
			want: []KeyString{"f1", "f2", "a"},
		},
		{
			name: "last goes behind everything and keeps baseline order",
			write: func(buf *Buffer) {
				buf.SetParam("z1", String("1"), TypeString, Last())
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("z2", String("1"), TypeString, Last())
				buf.SetParam("b", String("1"), TypeString)
			},
			want: []KeyString{"a", "b", "z1", "z2"},
		},
		{
			name: "before anchor",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("x", String("1"), TypeString)
				buf.SetParam("y", String("1"), TypeString, Before("a"))
			},
			want: []KeyString{"y", "a", "x"},
		},
		{
			name: "several after the same anchor keep baseline order",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("b", String("1"), TypeString)
				buf.SetParam("p", String("1"), TypeString, After("a"))
				buf.SetParam("q", String("1"), TypeString, After("a"))
			},
			want: []KeyString{"a", "p", "q", "b"},
		},
		{
			name: "several before the same anchor keep baseline order",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("b", String("1"), TypeString)
				buf.SetParam("p", String("1"), TypeString, Before("b"))
				buf.SetParam("q", String("1"), TypeString, Before("b"))
			},
			want: []KeyString{"a", "p", "q", "b"},
		},
		{
			name: "missing anchor keeps baseline position",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("p", String("1"), TypeString, Before("missing"))
				buf.SetParam("b", String("1"), TypeString)
			},
			want: []KeyString{"a", "p", "b"},
		},
		{
			name: "self anchor keeps baseline position",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("p", String("1"), TypeString, After("p"))
				buf.SetParam("b", String("1"), TypeString)
			},
			want: []KeyString{"a", "p", "b"},
		},
		{
			name: "protocol key anchor keeps baseline position",
			write: func(buf *Buffer) {
				buf.SetParam("vtag", String("1"), TypeString)
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("p", String("1"), TypeString, Before("vtag"))
			},
			want: []KeyString{"vtag", "a", "p"},
		},
		{
			name: "anchor in the last block places at the end of the regular region",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("z", String("1"), TypeString, Last())
				buf.SetParam("p", String("1"), TypeString, After("z"))
				buf.SetParam("b", String("1"), TypeString)
			},
			want: []KeyString{"a", "b", "p", "z"},
		},
		{
			name: "before an anchor in the first block places behind the first block",
			write: func(buf *Buffer) {
				buf.SetParam("vtag", String("1"), TypeString, Persistent())
				buf.SetParam("f1", String("1"), TypeString, First())
				buf.SetParam("p", String("1"), TypeString, Before("f1"))
				buf.SetParam("f2", String("1"), TypeString, First())
				buf.SetParam("d", String("1"), TypeString)
			},
			want: []KeyString{"vtag", "f1", "f2", "p", "d"},
		},
		{
			name: "after an anchor in the first block places behind the first block",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("f1", String("1"), TypeString, First())
				buf.SetParam("f2", String("1"), TypeString, First())
				buf.SetParam("p", String("1"), TypeString, After("f1"))
			},
			want: []KeyString{"f1", "f2", "p", "a"},
		},
		{
			name: "anchors refer to already adjusted positions",
			write: func(buf *Buffer) {
				buf.SetParam("a", String("1"), TypeString)
				buf.SetParam("b", String("1"), TypeString)
				buf.SetParam("f", String("1"), TypeString, First())
				buf.SetParam("p", String("1"), TypeString, After("f"))
			},
			want: []KeyString{"f", "p", "a", "b"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			b := newTestBuilder(t, builder.DefaultMaxHitSize)
			buf := NewBuffer()
			tc.write(buf)

			// act
			ordered := b.OrganizeParameters(buf.Snapshot())

			// assert
			if diff := cmp.Diff(tc.want, keysOf(ordered)); diff != "" {
				t.Errorf("order differs (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Build_LastAndBeforePlacement(t *testing.T) {
	// arrange
	b := newTestBuilder(t, builder.DefaultMaxHitSize)
	buf := NewBuffer()
	buf.SetParam("z", String("end"), TypeString, Last())
	buf.SetParam("a", String("1"), TypeString)
	buf.SetParam("x", String("2"), TypeString)
	buf.SetParam("b", String("3"), TypeString)
	buf.SetParam("y", String("4"), TypeString, Before("x"))

	// act
	hits := b.Build(context.Background(), buf.Snapshot())

	// assert
	assert.Equal(t, []string{testPreamble + "&a=1&y=4&x=2&b=3&z=end"}, hits)
}

func Test_OrganizeParameters_WithCustomProtocolKeys(t *testing.T) {
	// arrange
	cfg := testConfiguration(builder.DefaultMaxHitSize)
	cfg.ProtocolKeys = []KeyString{"idclient", "vtag"}
	b, err := builder.New(cfg)
	assert.NoError(t, err)

	buf := NewBuffer()
	buf.SetParam("vtag", String("1"), TypeString)
	buf.SetParam("a", String("1"), TypeString, First())
	buf.SetParam("idclient", String("1"), TypeString)

	// act
	ordered := b.OrganizeParameters(buf.Snapshot())

	// assert
	assert.Equal(t, []KeyString{"idclient", "vtag", "a"}, keysOf(ordered))
}
