package cachekey_test

import (
	"strings"
	"testing"
	"time"

	"github.com/illmade-knight/go-callapi/pkg/cachekey"
	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/stretchr/testify/assert"
)

type page struct {
	Cursor string `json:"cursor"`
	Size   int    `json:"size"`
}

func TestDeriver_Key(t *testing.T) {
	limit := 10
	tests := []struct {
		name   string
		d      *cachekey.Deriver
		params []any
		want   string
	}{
		{name: "No params", d: cachekey.New("feed"), want: "feed::3"},
		{name: "Basic types", d: cachekey.New("feed"), params: []any{1, "hello", true, 2.5}, want: `feed::3::1::"hello"::true::2.5`},
		{name: "No prefix", d: &cachekey.Deriver{}, params: []any{"a"}, want: `3::"a"`},
		{name: "Nil and pointer", d: cachekey.New("p"), params: []any{nil, &limit, (*int)(nil)}, want: "p::3::nil::10::nil"},
		{name: "Slices", d: cachekey.New("s"), params: []any{[]string{"x", "y"}, []int(nil), []int{}}, want: `s::3::["x","y"]::nil::[]`},
		{name: "Map keys are sorted", d: cachekey.New("m"), params: []any{map[string]int{"b": 2, "a": 1}}, want: `m::3::{"a"=1,"b"=2}`},
		{name: "Struct falls back to JSON", d: cachekey.New("st"), params: []any{page{Cursor: "c1", Size: 20}}, want: `st::3::{"cursor":"c1","size":20}`},
		{name: "Stringer struct", d: cachekey.New("t"), params: []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, want: `t::3::"2024-01-02 00:00:00 +0000 UTC"`},
		{name: "Mode segment", d: &cachekey.Deriver{Prefix: "feed", IncludeMode: true}, params: []any{"a"}, want: `feed::3::APPEND::"a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Key(3, callapi.CacheAppend, tt.params...))
		})
	}
}

func TestDeriver_ModeIsIgnoredByDefault(t *testing.T) {
	d := cachekey.New("feed")
	assert.Equal(t, d.Key(1, callapi.CacheAppend, "p"), d.Key(1, callapi.CacheReplace, "p"))
}

func TestDeriver_CompactsLongKeys(t *testing.T) {
	d := &cachekey.Deriver{Prefix: "feed", MaxLength: 32}
	long := strings.Repeat("x", 100)

	key := d.Key(5, callapi.CacheReplace, long)

	assert.LessOrEqual(t, len(key), 32)
	assert.True(t, strings.HasPrefix(key, "feed::5::h:"), key)
	assert.Equal(t, key, d.Key(5, callapi.CacheReplace, long), "compaction is deterministic")
	assert.NotEqual(t, key, d.Key(5, callapi.CacheReplace, long+"y"))

	unbounded := &cachekey.Deriver{Prefix: "feed", MaxLength: -1}
	assert.Equal(t, `feed::5::"`+long+`"`, unbounded.Key(5, callapi.CacheReplace, long))
}

func TestDeriver_FuncFitsListener(t *testing.T) {
	listener := callapi.Listener{CacheKey: cachekey.New("feed").Func()}
	assert.Equal(t, "feed::2::7", listener.CacheKey(2, callapi.CacheReplace, 7))
}

func TestDeriver_DistinctParamsGetDistinctKeys(t *testing.T) {
	d := cachekey.New("feed")

	tests := []struct {
		name string
		a, b []any
	}{
		{name: "Separator inside a string", a: []any{"a::b"}, b: []any{"a", "b"}},
		{name: "Nil and the string nil", a: []any{nil}, b: []any{"nil"}},
		{name: "Number and its string form", a: []any{1}, b: []any{"1"}},
		{name: "Nil slice and empty slice", a: []any{[]int(nil)}, b: []any{[]int{}}},
		{name: "Comma inside a slice element", a: []any{[]string{"a,b"}}, b: []any{[]string{"a", "b"}}},
		{name: "Empty string and no param", a: []any{""}, b: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, d.Key(1, callapi.CacheReplace, tt.a...), d.Key(1, callapi.CacheReplace, tt.b...))
		})
	}
}

func TestDeriver_CompactionRespectsMaxLengthWithLongPrefix(t *testing.T) {
	d := &cachekey.Deriver{Prefix: strings.Repeat("p", 28), MaxLength: 32}

	key := d.Key(5, callapi.CacheReplace, strings.Repeat("x", 40))

	assert.LessOrEqual(t, len(key), 32)
	assert.True(t, strings.HasPrefix(key, "h:"), key)
	assert.NotEqual(t, key, d.Key(6, callapi.CacheReplace, strings.Repeat("x", 40)), "the discriminator is part of the digest")

	tiny := &cachekey.Deriver{Prefix: "feed", MaxLength: 4}
	assert.Len(t, tiny.Key(5, callapi.CacheReplace, "long enough"), cachekey.MinMaxLength)
}
