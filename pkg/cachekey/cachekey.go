// Package cachekey derives deterministic cache keys from a call discriminator
// and its parameters.
package cachekey

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/illmade-knight/go-callapi/pkg/callapi"
)

// Separator joins key segments.
const Separator = "::"

// DefaultMaxLength is the longest key a Deriver emits before compacting it.
const DefaultMaxLength = 250

// MinMaxLength is the length of a fully hashed key, the shortest a Deriver
// can emit.
const MinMaxLength = len(digestPrefix) + 16

const digestPrefix = "h:"

// Deriver builds keys of the form prefix::what::param::param. String values
// are quoted and nil is written unquoted, so distinct parameter lists never
// share a key. Keys longer than MaxLength keep their prefix and discriminator
// and replace the parameters with their xxhash digest; if that is still too
// long the whole key is replaced by its digest.
type Deriver struct {
	// Prefix is the leading segment. It may be empty.
	Prefix string
	// MaxLength bounds the key length; zero means DefaultMaxLength and a
	// negative value disables compaction. Limits below MinMaxLength are
	// raised to it.
	MaxLength int
	// IncludeMode adds the cache mode as a segment after the discriminator.
	// Leave it off when append and replace requests must share an entry.
	IncludeMode bool
}

// New returns a Deriver with the given prefix and default limits.
func New(prefix string) *Deriver {
	return &Deriver{Prefix: prefix}
}

// Key derives the key for one request.
func (d *Deriver) Key(what int, mode callapi.CacheMode, params ...any) string {
	head := make([]string, 0, 3)
	if d.Prefix != "" {
		head = append(head, d.Prefix)
	}
	head = append(head, strconv.Itoa(what))
	if d.IncludeMode {
		head = append(head, mode.String())
	}

	segments := make([]string, len(params))
	for i, p := range params {
		segments[i] = serialize(p)
	}

	key := strings.Join(append(head, segments...), Separator)
	limit := d.MaxLength
	if limit == 0 {
		limit = DefaultMaxLength
	}
	if limit < 0 || len(key) <= limit {
		return key
	}

	compacted := strings.Join(append(head, digest(strings.Join(segments, Separator))), Separator)
	if len(compacted) <= max(limit, MinMaxLength) {
		return compacted
	}
	return digest(key)
}

func digest(s string) string {
	return fmt.Sprintf("%s%016x", digestPrefix, xxhash.Sum64String(s))
}

// Func returns Key in the shape expected by callapi.Listener.CacheKey.
func (d *Deriver) Func() func(what int, mode callapi.CacheMode, params ...any) string {
	return d.Key
}

func serialize(v any) string {
	return serializeValue(reflect.ValueOf(v))
}

func serializeValue(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Invalid:
		return "nil"
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return serializeValue(rv.Elem())
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(rv.Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "nil"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = serializeValue(rv.Index(i))
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		if rv.IsNil() {
			return "nil"
		}
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, serializeValue(iter.Key())+"="+serializeValue(iter.Value()))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, ",") + "}"
	case reflect.Struct:
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return strconv.Quote(s.String())
		}
	}

	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			return string(data)
		}
	}
	return rv.Type().String()
}
