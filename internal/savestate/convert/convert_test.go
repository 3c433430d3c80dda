package convert

import (
	"math"
	"testing"

	"github.com/l1jgo/worldsave/internal/savestate/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec3 struct{ X, Y, Z float32 }

type gold int64

func vec3Converter() Converter[vec3] {
	return FloatsOf(3,
		func(v vec3) []float64 { return []float64{float64(v.X), float64(v.Y), float64(v.Z)} },
		func(fs []float64) vec3 { return vec3{float32(fs[0]), float32(fs[1]), float32(fs[2])} },
	)
}

func TestRegistry_ExactTypeLookup(t *testing.T) {
	r := NewRegistry()
	Register(r, vec3Converter())

	c, ok := Lookup[vec3](r)
	require.True(t, ok)
	assert.Equal(t, record.KindFloats, c.SurrogateKind())

	_, ok = Lookup[*vec3](r)
	assert.False(t, ok, "pointer type is a different type")

	type otherVec vec3
	_, ok = Lookup[otherVec](r)
	assert.False(t, ok, "named type over the same layout is not the same type")

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"convert.vec3"}, r.Types())
}

func TestLookup_NilRegistry(t *testing.T) {
	_, ok := Lookup[vec3](nil)
	assert.False(t, ok)
}

func TestFloatsOf_RoundTripAndArity(t *testing.T) {
	c := vec3Converter()
	v, err := c.ToSurrogate(vec3{1, 2, 3})
	require.NoError(t, err)

	back, err := c.FromSurrogate(v)
	require.NoError(t, err)
	assert.Equal(t, vec3{1, 2, 3}, back)

	_, err = c.FromSurrogate(record.Floats([]float64{1, 2}))
	assert.Error(t, err)

	_, err = c.FromSurrogate(record.Int(1))
	assert.ErrorIs(t, err, record.ErrKindMismatch)
}

func TestNative_ExactStaticType(t *testing.T) {
	_, ok := Native[int]()
	assert.True(t, ok)
	_, ok = Native[gold]()
	assert.False(t, ok, "named int is not native")
	_, ok = Native[vec3]()
	assert.False(t, ok)
	_, ok = Native[any]()
	assert.False(t, ok)
	_, ok = Native[map[string]int]()
	assert.False(t, ok)
}

func roundTrip[T any](t *testing.T, in T) T {
	t.Helper()
	c, ok := Native[T]()
	require.True(t, ok, "native codec for %s", TypeName[T]())
	v, err := c.ToSurrogate(in)
	require.NoError(t, err)
	assert.Equal(t, c.SurrogateKind(), v.Kind())
	out, err := c.FromSurrogate(v)
	require.NoError(t, err)
	return out
}

func TestNative_RoundTrips(t *testing.T) {
	assert.Equal(t, true, roundTrip(t, true))
	assert.Equal(t, -7, roundTrip(t, -7))
	assert.Equal(t, int8(-128), roundTrip(t, int8(-128)))
	assert.Equal(t, int16(300), roundTrip(t, int16(300)))
	assert.Equal(t, int32(math.MinInt32), roundTrip(t, int32(math.MinInt32)))
	assert.Equal(t, int64(math.MaxInt64), roundTrip(t, int64(math.MaxInt64)))
	assert.Equal(t, uint(9), roundTrip(t, uint(9)))
	assert.Equal(t, uint8(255), roundTrip(t, uint8(255)))
	assert.Equal(t, uint16(65535), roundTrip(t, uint16(65535)))
	assert.Equal(t, uint32(7), roundTrip(t, uint32(7)))
	assert.Equal(t, uint64(math.MaxUint64), roundTrip(t, uint64(math.MaxUint64)))
	assert.Equal(t, float32(1.5), roundTrip(t, float32(1.5)))
	assert.Equal(t, 2.25, roundTrip(t, 2.25))
	assert.Equal(t, "hp", roundTrip(t, "hp"))
	assert.Equal(t, []byte{1, 2}, roundTrip(t, []byte{1, 2}))
	assert.Equal(t, []float32{1, 2}, roundTrip(t, []float32{1, 2}))
	assert.Equal(t, []float64{3}, roundTrip(t, []float64{3}))
	assert.Equal(t, []int64{-1}, roundTrip(t, []int64{-1}))
	assert.Equal(t, []string{"a"}, roundTrip(t, []string{"a"}))
}

func TestNative_RangeChecks(t *testing.T) {
	c8, _ := Native[int8]()
	_, err := c8.FromSurrogate(record.Int(128))
	assert.ErrorIs(t, err, ErrRange)

	cu8, _ := Native[uint8]()
	_, err = cu8.FromSurrogate(record.Uint(256))
	assert.ErrorIs(t, err, ErrRange)

	cf, _ := Native[float32]()
	_, err = cf.FromSurrogate(record.Float(math.MaxFloat64))
	assert.ErrorIs(t, err, ErrRange)

	ci, _ := Native[int]()
	_, err = ci.FromSurrogate(record.String("7"))
	assert.ErrorIs(t, err, record.ErrKindMismatch)
}

func TestResolve_Order(t *testing.T) {
	r := NewRegistry()
	Register(r, Funcs[int]{
		Kind: record.KindString,
		To:   func(int) (record.Value, error) { return record.String("shadow"), nil },
		From: func(record.Value) (int, error) { return 0, nil },
	})
	Register(r, vec3Converter())

	c, native, ok := Resolve[int](r)
	require.True(t, ok)
	assert.True(t, native, "native codec wins over a registered converter")
	assert.Equal(t, record.KindInt, c.SurrogateKind())

	_, native, ok = Resolve[vec3](r)
	assert.True(t, ok)
	assert.False(t, native)

	_, _, ok = Resolve[gold](r)
	assert.False(t, ok)
}
