package convert

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/l1jgo/worldsave/internal/savestate/record"
)

// ErrRange is returned when a stored number does not fit the member's type.
var ErrRange = errors.New("convert: value out of range")

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Native returns the built-in codec when T is natively persistable. The
// match is on the exact static type: a named type such as
// `type Gold int64` is not native and needs a registered converter.
func Native[T any]() (Converter[T], bool) {
	var zero T
	var c any
	switch any(zero).(type) {
	case bool:
		c = Funcs[bool]{Kind: record.KindBool, To: toValue(record.Bool), From: record.Value.AsBool}
	case int:
		c = intConv[int](strconv.IntSize)
	case int8:
		c = intConv[int8](8)
	case int16:
		c = intConv[int16](16)
	case int32:
		c = intConv[int32](32)
	case int64:
		c = intConv[int64](64)
	case uint:
		c = uintConv[uint](strconv.IntSize)
	case uint8:
		c = uintConv[uint8](8)
	case uint16:
		c = uintConv[uint16](16)
	case uint32:
		c = uintConv[uint32](32)
	case uint64:
		c = uintConv[uint64](64)
	case float32:
		c = float32Conv
	case float64:
		c = Funcs[float64]{Kind: record.KindFloat, To: toValue(record.Float), From: record.Value.AsFloat}
	case string:
		c = Funcs[string]{Kind: record.KindString, To: toValue(record.String), From: record.Value.AsString}
	case []byte:
		c = Funcs[[]byte]{Kind: record.KindBytes, To: toValue(record.Bytes), From: record.Value.AsBytes}
	case []float32:
		c = float32sConv
	case []float64:
		c = Funcs[[]float64]{Kind: record.KindFloats, To: toValue(record.Floats), From: record.Value.AsFloats}
	case []int64:
		c = Funcs[[]int64]{Kind: record.KindInts, To: toValue(record.Ints), From: record.Value.AsInts}
	case []string:
		c = Funcs[[]string]{Kind: record.KindStrings, To: toValue(record.Strings), From: record.Value.AsStrings}
	default:
		return nil, false
	}
	return c.(Converter[T]), true
}

func toValue[T any](fn func(T) record.Value) func(T) (record.Value, error) {
	return func(v T) (record.Value, error) { return fn(v), nil }
}

func intConv[I signed](bits int) Funcs[I] {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if bits < 64 {
		lo, hi = -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
	}
	return Funcs[I]{
		Kind: record.KindInt,
		To: func(v I) (record.Value, error) {
			return record.Int(int64(v)), nil
		},
		From: func(v record.Value) (I, error) {
			i, err := v.AsInt()
			if err != nil {
				return 0, err
			}
			if i < lo || i > hi {
				return 0, fmt.Errorf("%w: %d does not fit in %d bits", ErrRange, i, bits)
			}
			return I(i), nil
		},
	}
}

func uintConv[U unsigned](bits int) Funcs[U] {
	hi := uint64(math.MaxUint64)
	if bits < 64 {
		hi = uint64(1)<<bits - 1
	}
	return Funcs[U]{
		Kind: record.KindUint,
		To: func(v U) (record.Value, error) {
			return record.Uint(uint64(v)), nil
		},
		From: func(v record.Value) (U, error) {
			u, err := v.AsUint()
			if err != nil {
				return 0, err
			}
			if u > hi {
				return 0, fmt.Errorf("%w: %d does not fit in %d bits", ErrRange, u, bits)
			}
			return U(u), nil
		},
	}
}

func narrowFloat(f float64) (float32, error) {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("%w: %g does not fit in float32", ErrRange, f)
	}
	return float32(f), nil
}

var float32Conv = Funcs[float32]{
	Kind: record.KindFloat,
	To: func(v float32) (record.Value, error) {
		return record.Float(float64(v)), nil
	},
	From: func(v record.Value) (float32, error) {
		f, err := v.AsFloat()
		if err != nil {
			return 0, err
		}
		return narrowFloat(f)
	},
}

var float32sConv = Funcs[[]float32]{
	Kind: record.KindFloats,
	To: func(v []float32) (record.Value, error) {
		fs := make([]float64, len(v))
		for i, f := range v {
			fs[i] = float64(f)
		}
		return record.Floats(fs), nil
	},
	From: func(v record.Value) ([]float32, error) {
		fs, err := v.AsFloats()
		if err != nil {
			return nil, err
		}
		out := make([]float32, len(fs))
		for i, f := range fs {
			if out[i], err = narrowFloat(f); err != nil {
				return nil, err
			}
		}
		return out, nil
	},
}
