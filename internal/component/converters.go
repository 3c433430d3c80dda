package component

import (
	"time"

	"github.com/l1jgo/worldsave/internal/savestate/convert"
	"github.com/l1jgo/worldsave/internal/savestate/record"
)

// RegisterConverters installs the converters for the value types used by
// this package's components. Call once at start-up, before the first scan.
func RegisterConverters(reg *convert.Registry) {
	convert.Register(reg, convert.FloatsOf(2,
		func(v Vec2) []float64 { return f64(v.X, v.Y) },
		func(f []float64) Vec2 { return Vec2{float32(f[0]), float32(f[1])} },
	))
	convert.Register(reg, convert.FloatsOf(3,
		func(v Vec3) []float64 { return f64(v.X, v.Y, v.Z) },
		vec3Of,
	))
	convert.Register(reg, convert.FloatsOf(4,
		func(v Vec4) []float64 { return f64(v.X, v.Y, v.Z, v.W) },
		func(f []float64) Vec4 { return Vec4{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])} },
	))
	convert.Register(reg, convert.FloatsOf(4,
		func(q Quat) []float64 { return f64(q.X, q.Y, q.Z, q.W) },
		quatOf,
	))
	convert.Register(reg, convert.FloatsOf(10,
		func(p Pose) []float64 {
			return f64(
				p.Position.X, p.Position.Y, p.Position.Z,
				p.Rotation.X, p.Rotation.Y, p.Rotation.Z, p.Rotation.W,
				p.Scale.X, p.Scale.Y, p.Scale.Z,
			)
		},
		func(f []float64) Pose {
			return Pose{Position: vec3Of(f[0:3]), Rotation: quatOf(f[3:7]), Scale: vec3Of(f[7:10])}
		},
	))
	convert.Register[time.Duration](reg, convert.Funcs[time.Duration]{
		Kind: record.KindInt,
		To: func(d time.Duration) (record.Value, error) {
			return record.Int(int64(d)), nil
		},
		From: func(v record.Value) (time.Duration, error) {
			n, err := v.AsInt()
			return time.Duration(n), err
		},
	})
}

func f64(vs ...float32) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

func vec3Of(f []float64) Vec3 { return Vec3{float32(f[0]), float32(f[1]), float32(f[2])} }
func quatOf(f []float64) Quat { return Quat{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])} }
