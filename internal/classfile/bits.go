/*
 * minijvm - a minimal Java Virtual Machine
 */

package classfile

import "math"

func bitsToFloat32(bits uint32) float32 { return math.Float32frombits(bits) }

func bitsToFloat64(bits uint64) float64 { return math.Float64frombits(bits) }
