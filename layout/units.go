package layout

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	pstrconv "github.com/tdewolff/parse/v2/strconv"
)

// This file defines unit-safe types and helpers for length and line-height.

// Unit represents the original unit of a length value as written in a fragment.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitX                // factor of the current font size, e.g. 1.4x
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

func unitFromString(s string) (Unit, bool) {
	switch strings.ToLower(s) {
	case "":
		return UnitNone, true
	case "mm":
		return UnitMM, true
	case "cm":
		return UnitCM, true
	case "in":
		return UnitIN, true
	case "pt":
		return UnitPT, true
	case "x":
		return UnitX, true
	default:
		return UnitNone, false
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// To converts this length to target unit. Supported targets: UnitMM, UnitPT.
// 无单位数值按目标单位原样返回；UnitX 需要字号参与，请使用 Resolve。
func (l Length) To(target Unit) float64 {
	var mm float64
	switch l.Unit {
	case UnitMM:
		mm = l.Value
	case UnitCM:
		mm = l.Value * 10
	case UnitIN:
		mm = l.Value * 25.4
	case UnitPT:
		if target == UnitPT {
			return l.Value
		}
		mm = l.Value * PtToMm
	default:
		return l.Value
	}
	if target == UnitPT {
		return mm * MmToPt
	}
	return mm
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }

// Resolve 以 fontSize（mm）为基准换算为 mm，UnitX 按倍数处理，无单位按 pt 处理。
func (l Length) Resolve(fontSize float64) float64 {
	switch l.Unit {
	case UnitX:
		return l.Value * fontSize
	case UnitNone:
		return l.Value * PtToMm
	default:
		return l.ToMM()
	}
}

// ParseRawLengthStr parses a length string preserving its unit.
// 无法识别的单位或数字返回零值 Length{0, UnitNone} 与 false。
func ParseRawLengthStr(value string) (Length, bool) {
	b := []byte(strings.TrimSpace(value))
	if len(b) == 0 {
		return Length{}, false
	}
	n, u := parse.Dimension(b)
	if n == 0 || n+u != len(b) {
		return Length{}, false
	}
	f, m := pstrconv.ParseFloat(b[:n])
	if m != n {
		return Length{}, false
	}
	unit, ok := unitFromString(string(b[n : n+u]))
	if !ok {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// DefaultLeading 是未指定行高时的倍数。
const DefaultLeading = 1.2

// LineHeightSpec preserves author intent: either a factor (e.g., 1.2x) or an absolute length (e.g., 18pt).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight 解析 "1.4x"、"1.4" 或 "18pt" 形式的行高。
func ParseLineHeight(value string) (LineHeightSpec, bool) {
	l, ok := ParseRawLengthStr(value)
	if !ok || l.Value <= 0 {
		return LineHeightSpec{}, false
	}
	if l.Unit == UnitX || l.Unit == UnitNone {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, true
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, true
}

// Resolve computes the absolute line height in mm using the given fontSize in mm.
func (s LineHeightSpec) Resolve(fontSize float64) float64 {
	switch s.Kind {
	case LineHeightFactor:
		if s.Factor > 0 {
			return fontSize * s.Factor
		}
	case LineHeightAbsolute:
		return s.Len.ToMM()
	}
	return fontSize * DefaultLeading
}
