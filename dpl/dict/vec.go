package dict

import "fmt"

// MaxRanges bounds the number of byte-range pairs a single request can carry,
// matching the small reference bound spec.md calls out for add_range.
const MaxRanges = 8

// ByteRange is a single HTTP byte-range; either bound may be unset, meaning
// "open" on that side. Start==-1 means "no start", End==-1 means "no end".
type ByteRange struct {
	Start int64
	End   int64
}

const unset = -1

// NoStart and NoEnd construct the "open" sentinels.
func NoStart() int64 { return unset }
func NoEnd() int64   { return unset }

// HasStart/HasEnd report whether a bound is set.
func (r ByteRange) HasStart() bool { return r.Start != unset }
func (r ByteRange) HasEnd() bool   { return r.End != unset }

// Header renders the Range: bytes=... value for this single range.
// At least one bound must be set.
func (r ByteRange) Header() (string, error) {
	switch {
	case r.HasStart() && r.HasEnd():
		return fmt.Sprintf("bytes=%d-%d", r.Start, r.End), nil
	case r.HasStart():
		return fmt.Sprintf("bytes=%d-", r.Start), nil
	case r.HasEnd():
		return fmt.Sprintf("bytes=-%d", r.End), nil
	default:
		return "", fmt.Errorf("range has neither start nor end")
	}
}

// RangeVec is a bounded, append-only vector of byte ranges.
type RangeVec struct {
	ranges []ByteRange
}

// Add appends a range; returns an error once MaxRanges is reached.
func (v *RangeVec) Add(r ByteRange) error {
	if len(v.ranges) >= MaxRanges {
		return fmt.Errorf("too many ranges (max %d)", MaxRanges)
	}
	if !r.HasStart() && !r.HasEnd() {
		return fmt.Errorf("range has neither start nor end")
	}
	v.ranges = append(v.ranges, r)
	return nil
}

// Len, At, and All give read access to the staged ranges.
func (v *RangeVec) Len() int            { return len(v.ranges) }
func (v *RangeVec) At(i int) ByteRange  { return v.ranges[i] }
func (v *RangeVec) All() []ByteRange    { return v.ranges }
func (v *RangeVec) Empty() bool         { return len(v.ranges) == 0 }
