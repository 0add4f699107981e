// Package field provides a declarative, MSB-first bit-field matcher used
// by every instruction kind's decode step. It generalizes the teacher's
// hand-written DecodeOpcode/DecodeRA/DecodeRB shift-and-mask helpers
// (pkg/vm/vm.go) into a small ordered-spec matcher so each instruction
// kind's decode form reads as a flat field layout instead of repeated
// shift arithmetic.
package field

// Spec describes one fixed-width field within a 32-bit instruction word,
// read MSB-first (the first Spec in a ReadFields call covers the most
// significant bits of the word).
type Spec struct {
	width   uint
	pattern uint32
	out     *uint32
	isConst bool
}

// Const declares a fixed-width field whose value must equal pattern for
// the match to succeed. The field's bits are not captured.
func Const(width uint, pattern uint32) Spec {
	return Spec{width: width, pattern: pattern, isConst: true}
}

// Bits declares a fixed-width field whose value is captured into *out
// when the match succeeds. Bits fields always match, regardless of value.
func Bits(width uint, out *uint32) Spec {
	return Spec{width: width, out: out, isConst: false}
}

// ReadFields matches word against the ordered field specs, MSB-first.
// It returns false (leaving *out variables from Bits specs in a partial,
// unspecified state) as soon as a Const field's pattern doesn't match or
// the specs don't exactly cover all 32 bits. On success every Bits field
// has been written with its extracted value.
func ReadFields(word uint32, specs ...Spec) bool {
	var totalWidth uint
	for _, s := range specs {
		totalWidth += s.width
	}
	if totalWidth != 32 {
		return false
	}

	shift := uint(32)
	for _, s := range specs {
		shift -= s.width
		mask := uint32(1)<<s.width - 1
		value := (word >> shift) & mask
		if s.isConst {
			if value != s.pattern&mask {
				return false
			}
			continue
		}
		*s.out = value
	}
	return true
}
