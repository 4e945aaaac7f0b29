// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

// The ARM EHABI unwind opcode subset this encoder emits, bit-exact
// (spec §6), named the way exception.go names its UWOP_* constants.
const (
	// opFinish marks "no further unwinding, return via lr".
	opFinish = byte(0xB0)

	// opSpLargeTag, followed by a ULEB128, is vsp += 0x204 + (value<<2).
	opSpLargeTag = byte(0xB2)

	// opPopLrBase | (k-1) pops r4..r(4+k-1) and r14, contiguous run form.
	opPopLrBase = byte(0xA8)

	// opPopMaskBase | (bits>>8) then bits&0xFF is the two-byte pop-by-mask form.
	opPopMaskBase = byte(0x80)

	// opSetSpFromRegBase | K sets vsp = r[K].
	opSetSpFromRegBase = byte(0x90)

	// spDeltaPositiveBase / spDeltaNegativeBase select the sign of a
	// one-or-two-byte sp delta instruction.
	spDeltaPositiveBase = byte(0x00)
	spDeltaNegativeBase = byte(0x40)
)

// encodeStackPointerUpdate implements EncodeStackPointerUpdate (spec §4.4).
// Precondition: offset % 4 == 0, offset >= -0x204.
func encodeStackPointerUpdate(offset int32) ([]byte, error) {
	if offset%4 != 0 {
		return nil, encodingRangef("sp delta %d not a multiple of 4", offset)
	}
	if offset < -0x204 {
		return nil, encodingRangef("sp delta %d below -0x204", offset)
	}

	abs := offset
	base := spDeltaPositiveBase
	if offset < 0 {
		abs = -offset
		base = spDeltaNegativeBase
	}

	if abs >= 4 && abs <= 0x200 {
		first := abs
		if first > 0x100 {
			first = 0x100
		}
		out := []byte{base | byte((first-4)>>2)}
		if abs > 0x100 {
			out = append(out, base|byte((abs-0x100-4)>>2))
		}
		return out, nil
	}

	if offset <= 0 {
		return nil, encodingRangef("sp delta %d requires the extended positive form", offset)
	}

	payload, err := uleb128EncodeSigned(int64(offset-0x204) >> 2)
	if err != nil {
		return nil, err
	}
	return append([]byte{opSpLargeTag}, payload...), nil
}

// encodePop implements EncodePop (spec §4.4). registers must be non-empty
// and every entry in [4,15].
func encodePop(registers []uint8) ([]byte, error) {
	if len(registers) == 0 {
		return nil, registerDomainf("empty pop set")
	}
	for _, r := range registers {
		if r < 4 || r > 15 {
			return nil, registerDomainf("register r%d outside [4,15]", r)
		}
	}

	hasLr := false
	nonLr := make([]uint8, 0, len(registers))
	for _, r := range registers {
		if r == 14 {
			hasLr = true
		} else {
			nonLr = append(nonLr, r)
		}
	}

	if hasLr && len(nonLr) > 0 && len(nonLr) <= 8 && isContiguousFromR4(nonLr) {
		return []byte{opPopLrBase | byte(len(nonLr)-1)}, nil
	}

	var bits uint32
	for _, r := range registers {
		bits |= 1 << r
	}
	bits >>= 4
	return []byte{
		opPopMaskBase | byte(bits>>8),
		byte(bits & 0xFF),
	}, nil
}

// isContiguousFromR4 reports whether sorted contains exactly r4..r(4+n-1).
func isContiguousFromR4(sorted []uint8) bool {
	for i, r := range sorted {
		if r != uint8(4+i) {
			return false
		}
	}
	return true
}

// encodeAddressUnwind implements the composite encoding from spec §4.4 for
// a single normalized action.
func encodeAddressUnwind(action UnwindType) ([]byte, error) {
	switch action.Kind {
	case ReturnToLr:
		return []byte{opFinish}, nil

	case UpdateSpAndOrPopRegisters:
		var out []byte
		if action.SpOffset != 0 {
			spBytes, err := encodeStackPointerUpdate(action.SpOffset)
			if err != nil {
				return nil, err
			}
			out = append(out, spBytes...)
		}
		if len(action.Registers) > 0 {
			popBytes, err := encodePop(action.Registers)
			if err != nil {
				return nil, err
			}
			out = append(out, popBytes...)
		}
		if len(out) == 0 {
			return nil, invariantf("UpdateSpAndOrPopRegisters with zero sp delta and no registers")
		}
		return out, nil

	case RestoreSpFromRegister:
		if action.SourceRegister > 0x0F {
			return nil, registerDomainf("source register r%d does not fit a 4-bit field", action.SourceRegister)
		}
		out := []byte{opSetSpFromRegBase | action.SourceRegister}
		if action.SpOffset != 0 {
			spBytes, err := encodeStackPointerUpdate(action.SpOffset)
			if err != nil {
				return nil, err
			}
			out = append(out, spBytes...)
		}
		return out, nil

	case NoAction:
		return nil, nil

	default:
		return nil, invariantf("unknown unwind kind %d", action.Kind)
	}
}
