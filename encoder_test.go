// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"reflect"
	"testing"
)

func TestEncodeAddressUnwindReturnToLr(t *testing.T) {
	got, err := encodeAddressUnwind(UnwindType{Kind: ReturnToLr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0xB0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeAddressUnwindPushFourRegistersAndLr(t *testing.T) {
	// S2-shaped action: sp += 16, then pop r4..r7, lr. The finish byte is
	// not part of this action; it comes from the function's ReturnToLr entry.
	got, err := encodeAddressUnwind(UnwindType{
		Kind:      UpdateSpAndOrPopRegisters,
		SpOffset:  16,
		Registers: []uint8{4, 5, 6, 7, 14},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x03, 0xAB}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeAddressUnwindStoreSp(t *testing.T) {
	// S4: store sp to r7, then sp += 16.
	got, err := encodeAddressUnwind(UnwindType{
		Kind:           RestoreSpFromRegister,
		SourceRegister: 7,
		SpOffset:       16,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x97, 0x03}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeAddressUnwindNoAction(t *testing.T) {
	got, err := encodeAddressUnwind(UnwindType{Kind: NoAction})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got % x, want empty", got)
	}
}

func TestEncodeAddressUnwindRejectsEmptyUpdate(t *testing.T) {
	_, err := encodeAddressUnwind(UnwindType{Kind: UpdateSpAndOrPopRegisters})
	if err == nil {
		t.Fatal("expected invariant error for zero sp delta and no registers")
	}
}

func TestEncodeStackPointerUpdateSmallPositive(t *testing.T) {
	got, err := encodeStackPointerUpdate(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x03}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeStackPointerUpdateTwoByteForm(t *testing.T) {
	// abs=0x180 > 0x100, so it needs the two-byte form.
	got, err := encodeStackPointerUpdate(0x180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got % x, want 2 bytes", got)
	}
	first := byte((0x100 - 4) >> 2)
	second := byte((0x180 - 0x100 - 4) >> 2)
	want := []byte{first, second}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeStackPointerUpdateNegative(t *testing.T) {
	got, err := encodeStackPointerUpdate(-16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x40 | 0x03}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeStackPointerUpdateExtendedForm(t *testing.T) {
	got, err := encodeStackPointerUpdate(0x300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPayload := uleb128Encode(uint64((0x300 - 0x204) >> 2))
	want := append([]byte{0xB2}, wantPayload...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodeStackPointerUpdateRejectsUnaligned(t *testing.T) {
	if _, err := encodeStackPointerUpdate(15); err == nil {
		t.Fatal("expected error for non-multiple-of-4 offset")
	}
}

func TestEncodeStackPointerUpdateRejectsBelowFloor(t *testing.T) {
	if _, err := encodeStackPointerUpdate(-0x208); err == nil {
		t.Fatal("expected error for offset below -0x204")
	}
}

func TestEncodeStackPointerUpdateBijective(t *testing.T) {
	// spec §8.7: every offset in this range round-trips through a decoder
	// modeled on the ARM EHABI reference semantics. Zero itself has no
	// encoding (every opcode moves vsp by at least 4).
	for offset := int32(-0x200); offset <= 0x200; offset += 4 {
		if offset == 0 {
			continue
		}
		encoded, err := encodeStackPointerUpdate(offset)
		if err != nil {
			t.Fatalf("offset=%d: unexpected error: %v", offset, err)
		}
		got, err := decodeSpDelta(encoded)
		if err != nil {
			t.Fatalf("offset=%d: decode error: %v", offset, err)
		}
		if got != offset {
			t.Fatalf("offset=%d round-tripped to %d (bytes % x)", offset, got, encoded)
		}
	}

	for offset := int32(0x204); offset <= 0x10_0000; offset += 4 {
		encoded, err := encodeStackPointerUpdate(offset)
		if err != nil {
			t.Fatalf("offset=%d: unexpected error: %v", offset, err)
		}
		got, err := decodeSpDelta(encoded)
		if err != nil {
			t.Fatalf("offset=%d: decode error: %v", offset, err)
		}
		if got != offset {
			t.Fatalf("offset=%d round-tripped to %d (bytes % x)", offset, got, encoded)
		}
	}
}

// decodeSpDelta is the reference-decoder inverse of encodeStackPointerUpdate,
// written independently against the ARM EHABI opcode meanings in spec §6,
// used only by tests to check the bijectivity law (spec §8.7).
func decodeSpDelta(b []byte) (int32, error) {
	if len(b) == 0 {
		return 0, encodingRangef("empty sp delta encoding")
	}

	if b[0] == 0xB2 {
		value, _ := uleb128Decode(b[1:])
		return int32(value)*4 + 0x204, nil
	}

	negative := b[0]&0xC0 == 0x40
	total := int32(0)
	for _, by := range b {
		field := int32(by & 0x3F)
		total += field<<2 + 4
	}
	if negative {
		return -total, nil
	}
	return total, nil
}

func TestEncodePopContiguousRun(t *testing.T) {
	got, err := encodePop([]uint8{4, 5, 6, 7, 14})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0xAB}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodePopContiguousRunWithoutLr(t *testing.T) {
	got, err := encodePop([]uint8{4, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No lr: mask form. bits = (1<<4 | 1<<5) >> 4 = 0b11.
	want := []byte{0x80, 0x03}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodePopMaskFormNonContiguous(t *testing.T) {
	got, err := encodePop([]uint8{4, 6, 14})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bits := (uint32(1)<<4 | uint32(1)<<6 | uint32(1)<<14) >> 4
	want := []byte{0x80 | byte(bits>>8), byte(bits & 0xFF)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestEncodePopRejectsEmpty(t *testing.T) {
	if _, err := encodePop(nil); err == nil {
		t.Fatal("expected error for empty pop set")
	}
}

func TestEncodePopRejectsOutOfDomainRegister(t *testing.T) {
	if _, err := encodePop([]uint8{2}); err == nil {
		t.Fatal("expected error for register outside [4,15]")
	}
	if _, err := encodePop([]uint8{16}); err == nil {
		t.Fatal("expected error for register outside [4,15]")
	}
}

func TestEncodePopPrefersContiguousRunOverMaskForm(t *testing.T) {
	// Both forms are applicable for r4..r9 + lr; the one-byte contiguous
	// form must win (spec §9, "Pop encoding choice").
	got, err := encodePop([]uint8{4, 5, 6, 7, 8, 9, 14})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got % x, want single-byte contiguous-run form", got)
	}
}
