// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import "testing"

func TestUleb128EncodeZero(t *testing.T) {
	got := uleb128Encode(0)
	want := []byte{0x00}
	if !bytesEqual(got, want) {
		t.Fatalf("uleb128Encode(0) = % x, want % x", got, want)
	}
}

func TestUleb128RoundTrip(t *testing.T) {
	tests := []uint64{
		0, 1, 2, 63, 64, 127, 128, 129, 255, 256, 16383, 16384, 1 << 20, 1 << 34, 1 << 35,
	}

	for _, n := range tests {
		encoded := uleb128Encode(n)
		got, consumed := uleb128Decode(encoded)
		if got != n {
			t.Errorf("decode(encode(%d)) = %d, want %d", n, got, n)
		}
		if consumed != len(encoded) {
			t.Errorf("decode(encode(%d)) consumed %d bytes, want %d", n, consumed, len(encoded))
		}
		for i, b := range encoded {
			if i < len(encoded)-1 && b&0x80 == 0 {
				t.Errorf("encode(%d) has cleared continuation bit before the last byte: % x", n, encoded)
			}
			if i == len(encoded)-1 && b&0x80 != 0 {
				t.Errorf("encode(%d) has set continuation bit on the last byte: % x", n, encoded)
			}
		}
	}
}

func TestUleb128EncodeSignedRejectsNegative(t *testing.T) {
	if _, err := uleb128EncodeSigned(-1); err == nil {
		t.Fatal("uleb128EncodeSigned(-1) succeeded, want error")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
