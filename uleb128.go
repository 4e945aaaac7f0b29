// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

// uleb128Encode encodes a non-negative integer as Unsigned
// Little-Endian Base 128: the low 7 bits of each byte carry value bits,
// the high bit is set on every byte but the last. Zero encodes as a
// single 0x00 byte.
func uleb128Encode(value uint64) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// uleb128EncodeSigned is the entry point used by callers holding a
// mathematically non-negative value in a signed type (e.g. an address
// offset computed as an int64); it rejects genuinely negative input per
// spec §4.8 and §7 (EncodingRange).
func uleb128EncodeSigned(value int64) ([]byte, error) {
	if value < 0 {
		return nil, encodingRangef("negative ULEB128 input: %d", value)
	}
	return uleb128Encode(uint64(value)), nil
}

// uleb128Decode decodes a single ULEB128 value from the front of b,
// returning the value and the number of bytes consumed. It is not used by
// the encoding pipeline itself, but is kept alongside the encoder as the
// inverse operation the on-device unwinder and this package's own tests
// rely on to assert the round-trip law (spec §8.6).
func uleb128Decode(b []byte) (value uint64, consumed int) {
	var shift uint
	for _, by := range b {
		consumed++
		value |= uint64(by&0x7f) << shift
		if by&0x80 == 0 {
			break
		}
		shift += 7
	}
	return value, consumed
}
