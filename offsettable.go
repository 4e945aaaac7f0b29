// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import "encoding/binary"

// FunctionOffsetTable is the byte blob produced by the Function Offset
// Table Encoder (spec §4.7), plus the map from each distinct per-function
// sequence group to its starting byte offset within Bytes.
type FunctionOffsetTable struct {
	Bytes []byte

	// Offsets is keyed by groupKey(group), since a []EncodedAddressUnwind
	// slice is not itself comparable/hashable.
	Offsets map[string]uint32
}

// groupKey returns a canonical string uniquely identifying a sequence
// group's content, for use as a deduplication map key. It encodes each
// entry's address offset and raw instruction bytes so that two groups
// with identical (offset, sequence) pairs — and only those — collide.
func groupKey(group encodedAddressUnwindGroup) string {
	buf := make([]byte, 0, len(group)*8)
	var scratch [4]byte
	for _, e := range group {
		binary.LittleEndian.PutUint32(scratch[:], e.AddressOffset)
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(e.CompleteInstructionSequence)))
		buf = append(buf, scratch[:]...)
		buf = append(buf, e.CompleteInstructionSequence...)
	}
	return string(buf)
}

// buildFunctionOffsetTable implements the Function Offset Table Encoder
// (spec §4.7). groups must be in original function order; the encoder
// preserves that order and deduplicates at group granularity, writing the
// first occurrence of each distinct group and reusing its offset for
// later identical groups.
func buildFunctionOffsetTable(
	groups []encodedAddressUnwindGroup,
	instructionOffsets map[string]uint32,
) (FunctionOffsetTable, error) {
	var buf []byte
	offsets := make(map[string]uint32, len(groups))

	for _, group := range groups {
		key := groupKey(group)
		if _, ok := offsets[key]; ok {
			continue
		}
		offsets[key] = uint32(len(buf))

		for _, e := range group {
			addrBytes, err := uleb128EncodeSigned(int64(e.AddressOffset))
			if err != nil {
				return FunctionOffsetTable{}, err
			}
			instrOffset, ok := instructionOffsets[string(e.CompleteInstructionSequence)]
			if !ok {
				return FunctionOffsetTable{}, invariantf(
					"sequence at address_offset=0x%x missing from instruction table", e.AddressOffset)
			}
			offsetBytes := uleb128Encode(uint64(instrOffset))

			buf = append(buf, addrBytes...)
			buf = append(buf, offsetBytes...)
		}
	}

	return FunctionOffsetTable{Bytes: buf, Offsets: offsets}, nil
}
