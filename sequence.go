// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import "sort"

// buildEncodedAddressUnwinds implements the Sequence Builder (spec §4.5):
// sort a function's AddressUnwinds descending by AddressOffset, encode
// each action, then compute cumulative suffixes so the highest-offset
// entry carries the full prologue reversal (its own action plus every
// lower-offset action down to 0) and the offset-0 entry carries only its
// own action.
func buildEncodedAddressUnwinds(fn FunctionUnwind) (encodedAddressUnwindGroup, error) {
	sorted := make([]AddressUnwind, len(fn.AddressUnwinds))
	copy(sorted, fn.AddressUnwinds)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].AddressOffset > sorted[j].AddressOffset
	})

	instructions := make([][]byte, len(sorted))
	for i, au := range sorted {
		b, err := encodeAddressUnwind(au.Action)
		if err != nil {
			return nil, err
		}
		instructions[i] = b
	}

	// Build suffixes from the tail backward: suffix[n-1] = instructions[n-1],
	// suffix[i] = instructions[i] ++ suffix[i+1].
	group := make(encodedAddressUnwindGroup, len(sorted))
	var suffix []byte
	for i := len(sorted) - 1; i >= 0; i-- {
		combined := make([]byte, 0, len(instructions[i])+len(suffix))
		combined = append(combined, instructions[i]...)
		combined = append(combined, suffix...)
		suffix = combined
		group[i] = EncodedAddressUnwind{
			AddressOffset:               sorted[i].AddressOffset,
			CompleteInstructionSequence: combined,
		}
	}

	return group, nil
}
