// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"bytes"
	"sort"
)

// UnwindInstructionTable is the packed, deduplicated byte blob produced by
// the Unwind Instruction Table Packer (spec §4.6), plus the map from each
// distinct complete sequence to its starting byte offset within Bytes.
type UnwindInstructionTable struct {
	Bytes   []byte
	Offsets map[string]uint32
}

// packUnwindInstructionTable deduplicates sequences across all functions
// and lays them out under the count/length greedy heuristic from spec
// §4.6. Scoring ties are broken by the sequence's own bytes, so the final
// layout is deterministic regardless of the order of sequences.
func packUnwindInstructionTable(sequences [][]byte) UnwindInstructionTable {
	type counted struct {
		seq   []byte
		count int
	}

	refCounts := map[string]*counted{}
	var order []string
	for _, seq := range sequences {
		key := string(seq)
		c, ok := refCounts[key]
		if !ok {
			c = &counted{seq: seq}
			refCounts[key] = c
			order = append(order, key)
		}
		c.count++
	}

	distinct := make([]*counted, 0, len(order))
	for _, key := range order {
		distinct = append(distinct, refCounts[key])
	}

	// score(s) = count(s) / length(s), descending; ties broken by the
	// sequence's own bytes ascending, for build-time determinism (spec
	// §4.6 step 2, §9 "Determinism under deduplication").
	sort.Slice(distinct, func(i, j int) bool {
		si, sj := distinct[i], distinct[j]
		// Compare si.count/len(si.seq) vs sj.count/len(sj.seq) without
		// floating point: cross-multiply. An empty sequence (a function
		// whose only action is NoAction) therefore sorts first.
		lhs := int64(si.count) * int64(len(sj.seq))
		rhs := int64(sj.count) * int64(len(si.seq))
		if lhs != rhs {
			return lhs > rhs
		}
		return bytes.Compare(si.seq, sj.seq) < 0
	})

	var buf []byte
	offsets := make(map[string]uint32, len(distinct))
	for _, c := range distinct {
		offsets[string(c.seq)] = uint32(len(buf))
		buf = append(buf, c.seq...)
	}

	return UnwindInstructionTable{Bytes: buf, Offsets: offsets}
}
