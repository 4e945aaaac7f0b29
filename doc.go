// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package armunwind translates textual STACK CFI records, as emitted by a
// symbolizer for 32-bit ARM binaries, into the two binary tables an
// on-device unwinder needs: an unwind instruction table of deduplicated
// ARM EHABI opcode sequences, and a function offset table mapping each
// function's code offsets into that table.
//
// Build is the entry point:
//
//	lines, err := armunwind.ReadLines("libfoo.so.sym", nil)
//	result, err := armunwind.Build(lines, nil)
//	// result.InstructionTable.Bytes and result.OffsetTable.Bytes are the
//	// two tables to embed in the shipped binary.
package armunwind
