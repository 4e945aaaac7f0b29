// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

// AddressCfi is one line of textual CFI at a specific code address.
type AddressCfi struct {
	Address uint32
	CfiText string
}

// FunctionCfi groups the CFI lines belonging to a single function.
//
// AddressCfi is never empty, AddressCfi[0].Address equals Address, and
// subsequent addresses strictly increase within [Address, Address+Size).
type FunctionCfi struct {
	Address    uint32
	Size       uint32
	AddressCfi []AddressCfi
}

// UnwindKind tags the four shapes an UnwindType can take.
type UnwindKind uint8

const (
	// ReturnToLr unwinds by returning via the link register.
	ReturnToLr UnwindKind = iota

	// UpdateSpAndOrPopRegisters adjusts sp by SpOffset, then pops Registers.
	UpdateSpAndOrPopRegisters

	// RestoreSpFromRegister sets sp from SourceRegister, then applies SpOffset.
	RestoreSpFromRegister

	// NoAction is a placeholder for floating-point activity with no runtime step.
	NoAction
)

// UnwindType is the normalized action produced by the CFI Parser Dispatch
// for a single address. Only the fields relevant to Kind are meaningful:
//
//	ReturnToLr:                 none.
//	UpdateSpAndOrPopRegisters:  SpOffset, Registers (sorted ascending, may be empty
//	                            individually but not both).
//	RestoreSpFromRegister:      SourceRegister, SpOffset.
//	NoAction:                   none.
type UnwindType struct {
	Kind           UnwindKind
	SpOffset       int32
	Registers      []uint8
	SourceRegister uint8
}

// AddressUnwind is a normalized unwind action at an offset from a
// function's start address.
type AddressUnwind struct {
	AddressOffset uint32
	Action        UnwindType
}

// FunctionUnwind is the normalized, per-address unwind information for one
// function.
type FunctionUnwind struct {
	Address        uint32
	Size           uint32
	AddressUnwinds []AddressUnwind
}

// EncodedAddressUnwind pairs an address offset with the complete
// instruction sequence needed to unwind from that offset: the concatenation
// of that address's opcode bytes and every lower-offset address's opcode
// bytes within the same function, down to offset 0. See Sequence Builder
// (spec §4.5).
type EncodedAddressUnwind struct {
	AddressOffset               uint32
	CompleteInstructionSequence []byte
}

// encodedAddressUnwindGroup is one function's ordered, descending-offset
// sequence of EncodedAddressUnwind records. A slice is not comparable, so
// deduplication keys each group on its canonical string form instead (see
// groupKey in offsettable.go).
type encodedAddressUnwindGroup []EncodedAddressUnwind
