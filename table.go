// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"fmt"
	"os"

	"github.com/faultline/armunwind/log"
)

// Options configures Build, generalizing the teacher's pe.Options
// (file.go) to this translator's concerns.
type Options struct {
	// Logger is a custom logger; defaults to a stdlogger filtered to
	// LevelWarn, mirroring pe.New's default of LevelError.
	Logger log.Logger

	// MmapInput, when true in the Options passed to ReadLines, memory-maps
	// the input file instead of buffering it, mirroring file.go's
	// mmap-backed File vs. NewBytes's buffered File.
	MmapInput bool

	// MaxFunctionCount caps the number of functions processed; zero means
	// unbounded. Mirrors pe.Options.MaxCOFFSymbolsCount /
	// MaxRelocEntriesCount as a defensive resource limit.
	MaxFunctionCount uint32
}

func (o *Options) helper() *log.Helper {
	if o != nil && o.Logger != nil {
		return log.NewHelper(o.Logger)
	}
	stdlog := log.NewStdLogger(os.Stderr)
	return log.NewHelper(log.NewFilter(stdlog, log.FilterLevel(log.LevelWarn)))
}

// Stats summarizes a Build run. It is not part of the on-disk format
// (spec §6); it mirrors the build-log summary the original producer
// (_examples/original_source/android/gyp/create_unwind_table.py) emits
// for build diagnostics.
type Stats struct {
	FunctionCount          int
	DistinctSequenceCount  int
	DistinctGroupCount     int
	InstructionTableBytes  int
	FunctionOffsetBytes    int
	// BytesSavedByDedup is the difference between the sum of every
	// function's uncompressed sequence lengths and InstructionTableBytes.
	BytesSavedByDedup int
}

// Result is everything Build produces.
type Result struct {
	InstructionTable UnwindInstructionTable
	OffsetTable      FunctionOffsetTable

	// FunctionOffsets maps each function's start address to its group's
	// starting byte offset within OffsetTable.Bytes — the lookup the
	// out-of-scope function table (spec §1) needs to reference this
	// function's entries.
	FunctionOffsets map[uint32]uint32

	Stats Stats
}

// Build runs the full pipeline — Line Filter, CFI Record Assembler, CFI
// Parser Dispatch, Instruction Encoder, Sequence Builder, Unwind
// Instruction Table Packer, Function Offset Table Encoder — over lines,
// in that order (spec §2).
func Build(lines []string, opts *Options) (Result, error) {
	helper := opts.helper()

	maxFunctions := uint32(0)
	if opts != nil {
		maxFunctions = opts.MaxFunctionCount
	}

	functions, err := assembleFunctions(lines, helper)
	if err != nil {
		return Result{}, err
	}
	if maxFunctions != 0 && uint32(len(functions)) > maxFunctions {
		functions = functions[:maxFunctions]
	}

	groups := make([]encodedAddressUnwindGroup, 0, len(functions))
	groupByAddress := make(map[uint32]encodedAddressUnwindGroup, len(functions))
	var allSequences [][]byte
	uncompressedTotal := 0

	for _, fn := range functions {
		unwind, err := buildFunctionUnwind(fn)
		if err != nil {
			helper.Warnf("failed to parse function at address=0x%x: %v", fn.Address, err)
			return Result{}, fmt.Errorf("function at address=0x%x: %w", fn.Address, err)
		}

		group, err := buildEncodedAddressUnwinds(unwind)
		if err != nil {
			helper.Warnf("failed to encode function at address=0x%x: %v", fn.Address, err)
			return Result{}, fmt.Errorf("function at address=0x%x: %w", fn.Address, err)
		}

		groups = append(groups, group)
		groupByAddress[fn.Address] = group
		for _, e := range group {
			allSequences = append(allSequences, e.CompleteInstructionSequence)
			uncompressedTotal += len(e.CompleteInstructionSequence)
		}
	}

	instructionTable := packUnwindInstructionTable(allSequences)

	offsetTable, err := buildFunctionOffsetTable(groups, instructionTable.Offsets)
	if err != nil {
		return Result{}, err
	}

	functionOffsets := make(map[uint32]uint32, len(functions))
	for _, fn := range functions {
		functionOffsets[fn.Address] = offsetTable.Offsets[groupKey(groupByAddress[fn.Address])]
	}

	stats := Stats{
		FunctionCount:         len(functions),
		DistinctSequenceCount: len(instructionTable.Offsets),
		DistinctGroupCount:    len(offsetTable.Offsets),
		InstructionTableBytes: len(instructionTable.Bytes),
		FunctionOffsetBytes:   len(offsetTable.Bytes),
		BytesSavedByDedup:     uncompressedTotal - len(instructionTable.Bytes),
	}
	helper.Infof(
		"built unwind tables: functions=%d instruction_bytes=%d offset_bytes=%d saved=%d",
		stats.FunctionCount, stats.InstructionTableBytes, stats.FunctionOffsetBytes, stats.BytesSavedByDedup)

	return Result{
		InstructionTable: instructionTable,
		OffsetTable:      offsetTable,
		FunctionOffsets:  functionOffsets,
		Stats:            stats,
	}, nil
}
