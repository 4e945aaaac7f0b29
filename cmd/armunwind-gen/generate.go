// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/faultline/armunwind"
	"github.com/spf13/cobra"
)

var (
	// wg/jobs is the same worker-pool shape the teacher's cmd/dump.go uses
	// to walk a directory of PE files concurrently (LoopDirsFiles /
	// loopFilesWorker): here each job is one .sym-style CFI dump instead
	// of one binary.
	wg   sync.WaitGroup
	jobs chan string = make(chan string)
)

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		return string(buff)
	}
	return prettyJSON.String()
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func processFile(path string, mmapInput, wantStats, wantJSON bool) {
	lines, err := armunwind.ReadLines(path, &armunwind.Options{MmapInput: mmapInput})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: read error: %v\n", path, err)
		return
	}

	result, err := armunwind.Build(lines, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: build error: %v\n", path, err)
		return
	}

	if wantStats {
		statsJSON, _ := json.Marshal(result.Stats)
		fmt.Printf("%s:\n%s\n", path, prettyPrint(statsJSON))
	}

	if wantJSON {
		out, _ := json.Marshal(map[string]interface{}{
			"instruction_table_size": len(result.InstructionTable.Bytes),
			"function_offset_size":   len(result.OffsetTable.Bytes),
			"function_offsets":       result.FunctionOffsets,
		})
		fmt.Println(prettyPrint(out))
		return
	}

	outPath := path + ".unwindtab"
	blob := append([]byte{}, result.InstructionTable.Bytes...)
	blob = append(blob, result.OffsetTable.Bytes...)
	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: write error: %v\n", outPath, err)
		return
	}
	fmt.Printf("%s -> %s (%d bytes)\n", path, outPath, len(blob))
}

func worker(mmapInput, wantStats, wantJSON bool) {
	for path := range jobs {
		processFile(path, mmapInput, wantStats, wantJSON)
		wg.Done()
	}
}

func walkDir(path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return
	}
	for _, entry := range entries {
		full := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			walkDir(full)
			continue
		}
		wg.Add(1)
		jobs <- full
	}
}

func newGenerateCmd() *cobra.Command {
	var mmapInput bool
	var wantStats bool
	var wantJSON bool
	var workerCount int

	cmd := &cobra.Command{
		Use:   "generate <path>...",
		Short: "Generate unwind tables from one or more CFI dump files or directories",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if workerCount < 1 {
				workerCount = 1
			}
			for i := 0; i < workerCount; i++ {
				go worker(mmapInput, wantStats, wantJSON)
			}

			for _, arg := range args {
				if isDirectory(arg) {
					walkDir(arg)
				} else {
					wg.Add(1)
					jobs <- arg
				}
			}
			wg.Wait()
			close(jobs)
		},
	}

	cmd.Flags().BoolVar(&mmapInput, "mmap", false, "memory-map input files instead of buffering them")
	cmd.Flags().BoolVar(&wantStats, "stats", false, "print build statistics for each input")
	cmd.Flags().BoolVar(&wantJSON, "json", false, "print table metadata as JSON instead of writing a .unwindtab file")
	cmd.Flags().IntVar(&workerCount, "workers", 4, "number of concurrent files to process")

	return cmd
}
