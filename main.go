// Package main provides the entry point for the EdgeNPU core simulator.
//
// For the full CLI, use: go run ./cmd/npusim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("EdgeNPU - execution core simulator")
	fmt.Println("Cycle-level model of the systolic NPU core")
	fmt.Println("")
	fmt.Println("Usage: npusim [options] <program.npu>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to device configuration JSON file")
	fmt.Println("  -max-cycles  Cycle limit before giving up")
	fmt.Println("  -profile     Enable the performance counters")
	fmt.Println("  -dump-addr   External address of the output region to print")
	fmt.Println("  -dump-len    Number of output bytes to print")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/npusim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/npusim' instead.")
	}
}
