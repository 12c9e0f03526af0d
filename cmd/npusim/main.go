// Package main provides the entry point for npusim.
// npusim runs a compiled .npu program image on the modeled NPU core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/buiminhnhut114/edge-npu-design-sub000/control"
	"github.com/buiminhnhut114/edge-npu-design-sub000/device"
	"github.com/buiminhnhut114/edge-npu-design-sub000/loader"
)

var (
	configPath = flag.String("config", "", "Path to device configuration JSON file")
	maxCycles  = flag.Uint64("max-cycles", 10_000_000, "Cycle limit before giving up")
	profile    = flag.Bool("profile", false, "Enable the performance counters")
	dumpAddr   = flag.Uint64("dump-addr", 0, "External address of the output region to print")
	dumpLen    = flag.Int("dump-len", 0, "Number of output bytes to print")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: npusim [options] <program.npu>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	imagePath := flag.Arg(0)

	img, err := loader.Load(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading image: %v\n", err)
		os.Exit(1)
	}

	cfg := device.DefaultConfig()
	if *configPath != "" {
		cfg, err = device.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading device config: %v\n", err)
			os.Exit(1)
		}
	}

	dev, err := device.NewDevice(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building device: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", imagePath)
		fmt.Printf("Instructions: %d\n", len(img.Instructions))
		fmt.Printf("Weights: %d bytes @ 0x%X\n", len(img.Weights), img.WeightAddr)
		fmt.Printf("Activations: %d bytes @ 0x%X\n", len(img.Acts), img.ActAddr)
		fmt.Printf("Array: %dx%d\n", cfg.Rows, cfg.Cols)
	}

	dev.WriteExternal(img.WeightAddr, img.Weights)
	dev.WriteExternal(img.ActAddr, img.Acts)
	if err := dev.LoadProgram(img.Instructions); err != nil {
		fmt.Fprintf(os.Stderr, "Error uploading program: %v\n", err)
		os.Exit(1)
	}

	// Program the core the way the driver does: profiling first, then
	// enable plus the self-clearing start bit.
	if *profile {
		dev.WriteReg(control.RegPerfCtrl, control.PerfCtrlEnable)
	}
	dev.WriteReg(control.RegCtrl, control.CtrlEnable|control.CtrlStart)

	dones, err := dev.Run(*maxCycles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	status := dev.ReadReg(control.RegStatus)
	if status&control.StatusError != 0 {
		fmt.Fprintf(os.Stderr, "Core trapped: error code %d\n",
			dev.ReadReg(control.RegErrorCode))
		os.Exit(2)
	}

	fmt.Printf("Program: %s\n", imagePath)
	fmt.Printf("Cycles: %d\n", dev.Cycle())
	fmt.Printf("Instructions retired: %d\n", dev.ReadReg(control.RegInstCount))
	fmt.Printf("Sync points: %d\n", dones)

	if *profile {
		stats := dev.Stats()
		util := 0.0
		if stats.Cycles > 0 {
			peak := float64(stats.Cycles) * float64(cfg.Rows*cfg.Cols)
			util = 100.0 * float64(stats.MACs) / peak
		}
		fmt.Printf("\nCounters:\n")
		fmt.Printf("  Cycles:        %d\n", stats.Cycles)
		fmt.Printf("  MACs:          %d\n", stats.MACs)
		fmt.Printf("  Stalls:        %d\n", stats.Stalls)
		fmt.Printf("  DMA transfers: %d\n", stats.DMATransfers)
		fmt.Printf("  PE utilization: %.1f%%\n", util)
	}

	if *dumpLen > 0 {
		data := dev.ReadExternal(*dumpAddr, *dumpLen)
		fmt.Printf("\nOutput @ 0x%X:\n", *dumpAddr)
		for i := 0; i < len(data); i += 16 {
			end := i + 16
			if end > len(data) {
				end = len(data)
			}
			fmt.Printf("  %04X: % X\n", i, data[i:end])
		}
	}
}
