// Package main provides a profiling wrapper for npusim to identify simulator
// performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/buiminhnhut114/edge-npu-design-sub000/control"
	"github.com/buiminhnhut114/edge-npu-design-sub000/device"
	"github.com/buiminhnhut114/edge-npu-design-sub000/loader"
)

var (
	configPath = flag.String("config", "", "Path to device configuration JSON file")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxCycles  = flag.Uint64("max-cycles", 100_000_000, "max cycles to simulate")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.npu>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
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

	fmt.Printf("Loaded: %s\n", imagePath)
	fmt.Printf("Instructions: %d\n", len(img.Instructions))

	dev.WriteExternal(img.WeightAddr, img.Weights)
	dev.WriteExternal(img.ActAddr, img.Acts)
	if err := dev.LoadProgram(img.Instructions); err != nil {
		fmt.Fprintf(os.Stderr, "Error uploading program: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	dev.WriteReg(control.RegPerfCtrl, control.PerfCtrlEnable)
	dev.WriteReg(control.RegCtrl, control.CtrlEnable|control.CtrlStart)

	if _, err := dev.Run(*maxCycles); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	cycles := dev.Cycle()
	retired := dev.ReadReg(control.RegInstCount)

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Cycles simulated: %d\n", cycles)
	fmt.Printf("Instructions retired: %d\n", retired)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if cycles > 0 && elapsed > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(cycles)/elapsed.Seconds())
	}
}
