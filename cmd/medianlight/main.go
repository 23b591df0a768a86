// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	nl "github.com/mlnoga/medianlight/internal"
	"github.com/mlnoga/medianlight/internal/bench"
	"github.com/mlnoga/medianlight/internal/codec"
	"github.com/mlnoga/medianlight/internal/median"
	"github.com/mlnoga/medianlight/internal/ops"
	"github.com/mlnoga/medianlight/internal/ops/filter"
	"github.com/mlnoga/medianlight/internal/ops/pre"
	"github.com/mlnoga/medianlight/internal/rest"
	"github.com/pbnjay/memory"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "out.png", "save output to `file`. Use a pattern like `out%d.png` for multiple inputs")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var kernel = flag.Int("kernel", 3, "median filter kernel size, odd and at least 1")
var engine = flag.String("engine", "host", "filter engine, one of sequential, host, accelerator")
var workers = flag.Int("workers", 0, "number of host worker threads, 0=number of logical cores")
var border = flag.String("border", "copy", "border handling, one of keep, copy, zero")

var runs = flag.Int("runs", 5, "number of timed runs per engine for bench")
var engines = flag.String("engines", strings.Join(ops.EngineNames, ","), "comma-separated list of engines for bench")

var noiseFraction = flag.Float64("noise", 0.05, "fraction of samples replaced by salt and pepper noise")
var seed = flag.Uint("seed", 1, "random seed for noise")

var addr = flag.String("addr", ":8080", "listen address for serve")
var chroot = flag.String("chroot", "", "chroot to `dir` before serving (requires root)")
var setuid = flag.Int("setuid", -1, "change to this user id before serving, -1=don't")

func main() {
	logWriter := nl.LogWriter
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `Medianlight Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (filter|bench|noise|info|serve|legal|version) (img0.png ... imgn.png)

Commands:
  filter  Apply median filter to input images
  bench   Time all engines on the first input image and compare their outputs
  noise   Add salt and pepper noise to input images
  info    Show host and accelerator information
  serve   Serve the REST API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" && (args[0] == "filter" || args[0] == "noise") {
			*log = strings.TrimSuffix(strings.ReplaceAll(*out, "%d", ""), filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	c := ops.NewContext(logWriter)

	var err error
	switch args[0] {
	case "filter":
		err = cmdFilter(args[1:], c)

	case "bench":
		err = cmdBench(args[1:], c)

	case "noise":
		err = cmdNoise(args[1:], c)

	case "info":
		err = cmdInfo(c)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid); err == nil {
			err = rest.Serve(*addr)
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		pprof.StopCPUProfile()
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	nl.LogSync()
}

// Checks the output pattern can hold one file per input
func checkOutPattern(files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no input files")
	}
	if *out == "" {
		return fmt.Errorf("no output file")
	}
	if !strings.Contains(*out, "%d") {
		if matches, _ := filepath.Glob(files[0]); len(files) > 1 || len(matches) > 1 {
			return fmt.Errorf("output %s needs a %%d pattern for multiple inputs", *out)
		}
	}
	return nil
}

// Loads the files, applies the given operators to each, and saves the results
func runPipeline(files []string, c *ops.Context, steps ...ops.Operator) error {
	if err := checkOutPattern(files); err != nil {
		return err
	}
	seq := ops.NewOpSequence(ops.NewOpLoadMany(files))
	seq.Append(steps...)
	seq.Append(ops.NewOpSave(*out))

	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "Processing with these settings:\n%s\n", string(m))

	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeAll(promises, c.MaxThreads, true)
	return err
}

func cmdFilter(files []string, c *ops.Context) error {
	mode, err := median.ParseBorderMode(*border)
	if err != nil {
		return err
	}
	if _, err := ops.NewEngine(*engine, *workers, c); err != nil {
		return err
	}
	return runPipeline(files, c, filter.NewOpMedian(*engine, *kernel, *workers, mode))
}

func cmdNoise(files []string, c *ops.Context) error {
	return runPipeline(files, c, pre.NewOpNoise(float32(*noiseFraction), uint32(*seed)))
}

func cmdBench(files []string, c *ops.Context) error {
	if len(files) == 0 {
		return fmt.Errorf("no input file")
	}
	mode, err := median.ParseBorderMode(*border)
	if err != nil {
		return err
	}
	var es []median.Engine
	for _, name := range strings.Split(*engines, ",") {
		e, err := ops.NewEngine(strings.TrimSpace(name), *workers, c)
		if err != nil {
			return err
		}
		es = append(es, e)
	}

	img, err := codec.Read(files[0])
	if err != nil {
		return err
	}
	g := img.Geometry(*kernel)
	fmt.Fprintf(c.Log, "Timing %d engines with %d runs each on %s, %s\n", len(es), *runs, img.FileName, g)
	results, err := bench.Run(es, img.Data, g, *runs, mode)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(c.Log, r.String())
	}
	return nil
}

func cmdInfo(c *ops.Context) error {
	fmt.Fprintf(c.Log, "CPU %s, %d physical cores, %d logical cores, AVX2 %v\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2())
	fmt.Fprintf(c.Log, "Memory %d MiB, GOMAXPROCS %d, host engine concurrency %d\n",
		memory.TotalMemory()/1024/1024, c.MaxThreads, median.HostConcurrency())
	dev, err := c.Device()
	if err != nil {
		return err
	}
	p := dev.Properties()
	fmt.Fprintf(c.Log, "Accelerator %s: %d multiprocessors, %d threads per block, warp size %d, %d MiB global memory\n",
		p.Name, p.Multiprocessors, p.MaxThreadsPerBlock, p.WarpSize, p.GlobalMemory/1024/1024)
	return nil
}
