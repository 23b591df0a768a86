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

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/medianlight/internal/bench"
	"github.com/mlnoga/medianlight/internal/device"
	"github.com/mlnoga/medianlight/internal/median"
	"github.com/mlnoga/medianlight/internal/ops"
	"github.com/mlnoga/medianlight/internal/ops/filter"
	"github.com/mlnoga/medianlight/internal/ops/pre"
)

// Listens and serves the REST API on the given address, e.g. ":8080"
func Serve(addr string) error {
	dev, err := device.NewDefaultDevice()
	if err != nil {
		fmt.Printf("Warning: accelerator engine unavailable: %s\n", err.Error())
		dev = nil
	}
	return NewRouter(dev).Run(addr)
}

// Creates the API router. Requests share the given accelerator device; if nil, each request creates its own
func NewRouter(dev *device.Device) *gin.Engine {
	s := &server{dev: dev}
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/engines", s.getEngines)
			v1.POST("/filter", s.postFilter)
			v1.POST("/bench", s.postBench)
		}
	}
	return r
}

type server struct {
	dev *device.Device
}

func (s *server) newContext(log io.Writer) *ops.Context {
	c := ops.NewContext(log)
	if s.dev != nil {
		c.SetDevice(s.dev)
	}
	return c
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func (s *server) getEngines(c *gin.Context) {
	res := gin.H{
		"engines":         ops.EngineNames,
		"hostConcurrency": median.HostConcurrency(),
	}
	if s.dev != nil {
		res["device"] = s.dev.Properties()
		res["deviceStats"] = s.dev.Stats()
	}
	c.JSON(http.StatusOK, res)
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

type postFilterArgs struct {
	FileName string           `json:"fileName"`
	Out      string           `json:"out"`
	Noise    *pre.OpNoise     `json:"noise"`
	Filter   *filter.OpMedian `json:"filter"`
}

// Filters a single image file and writes the result. Streams the log as plain text
func (s *server) postFilter(c *gin.Context) {
	logWriter := c.Writer
	var args postFilterArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.FileName == "" || args.Out == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileName and out are required"})
		return
	}
	if args.Filter == nil {
		args.Filter = filter.NewOpMedianDefault()
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	seq := ops.NewOpSequence(ops.NewOpLoad(0, args.FileName))
	if args.Noise != nil {
		seq.Append(args.Noise)
	}
	seq.Append(args.Filter, ops.NewOpSave(args.Out))

	ctx := s.newContext(logWriter)
	promises, err := seq.MakePromises(nil, ctx)
	if err == nil {
		_, err = ops.MaterializeAll(promises, ctx.MaxThreads, true)
	}
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
	}
	logWriter.Flush()
}

type postBenchArgs struct {
	FileName   string   `json:"fileName"`
	KernelSize int      `json:"kernelSize"`
	Runs       int      `json:"runs"`
	Engines    []string `json:"engines"`
	Workers    int      `json:"workers"`
	Border     string   `json:"border"`
}

// Upper bound on timed runs per engine for a single request
const maxBenchRuns = 100

// Times the requested engines on a single image file and returns the results as JSON
func (s *server) postBench(c *gin.Context) {
	args := postBenchArgs{KernelSize: 3, Runs: 5, Engines: append([]string(nil), ops.EngineNames...), Border: "copy"}
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Runs < 1 || args.Runs > maxBenchRuns {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("runs %d outside [1,%d]", args.Runs, maxBenchRuns)})
		return
	}
	border, err := median.ParseBorderMode(args.Border)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := s.newContext(io.Discard)
	engines := make([]median.Engine, len(args.Engines))
	for i, name := range args.Engines {
		if engines[i], err = ops.NewEngine(name, args.Workers, ctx); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	promises, err := ops.NewOpLoad(0, args.FileName).MakePromises(nil, ctx)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	images, err := ops.MaterializeAll(promises, 1, false)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	img := images[0]
	g := img.Geometry(args.KernelSize)
	results, err := bench.Run(engines, img.Data, g, args.Runs, border)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, median.ErrPrecondition) || errors.Is(err, median.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"geometry": g, "results": results})
}
