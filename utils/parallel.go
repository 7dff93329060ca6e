package utils

import (
	"image"
	"runtime"
	"sync"

	viamutils "go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachPixel loops through the image and calls f for each [x, y]
// position. Every pixel is visited exactly once; f must only write to its own
// output pixel so the result stays identical regardless of worker count.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	procs := ParallelFactor
	var waitGroup sync.WaitGroup
	waitGroup.Add(procs)
	for proc := 0; proc < procs; proc++ {
		startX := proc * (size.X / procs)
		endX := (proc + 1) * (size.X / procs)
		if proc == procs-1 {
			endX = size.X
		}
		sX, eX := startX, endX
		viamutils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for x := sX; x < eX; x++ {
				for y := 0; y < size.Y; y++ {
					f(x, y)
				}
			}
		})
	}
	waitGroup.Wait()
}
