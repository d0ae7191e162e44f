// Command bench measures scalar cursor throughput against a synthetic
// segment at increasing row counts, in the style of the teacher's
// examples/bench/bench.go table-printing runBenchmark.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/driftdb/segment"
	"github.com/driftdb/segment/internal/fixtures"
)

func main() {
	fmt.Printf("Benchmarking scalar cursor scan ...\n")
	fmt.Printf("%12v\t%14v\t%14v\n", "ROWS", "ELAPSED", "ROWS/SEC")

	for _, n := range []int{10_000, 100_000, 1_000_000, 5_000_000} {
		records := fixtures.Generate(n, 1000, 0)
		seg := fixtures.BuildSegment(records)

		start := time.Now()
		rows, err := runScan(seg)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%12v\tFAILED: %v\n", humanize.Comma(int64(n)), err)
			continue
		}

		rate := float64(rows) / elapsed.Seconds()
		fmt.Printf("%12v\t%14v\t%14v\n",
			humanize.Comma(int64(n)), elapsed, humanize.Comma(int64(rate))+"/s")
	}
}

func runScan(seg segment.Segment) (int, error) {
	spec := segment.NewCursorBuildSpec()

	holder, err := segment.MakeCursorHolder(context.Background(), seg, spec)
	if err != nil {
		return 0, err
	}
	defer holder.Close()

	cursor, err := holder.AsCursor()
	if err != nil {
		return 0, err
	}

	count := 0
	for !cursor.IsDone() {
		count++
		if err := cursor.Advance(); err != nil {
			return count, err
		}
	}
	return count, nil
}
