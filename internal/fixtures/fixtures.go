// Package fixtures generates synthetic segment data for tests and
// benchmarks, and reads/writes a compressed golden-fixture format so a
// known-good scan result can be checked into the repo without checking in
// megabytes of plain text. Neither concern is part of the engine itself —
// this is test tooling, grounded on the teacher's examples/bench/bench.go
// (procedural generation via xxrand) and commit/log.go (s2 + iostream
// framing).
package fixtures

import (
	"os"

	"github.com/kelindar/iostream"
	"github.com/kelindar/xxrand"
	"github.com/klauspost/compress/s2"

	"github.com/driftdb/segment/internal/chunk"

	"github.com/driftdb/segment"
)

// Record is one synthetic row: a monotone timestamp, a metric, and a
// low-cardinality dimension value.
type Record struct {
	Time      int64
	Metric    float64
	Dimension string
}

var dimensionValues = []string{"us-east", "us-west", "eu-central", "ap-south"}

// Generate produces n rows with strictly increasing timestamps
// stepMillis apart, chunk.Size rows at a time — the generation loop is
// chunked the same way the engine addresses rows, even though nothing
// about generation requires it, so a caller benchmarking chunk-sized
// batches can reuse the same boundaries the engine would see.
func Generate(n int, stepMillis int64, startTime int64) []Record {
	records := make([]Record, 0, n)
	ts := startTime
	for lo := 0; lo < n; lo += chunk.Size {
		hi := lo + chunk.Size
		if hi > n {
			hi = n
		}
		for i := lo; i < hi; i++ {
			records = append(records, Record{
				Time:      ts,
				Metric:    float64(xxrand.Uint32n(10_000)) / 100,
				Dimension: dimensionValues[xxrand.Intn(len(dimensionValues))],
			})
			ts += stepMillis
		}
	}
	return records
}

// BuildSegment assembles records into an in-memory Segment via
// segment.NewMemSegmentBuilder, with __time, a "metric" float column and a
// dictionary-encoded "dimension" column — the fixed shape bench/main.go
// scans against.
func BuildSegment(records []Record) segment.Segment {
	times := make([]int64, len(records))
	metrics := make([]float64, len(records))
	dims := make([]string, len(records))
	for i, r := range records {
		times[i] = r.Time
		metrics[i] = r.Metric
		dims[i] = r.Dimension
	}

	return segment.NewMemSegmentBuilder().
		AddTime(times).
		AddFloatMetric("metric", metrics).
		AddDictDimension("dimension", dims).
		Build()
}

// WriteGolden writes records to path as an s2-compressed iostream, the way
// commit.Log frames a commit stream (commit/log.go).
func WriteGolden(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := iostream.NewWriter(s2.NewWriter(file))
	if err := w.WriteUvarint(uint64(len(records))); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.WriteInt64(r.Time); err != nil {
			return err
		}
		if err := w.WriteFloat64(r.Metric); err != nil {
			return err
		}
		if err := w.WriteString(r.Dimension); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadGolden reads back a file written by WriteGolden.
func ReadGolden(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := iostream.NewReader(s2.NewReader(file))
	count, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}

	records := make([]Record, count)
	for i := range records {
		if records[i].Time, err = r.ReadInt64(); err != nil {
			return nil, err
		}
		if records[i].Metric, err = r.ReadFloat64(); err != nil {
			return nil, err
		}
		if records[i].Dimension, err = r.ReadString(); err != nil {
			return nil, err
		}
	}

	return records, nil
}
