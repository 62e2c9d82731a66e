package engine

import (
	"fmt"
	"image"
)

// SampleKind tags the outcome of one poll.
type SampleKind int

const (
	SampleNotFound SampleKind = iota
	SampleFound
	SampleFailed
)

func (k SampleKind) String() string {
	switch k {
	case SampleFound:
		return "found"
	case SampleNotFound:
		return "not-found"
	case SampleFailed:
		return "failed"
	default:
		return fmt.Sprintf("SampleKind(%d)", int(k))
	}
}

// SampleResult is produced once per poll and consumed immediately.
// Point is set only for SampleFound, Err only for SampleFailed.
type SampleResult struct {
	Kind  SampleKind
	Point image.Point
	Err   error
}

func found(p image.Point) SampleResult { return SampleResult{Kind: SampleFound, Point: p} }
func notFound() SampleResult { return SampleResult{Kind: SampleNotFound} }
func sampleFailed(err error) SampleResult { return SampleResult{Kind: SampleFailed, Err: err} }
