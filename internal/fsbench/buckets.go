package fsbench

import (
	"strconv"
	"strings"
)

// Size bucket upper bounds in bytes, inclusive. Sizes above the last
// bound fall into OverflowBucket.
var bucketBounds = []int64{64_000, 256_000, 1_000_000, 4_000_000}

// OverflowBucket collects every size above the last bound.
const OverflowBucket int64 = 1_000_000_000

// SizeBucket returns the bucket a size falls into, identified by its upper
// bound.
func SizeBucket(size int64) int64 {
	for _, b := range bucketBounds {
		if size <= b {
			return b
		}
	}
	return OverflowBucket
}

// BucketLabel renders a bucket bound in decimal units: "64.0KB",
// "1.0MB", "1000.0MB".
func BucketLabel(bytes int64) string {
	if bytes >= 1_000_000 {
		return decimal(float64(bytes)/1000/1000) + "MB"
	}
	return decimal(float64(bytes)/1000) + "KB"
}

func decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
