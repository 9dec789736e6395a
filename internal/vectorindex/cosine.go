package vectorindex

import "math"

// laneWidth is the width of the unrolled "SIMD lane" in dotLanes. Pure Go
// has no portable SIMD intrinsics, so this is a loop-unrolled stand-in for
// an 8-wide vector instruction; dotScalar is the one-at-a-time fallback
// that must agree with it to within 1e-6.
const laneWidth = 8

// normalize scales v to unit length in place. A zero vector is left as-is.
func normalize(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// dotLanes computes the dot product of a and b using 8-float unrolled
// lanes with a scalar remainder for lengths not divisible by laneWidth.
// This is the fast path; dotScalar is the portable equivalent. Both
// accumulate in float64 so their different summation orders do not drift.
func dotLanes(a, b []float32) float32 {
	n := len(a)
	var sum float64
	i := 0
	for ; i+laneWidth <= n; i += laneWidth {
		sum += float64(a[i])*float64(b[i]) +
			float64(a[i+1])*float64(b[i+1]) +
			float64(a[i+2])*float64(b[i+2]) +
			float64(a[i+3])*float64(b[i+3]) +
			float64(a[i+4])*float64(b[i+4]) +
			float64(a[i+5])*float64(b[i+5]) +
			float64(a[i+6])*float64(b[i+6]) +
			float64(a[i+7])*float64(b[i+7])
	}
	for ; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// dotScalar computes the dot product one element at a time. Kept
// separate from dotLanes so tests can assert the two paths agree.
func dotScalar(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// cosineDistance returns 1 - dot(a, b) for unit vectors a and b, using the
// lane-chunked fast path. Ranges from 0 (identical) to 2 (opposite).
func cosineDistance(a, b []float32) float32 {
	return 1 - dotLanes(a, b)
}

// cosineDistanceScalar is the portable equivalent of cosineDistance, used
// by the linear index and by tests that check SIMD/scalar parity.
func cosineDistanceScalar(a, b []float32) float32 {
	return 1 - dotScalar(a, b)
}

// distanceToScore converts cosine distance (0-2) to a similarity score in
// [0, 1], where 1 is identical.
func distanceToScore(distance float32) float32 {
	return 1 - distance/2.0
}
