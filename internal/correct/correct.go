// Package correct implements the elementwise correction modes applied to a
// science array set: master dark subtraction and relative-response division.
// Both mutate the set in place and stamp provenance on every output header.
package correct

import "github.com/namrataroy/kderp/internal/frame"

func stampAll(set *frame.Set, stamp frame.Stamp, prefix, history string) {
	for _, h := range set.Headers() {
		stamp.ApplyTo(h, prefix, history)
	}
}
