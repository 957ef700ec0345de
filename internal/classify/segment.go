package classify

import "regexp"

// FindRunEnd returns the index of the first block at or after start that matches stop.
// If no block matches, the run extends to the last block. The start block itself may
// close the run. An out-of-range start returns start unchanged.
func FindRunEnd(stop *regexp.Regexp, blocks []string, start int) int {
	if start < 0 || start >= len(blocks) {
		return start
	}
	end := start
	for j := start; j < len(blocks); j++ {
		end = j
		if Test(stop, blocks[j]) {
			break
		}
	}
	return end
}
