package chain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zoroproject/zoro/foundation/zcash"
)

// ErrTimestampTooOld is returned when a block's timestamp does not strictly
// exceed the median time past of the chain it extends.
var ErrTimestampTooOld = errors.New("timestamp not greater than median time past")

// MedianTimePast computes the median of the most recent eleven timestamps,
// looking back offset entries from the end of the history. When fewer than
// eleven entries are available, the window is padded by repeating the oldest
// one. The second return is false when the offset reaches past the recorded
// history.
func MedianTimePast(timestamps []uint32, offset int) (uint32, bool) {
	end := len(timestamps) - offset
	if end <= 0 {
		return 0, false
	}

	window := make([]uint32, 0, zcash.MedianTimeWindow)
	for i := end - zcash.MedianTimeWindow; i < end; i++ {
		if i < 0 {
			window = append(window, timestamps[0])
			continue
		}
		window = append(window, timestamps[i])
	}

	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	return window[zcash.MedianTimeWindow/2], true
}

// ValidateTimestamp enforces the past-facing timestamp rule: a block's time
// must strictly exceed the median time past of its parent chain.
func ValidateTimestamp(medianTimePast uint32, blockTime uint32) error {
	if blockTime <= medianTimePast {
		return fmt.Errorf("block time %d, median time past %d: %w", blockTime, medianTimePast, ErrTimestampTooOld)
	}
	return nil
}
