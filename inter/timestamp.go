package inter

import (
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
)

// Timestamp is a block time in milliseconds since the Unix epoch.
type Timestamp uint64

// FromTime truncates t to milliseconds.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Bytes is the big-endian encoding, suitable for sortable keys.
func (t Timestamp) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(t))
}

// Time converts back to time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// Since returns t-earlier, or zero when earlier is not before t.
func (t Timestamp) Since(earlier Timestamp) time.Duration {
	if earlier >= t {
		return 0
	}
	return time.Duration(t-earlier) * time.Millisecond
}
