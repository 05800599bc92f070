package snowflake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Snowflake issues cluster unique, time ordered 64-bit ids. Each id packs
// [timestamp delta | datacenter id | worker id | sequence] where the
// timestamp delta counts milliseconds since the fixed epoch. Instances
// sharing distinct (workerID, datacenterID) pairs never collide.
type Snowflake struct {
	mutex sync.Mutex

	workerID     int64
	datacenterID int64
	sequence     int64

	lastTimestamp int64

	nowMillis func() int64
}

const (
	// epoch is 2019-01-01 00:00:00 UTC in unix milliseconds.
	epoch = 1546272000000

	sequenceBits     = 12
	workerIDBits     = 5
	datacenterIDBits = 5

	maxSequence     = -1 ^ (-1 << sequenceBits)
	maxWorkerID     = -1 ^ (-1 << workerIDBits)
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits)

	workerIDShift     = sequenceBits
	datacenterIDShift = sequenceBits + workerIDBits
	timestampShift    = sequenceBits + workerIDBits + datacenterIDBits
)

var (
	ErrClockMovedBackwards = errors.New("clock moved backwards, refusing to generate id")
)

func New(workerID, datacenterID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker id must be between 0 and %d", maxWorkerID)
	}

	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("datacenter id must be between 0 and %d", maxDatacenterID)
	}

	return &Snowflake{
		workerID:      workerID,
		datacenterID:  datacenterID,
		lastTimestamp: -1,
		nowMillis: func() int64 {
			return time.Now().UnixMilli()
		},
	}, nil
}

// NextID returns the next id in the sequence. Safe for concurrent use; all
// callers serialize through the internal lock. Returns
// ErrClockMovedBackwards if wall clock time regressed since the previous
// call, in which case the allocator can no longer guarantee uniqueness and
// the caller must treat the condition as fatal.
func (s *Snowflake) NextID() (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	timestamp := s.nowMillis()
	if timestamp < s.lastTimestamp {
		return 0, fmt.Errorf("%w: last seen %d, now %d", ErrClockMovedBackwards, s.lastTimestamp, timestamp)
	}

	if timestamp == s.lastTimestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// sequence exhausted within this millisecond, spin
			// until the next tick
			timestamp = s.tilNextMillis(s.lastTimestamp)
		}
	} else {
		s.sequence = 0
	}

	s.lastTimestamp = timestamp

	id := (timestamp-epoch)<<timestampShift |
		s.datacenterID<<datacenterIDShift |
		s.workerID<<workerIDShift |
		s.sequence

	return id, nil
}

func (s *Snowflake) tilNextMillis(lastTimestamp int64) int64 {
	timestamp := s.nowMillis()
	for timestamp <= lastTimestamp {
		timestamp = s.nowMillis()
	}

	return timestamp
}
