// Package snowflake generates unique 63-bit ids from a millisecond
// timestamp, a node id and a per-millisecond sequence. Order numbers are
// derived from these ids so they sort roughly by creation time.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// Epoch is the twitter snowflake epoch, Nov 04 2010 01:42:54 UTC, in
	// milliseconds
	Epoch int64 = 1288834974657

	// NodeBits and StepBits split the 22 low bits between node and sequence
	NodeBits uint8 = 10

	StepBits uint8 = 12

	nodeMask = -1 ^ (-1 << NodeBits)
	stepMask = -1 ^ (-1 << StepBits)
	timeShift = NodeBits + StepBits
	nodeShift = StepBits
)

// IDGenerator issues ids for one node. Safe for concurrent use.
type IDGenerator struct {
	mu        sync.Mutex
	timestamp int64
	nodeID    int64
	step      int64
}

// NewIDGenerator creates a generator for nodeID, which must fit in NodeBits
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	if nodeID < 0 || nodeID > nodeMask {
		return nil, errors.New("invalid node ID")
	}

	return &IDGenerator{
		timestamp: 0,
		nodeID:    nodeID,
		step:      0,
	}, nil
}

// NextID returns the next id, blocking briefly if the current
// millisecond's sequence is exhausted
func (g *IDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixNano() / 1000000

	if g.timestamp == now {
		g.step = (g.step + 1) & stepMask

		if g.step == 0 {
			// spin into the next millisecond
			for now <= g.timestamp {
				now = time.Now().UnixNano() / 1000000
			}
		}
	} else {
		g.step = 0
	}

	g.timestamp = now

	id := ((now - Epoch) << timeShift) |
		(g.nodeID << nodeShift) |
		g.step

	return id
}

// ParseID splits an id into its timestamp, node and sequence parts
func ParseID(id int64) (timestamp int64, nodeID int64, step int64) {
	step = id & stepMask
	nodeID = (id >> nodeShift) & nodeMask
	timestamp = (id >> timeShift) + Epoch
	return
}

// GetTimestamp extracts the millisecond timestamp
func GetTimestamp(id int64) int64 {
	return (id >> timeShift) + Epoch
}

// GetNodeID extracts the node id
func GetNodeID(id int64) int64 {
	return (id >> nodeShift) & nodeMask
}

// GetStep extracts the sequence number
func GetStep(id int64) int64 {
	return id & stepMask
}
