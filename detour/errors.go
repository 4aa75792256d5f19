package detour

import (
	"errors"
	"fmt"
)

var ErrFailure = errors.New("operation failed")
var ErrWrongMagic = fmt.Errorf("%w: input data is not recognized", ErrFailure)
var ErrWrongVersion = fmt.Errorf("%w: input data is in wrong version", ErrFailure)
var ErrOutOfMemory = fmt.Errorf("%w: no free tile slot", ErrFailure)
var ErrInvalidParam = fmt.Errorf("%w: an input parameter was invalid", ErrFailure)
var ErrAlreadyOccupied = fmt.Errorf("%w: tile location already occupied", ErrFailure)
var ErrNotFound = fmt.Errorf("%w: no polygon found", ErrFailure)

var ErrBufferTooSmall = errors.New("result buffer for the query was too small to store all results")
var ErrOutOfNodes = errors.New("query ran out of nodes during search")
var ErrPartialResult = errors.New("query did not reach the end location, returning best guess")

// Status carries the detail bits of a successful search.
type Status uint32

const (
	PartialResult  Status = 1 << iota // the goal was not reached, the path leads to the closest node
	OutOfNodes                        // the node pool was exhausted during the search
	BufferTooSmall                    // the result was truncated to the caller's limit
)

func (s Status) Partial() bool { return s&PartialResult != 0 }

func (s Status) Has(detail Status) bool { return s&detail != 0 }

// Err maps the detail bits to the matching sentinel, nil if none are set.
func (s Status) Err() error {
	switch {
	case s.Has(PartialResult):
		return ErrPartialResult
	case s.Has(OutOfNodes):
		return ErrOutOfNodes
	case s.Has(BufferTooSmall):
		return ErrBufferTooSmall
	}
	return nil
}
