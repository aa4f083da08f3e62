package domain

import (
	"errors"
	"fmt"
)

type LoopType string

const (
	LoopTypeProvisioning LoopType = "provisioning"
	LoopTypeHealth       LoopType = "health"
)

// NOTE: we define them here, because...
//
// 1. "we have loops, they are like this" is a part of the model of the orchestrator.
//
// 2. When we make loops scalable, we will use the database to throttle loops.
//

func (lt LoopType) String() string {
	return string(lt)
}

func (lt LoopType) IsKnown() bool {
	switch lt {
	case LoopTypeProvisioning, LoopTypeHealth:
		return true
	default:
		return false
	}
}

func AsLoopType(s string) (LoopType, error) {
	l := LoopType(s)
	if l.IsKnown() {
		return l, nil
	}
	return l, fmt.Errorf(`%w: "%s"`, ErrUnknownLoopType, s)
}

var ErrUnknownLoopType = errors.New("unknown loop type")
