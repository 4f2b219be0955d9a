package recovery

import (
	"context"
	"errors"
	"net"
	"strings"

	"hushfeed/pkg/feedapi"
)

// Class is the failure taxonomy the coordinator plans around.
type Class int

const (
	ClassUnknown Class = iota
	ClassNetwork
	ClassDecode
	ClassLoadFailed
	ClassRateLimited
	ClassPermissionDenied
)

func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "Network"
	case ClassDecode:
		return "Decode"
	case ClassLoadFailed:
		return "LoadFailed"
	case ClassRateLimited:
		return "RateLimited"
	case ClassPermissionDenied:
		return "PermissionDenied"
	default:
		return "Unknown"
	}
}

// Transient reports whether this class is retried silently before anything
// is surfaced to the user.
func (c Class) Transient() bool {
	switch c {
	case ClassNetwork, ClassLoadFailed, ClassRateLimited, ClassDecode:
		return true
	default:
		return false
	}
}

// Classify sorts an error into the taxonomy: typed backend errors first,
// then transport errors, then message heuristics for failures coming out of
// the media decoder.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, feedapi.ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, feedapi.ErrPermissionDenied):
		return ClassPermissionDenied
	case errors.Is(err, feedapi.ErrNetwork):
		return ClassNetwork
	case errors.Is(err, feedapi.ErrNotFound), errors.Is(err, feedapi.ErrServer):
		return ClassLoadFailed
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ClassNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "decode", "codec", "demux", "bitstream", "corrupt"):
		return ClassDecode
	case containsAny(msg, "connection", "timeout", "unreachable", "dns", "network", "refused", "reset by peer"):
		return ClassNetwork
	case containsAny(msg, "not found", "no such file", "load", "download"):
		return ClassLoadFailed
	case containsAny(msg, "too many requests", "rate limit"):
		return ClassRateLimited
	case containsAny(msg, "forbidden", "permission", "unauthorized"):
		return ClassPermissionDenied
	default:
		return ClassUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
