// Package path implements channel-graph path validation and resolution to
// a transport path of packet keys (component J).
package path

import (
	"fmt"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

// MaxHops bounds the number of relay hops a resolved path may contain,
// matching the onion header's fixed hop-count budget.
const MaxHops = 3

// ErrPathNotValid wraps the reason a candidate path was rejected.
type ErrPathNotValid struct {
	Reason string
}

func (e *ErrPathNotValid) Error() string {
	return fmt.Sprintf("path: not valid: %s", e.Reason)
}

// ErrLoopsNotAllowed means two adjacent hops in the path (or a hop
// adjacent to self) were identical.
type ErrLoopsNotAllowed struct {
	At int
}

func (e *ErrLoopsNotAllowed) Error() string {
	return fmt.Sprintf("path: adjacent loop at position %d", e.At)
}

// ErrMissingChannel means no channel exists between two consecutive hops.
type ErrMissingChannel struct {
	Source, Destination address.Address
}

func (e *ErrMissingChannel) Error() string {
	return fmt.Sprintf("path: no channel %s -> %s", e.Source, e.Destination)
}

// ErrChannelNotOpened means a channel exists between two consecutive hops
// but is not in the Open state.
type ErrChannelNotOpened struct {
	Source, Destination address.Address
	Status              chain.Status
}

func (e *ErrChannelNotOpened) Error() string {
	return fmt.Sprintf("path: channel %s -> %s not open (status %s)",
		e.Source, e.Destination, e.Status)
}

// ErrInvalidPeer means a hop address could not be resolved to a packet
// key through the key mapper.
type ErrInvalidPeer struct {
	Address address.Address
}

func (e *ErrInvalidPeer) Error() string {
	return fmt.Sprintf("path: no packet key known for %s", e.Address)
}

// ErrPathTooLong means the resolved path (hops plus destination) exceeds
// MaxHops, a bound the original implementation enforces that spec.md's
// distillation leaves implicit.
type ErrPathTooLong struct {
	Len int
}

func (e *ErrPathTooLong) Error() string {
	return fmt.Sprintf("path: resolved path has %d hops, exceeds max %d", e.Len, MaxHops)
}

// Validate checks a candidate path of relay hops (excluding self and the
// final destination) against the channel graph:
//   - the path must be nonempty and its first hop must not be self;
//   - every consecutive pair along [self, hops...] must have an Open
//     channel; the last hop needs no channel to the destination, and
//     neither Validate nor Resolve checks one;
//   - adjacent repeats (a hop equal to its immediate predecessor) are
//     forbidden; non-adjacent repeats are permitted.
func Validate(self address.Address, hops []address.Address, cv chain.Values) error {
	if len(hops) == 0 {
		return &ErrPathNotValid{Reason: "empty path"}
	}
	if hops[0].Equal(self) {
		return &ErrLoopsNotAllowed{At: 0}
	}

	full := append([]address.Address{self}, hops...)

	for i := 0; i < len(full)-1; i++ {
		u, v := full[i], full[i+1]
		if u.Equal(v) {
			return &ErrLoopsNotAllowed{At: i + 1}
		}

		c, ok := cv.Channel(u, v)
		if !ok {
			return &ErrMissingChannel{Source: u, Destination: v}
		}
		if c.Status != chain.Open {
			return &ErrChannelNotOpened{Source: u, Destination: v, Status: c.Status}
		}
	}

	return nil
}

// Resolve validates hops and appends destination, then maps every address
// in the resulting path to its packet key through mapper.
func Resolve(self address.Address, hops []address.Address, destination address.Address,
	cv chain.Values, mapper *address.KeyIDMapper) ([]address.PacketKey, error) {

	if err := Validate(self, hops, cv); err != nil {
		return nil, err
	}

	full := append(append([]address.Address{}, hops...), destination)
	if len(full) > MaxHops {
		return nil, &ErrPathTooLong{Len: len(full)}
	}

	keys := make([]address.PacketKey, 0, len(full))
	for _, a := range full {
		id, ok := mapper.KeyIDForAddress(a)
		if !ok {
			return nil, &ErrInvalidPeer{Address: a}
		}
		k, ok := mapper.PacketKeyOf(id)
		if !ok {
			return nil, &ErrInvalidPeer{Address: a}
		}
		keys = append(keys, k)
	}

	return keys, nil
}
