// Package session implements the reliable framed transport (component B of
// the relay core) on top of an unreliable datagram pipe: a stateless
// construction for low-latency unreliable streams, and a stateful
// construction that adds acknowledgement- and retransmission-based
// reliability.
package session

import (
	"encoding/binary"
	"fmt"

	"github.com/hoprnet/hopr-relay-core/frame"
)

// messageTag identifies which SessionMessage variant follows on the wire.
type messageTag uint8

const (
	tagSegment     messageTag = 0
	tagRequest     messageTag = 1
	tagAcknowledge messageTag = 2
)

// Message is the tagged union sent over the datagram transport:
// Segment(Segment) | Request(missing-segment bitmap) | Acknowledge(frame
// ids). Exactly one of the three fields is populated, selected by Tag.
type Message struct {
	Tag         messageTag
	Segment     frame.Segment
	Request     RetransmitRequest
	Acknowledge []frame.ID
}

// RetransmitRequest asks the peer to resend specific segments of one frame.
type RetransmitRequest struct {
	FrameID frame.ID

	// Missing is a bitmap of missing segment indices; bit i set means
	// seq_idx i is still needed. Supports frames with up to 64 segments,
	// a superset of the 8-bit minimum the wire format guarantees.
	Missing uint64
}

// NewSegmentMessage wraps a Segment as a Message.
func NewSegmentMessage(seg frame.Segment) Message {
	return Message{Tag: tagSegment, Segment: seg}
}

// NewRequestMessage wraps a RetransmitRequest as a Message.
func NewRequestMessage(req RetransmitRequest) Message {
	return Message{Tag: tagRequest, Request: req}
}

// NewAcknowledgeMessage wraps a batch of fully-received frame ids as a
// Message.
func NewAcknowledgeMessage(ids []frame.ID) Message {
	return Message{Tag: tagAcknowledge, Acknowledge: ids}
}

// Encode serializes a Message to the wire format described in the relay
// core's external interfaces:
//
//	tag: u8
//	Segment:     frame_id u32BE, seq_idx u8, seq_len u8, data [...]
//	Request:     frame_id u32BE, missing-bitmap (8 bytes, LE)
//	Acknowledge: count u16BE, count * (frame_id u32BE)
func (m Message) Encode() ([]byte, error) {
	switch m.Tag {
	case tagSegment:
		buf := make([]byte, 1+4+1+1+len(m.Segment.Data))
		buf[0] = byte(tagSegment)
		binary.BigEndian.PutUint32(buf[1:5], uint32(m.Segment.FrameID))
		buf[5] = m.Segment.SeqIdx
		buf[6] = m.Segment.SeqLen
		copy(buf[7:], m.Segment.Data)
		return buf, nil

	case tagRequest:
		buf := make([]byte, 1+4+8)
		buf[0] = byte(tagRequest)
		binary.BigEndian.PutUint32(buf[1:5], uint32(m.Request.FrameID))
		binary.LittleEndian.PutUint64(buf[5:13], m.Request.Missing)
		return buf, nil

	case tagAcknowledge:
		if len(m.Acknowledge) > 0xFFFF {
			return nil, fmt.Errorf("session: too many acknowledged "+
				"frame ids in one batch: %d", len(m.Acknowledge))
		}
		buf := make([]byte, 1+2+4*len(m.Acknowledge))
		buf[0] = byte(tagAcknowledge)
		binary.BigEndian.PutUint16(buf[1:3], uint16(len(m.Acknowledge)))
		off := 3
		for _, id := range m.Acknowledge {
			binary.BigEndian.PutUint32(buf[off:off+4], uint32(id))
			off += 4
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("session: unknown message tag %d", m.Tag)
	}
}

// Decode parses a Message from its wire representation.
func Decode(b []byte) (Message, error) {
	if len(b) < 1 {
		return Message{}, fmt.Errorf("session: empty datagram")
	}

	switch messageTag(b[0]) {
	case tagSegment:
		if len(b) < 7 {
			return Message{}, fmt.Errorf("session: truncated segment")
		}
		return Message{
			Tag: tagSegment,
			Segment: frame.Segment{
				FrameID: frame.ID(binary.BigEndian.Uint32(b[1:5])),
				SeqIdx:  b[5],
				SeqLen:  b[6],
				Data:    append([]byte(nil), b[7:]...),
			},
		}, nil

	case tagRequest:
		if len(b) < 13 {
			return Message{}, fmt.Errorf("session: truncated request")
		}
		return Message{
			Tag: tagRequest,
			Request: RetransmitRequest{
				FrameID: frame.ID(binary.BigEndian.Uint32(b[1:5])),
				Missing: binary.LittleEndian.Uint64(b[5:13]),
			},
		}, nil

	case tagAcknowledge:
		if len(b) < 3 {
			return Message{}, fmt.Errorf("session: truncated acknowledge")
		}
		count := int(binary.BigEndian.Uint16(b[1:3]))
		if len(b) < 3+4*count {
			return Message{}, fmt.Errorf("session: truncated " +
				"acknowledge frame id list")
		}
		ids := make([]frame.ID, count)
		off := 3
		for i := 0; i < count; i++ {
			ids[i] = frame.ID(binary.BigEndian.Uint32(b[off : off+4]))
			off += 4
		}
		return Message{Tag: tagAcknowledge, Acknowledge: ids}, nil

	default:
		return Message{}, fmt.Errorf("session: unknown message tag %d", b[0])
	}
}
