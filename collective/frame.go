package collective

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Op identifies the primitive a Frame belongs to.
type Op uint8

const (
	OpBroadcast Op = iota + 1
	OpScatter
	OpGather
	OpBarrier
	OpSend  // point-to-point payload
	OpAbort // group abort notice; Bytes carries the reason
	OpHello // transport handshake; Seq carries the sender's world size
)

func (op Op) String() string {
	switch op {
	case OpBroadcast:
		return "Broadcast"
	case OpScatter:
		return "Scatter"
	case OpGather:
		return "Gather"
	case OpBarrier:
		return "Barrier"
	case OpSend:
		return "Send"
	case OpAbort:
		return "Abort"
	case OpHello:
		return "Hello"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// Frame is the unit a Transport moves from one rank to another.
// Collective payloads travel in Floats, point-to-point and control payloads
// in Bytes.
type Frame struct {
	Op     Op
	Origin int    // sending rank
	Seq    uint64 // collective sequence number, or per-peer message counter for OpSend
	Floats []float64
	Bytes  []byte
}

// frameHeaderLen is op(1) + origin(4) + seq(8) + nfloats(4) + nbytes(4).
const frameHeaderLen = 1 + 4 + 8 + 4 + 4

// MarshalBinary encodes f as a little-endian header followed by the float
// payload (IEEE-754 bits) and the byte payload. Encoding is lossless:
// NaN payloads and signed zeros survive the round trip bit for bit.
func (f Frame) MarshalBinary() ([]byte, error) {
	if f.Origin < 0 || f.Origin > math.MaxInt32 {
		return nil, fmt.Errorf("origin %d: %w", f.Origin, ErrBadFrame)
	}
	buf := make([]byte, frameHeaderLen+8*len(f.Floats)+len(f.Bytes))
	buf[0] = byte(f.Op)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(f.Origin))
	binary.LittleEndian.PutUint64(buf[5:13], f.Seq)
	binary.LittleEndian.PutUint32(buf[13:17], uint32(len(f.Floats)))
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(f.Bytes)))
	off := frameHeaderLen
	for _, v := range f.Floats {
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
		off += 8
	}
	copy(buf[off:], f.Bytes)

	return buf, nil
}

// UnmarshalBinary decodes a frame produced by MarshalBinary. The decoded
// frame owns fresh slices; data may be reused by the caller afterwards.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < frameHeaderLen {
		return fmt.Errorf("short header (%d bytes): %w", len(data), ErrBadFrame)
	}
	op := Op(data[0])
	origin := binary.LittleEndian.Uint32(data[1:5])
	seq := binary.LittleEndian.Uint64(data[5:13])
	nf := int(binary.LittleEndian.Uint32(data[13:17]))
	nb := int(binary.LittleEndian.Uint32(data[17:21]))
	if want := frameHeaderLen + 8*nf + nb; len(data) != want {
		return fmt.Errorf("length %d, header declares %d: %w", len(data), want, ErrBadFrame)
	}

	f.Op = op
	f.Origin = int(origin)
	f.Seq = seq
	f.Floats = nil
	f.Bytes = nil
	off := frameHeaderLen
	if nf > 0 {
		f.Floats = make([]float64, nf)
		for i := range f.Floats {
			f.Floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8]))
			off += 8
		}
	}
	if nb > 0 {
		f.Bytes = make([]byte, nb)
		copy(f.Bytes, data[off:])
	}

	return nil
}

// Clone returns a deep copy of f. Transports that hand frames across
// goroutines use it so no two ranks ever share a payload slice.
func (f Frame) Clone() Frame {
	out := f
	if f.Floats != nil {
		out.Floats = append([]float64(nil), f.Floats...)
	}
	if f.Bytes != nil {
		out.Bytes = append([]byte(nil), f.Bytes...)
	}

	return out
}
