package ecdh

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/smallyu/go-ecdh/internal/crypto/ec"
)

// Wire format of the setup message: the integers p, a, b, c as 4-byte
// big-endian length prefixes followed by big-endian magnitude bytes,
// then the canonical encodings of g and A*g.

func appendInt(dst []byte, n *big.Int) []byte {
	b := n.Bytes()
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	dst = append(dst, l[:]...)
	return append(dst, b...)
}

func readInt(b []byte) (*big.Int, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated integer length", ErrInvalidMessage)
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, fmt.Errorf("%w: truncated integer body", ErrInvalidMessage)
	}
	return new(big.Int).SetBytes(b[:n]), b[n:], nil
}

// readPoint consumes one canonical point encoding for a curve whose
// coordinates take fieldLen bytes each.
func readPoint(curve *ec.Curve, fieldLen int, b []byte) (*ec.Point, []byte, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("%w: missing point", ErrInvalidMessage)
	}
	size := 1
	if b[0] != 0x00 {
		size = 1 + 2*fieldLen
	}
	if len(b) < size {
		return nil, nil, fmt.Errorf("%w: truncated point", ErrInvalidMessage)
	}
	pt, err := curve.PointFromBytes(b[:size])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return pt, b[size:], nil
}

func encodeSetup(curve *ec.Curve, g, ag *ec.Point) []byte {
	msg := appendInt(nil, curve.P())
	msg = appendInt(msg, curve.A())
	msg = appendInt(msg, curve.B())
	msg = appendInt(msg, curve.C())
	msg = append(msg, g.Bytes()...)
	return append(msg, ag.Bytes()...)
}

// parseSetup validates everything the responder must not take on faith:
// the curve construction re-checks primality and non-singularity, the
// point decoding re-checks the curve equation.
func parseSetup(msg []byte) (*ec.Curve, *ec.Point, *ec.Point, error) {
	p, rest, err := readInt(msg)
	if err != nil {
		return nil, nil, nil, err
	}
	a, rest, err := readInt(rest)
	if err != nil {
		return nil, nil, nil, err
	}
	b, rest, err := readInt(rest)
	if err != nil {
		return nil, nil, nil, err
	}
	c, rest, err := readInt(rest)
	if err != nil {
		return nil, nil, nil, err
	}

	curve, err := ec.NewCurve(a, b, c, p)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	fieldLen := (p.BitLen() + 7) / 8
	g, rest, err := readPoint(curve, fieldLen, rest)
	if err != nil {
		return nil, nil, nil, err
	}
	ag, rest, err := readPoint(curve, fieldLen, rest)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidMessage, len(rest))
	}
	return curve, g, ag, nil
}

func encodeReply(bg *ec.Point) []byte {
	return bg.Bytes()
}

func parseReply(curve *ec.Curve, msg []byte) (*ec.Point, error) {
	pt, err := curve.PointFromBytes(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return pt, nil
}
