package ec

import (
	"math/big"

	"github.com/smallyu/go-ecdh/pkg/group"
)

// Canonical point encoding, shared by equality keys, the key-derivation
// input and the wire format:
//
//	O             -> 0x00
//	affine (x, y) -> 0x04 || x || y, both coordinates big-endian and
//	                 padded to the field byte length.
const (
	tagIdentity = 0x00
	tagAffine   = 0x04
)

// fieldByteLen is the number of bytes needed for a coordinate mod p.
func (c *Curve) fieldByteLen() int {
	return (c.p.BitLen() + 7) / 8
}

// Bytes returns the canonical encoding of the point.
func (p *Point) Bytes() []byte {
	if p.inf {
		return []byte{tagIdentity}
	}
	n := p.curve.fieldByteLen()
	out := make([]byte, 1+2*n)
	out[0] = tagAffine
	p.x.FillBytes(out[1 : 1+n])
	p.y.FillBytes(out[1+n:])
	return out
}

// PointFromBytes decodes a canonical encoding back into a point of this
// curve, validating the curve equation.
func (c *Curve) PointFromBytes(b []byte) (*Point, error) {
	if len(b) == 1 && b[0] == tagIdentity {
		return c.Identity(), nil
	}
	n := c.fieldByteLen()
	if len(b) != 1+2*n || b[0] != tagAffine {
		return nil, group.ErrInvalidEncoding
	}
	x := new(big.Int).SetBytes(b[1 : 1+n])
	y := new(big.Int).SetBytes(b[1+n:])
	return c.NewPoint(x, y)
}
