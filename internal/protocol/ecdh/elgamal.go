package ecdh

import (
	"io"
	"math/big"

	"golang.org/x/crypto/salsa20"

	"github.com/smallyu/go-ecdh/internal/crypto/ec"
	"github.com/smallyu/go-ecdh/internal/crypto/primes"
)

// PublicKey is an ElGamal-style public key: the group, its generator
// and A*g for the secret A.
type PublicKey struct {
	Curve *ec.Curve
	G     *ec.Point
	AG    *ec.Point
}

// PrivateKey adds the secret scalar.
type PrivateKey struct {
	PublicKey
	A *big.Int
}

// SealedMessage is a one-shot ciphertext: the ephemeral public point
// and the Salsa20-encrypted payload.
type SealedMessage struct {
	BG         *ec.Point
	Ciphertext []byte
}

// GenerateKeyPair builds a fresh group and keypair with the same
// parameter generation the session handshake uses.
func GenerateKeyPair(cfg Config) (*PrivateKey, error) {
	s := NewInitiator(cfg)
	if err := s.generateParameters(); err != nil {
		return nil, err
	}
	return &PrivateKey{
		PublicKey: PublicKey{Curve: s.curve, G: s.g, AG: s.ag},
		A:         s.secret,
	}, nil
}

// Seal encrypts msg to the public key: an ephemeral scalar b yields
// b*g to transmit and ab*g as the shared secret.
func (pk *PublicKey) Seal(random io.Reader, msg []byte) (*SealedMessage, error) {
	_, upper := pk.Curve.HasseInterval()
	b, err := primes.RandomInRange(random, big.NewInt(1), upper)
	if err != nil {
		return nil, err
	}

	bg := pk.G.Mul(b).(*ec.Point)
	abg := pk.AG.Mul(b).(*ec.Point)
	key := deriveSharedKey(bg, abg)

	ct := make([]byte, len(msg))
	var k [32]byte
	copy(k[:], key[:32])
	salsa20.XORKeyStream(ct, msg, key[32:40], &k)

	return &SealedMessage{BG: bg, Ciphertext: ct}, nil
}

// Open decrypts a sealed message with the private scalar.
func (sk *PrivateKey) Open(sm *SealedMessage) ([]byte, error) {
	if sm.BG == nil || !sm.BG.Curve().Equal(sk.Curve) {
		return nil, ErrInvalidMessage
	}

	abg := sm.BG.Mul(sk.A).(*ec.Point)
	key := deriveSharedKey(sm.BG, abg)

	pt := make([]byte, len(sm.Ciphertext))
	var k [32]byte
	copy(k[:], key[:32])
	salsa20.XORKeyStream(pt, sm.Ciphertext, key[32:40], &k)
	return pt, nil
}
