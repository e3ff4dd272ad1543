// Package ecdh implements Diffie-Hellman key agreement over a freshly
// generated elliptic-curve group, plus the Salsa20 message encryption
// the chat runs on once the key is established.
package ecdh

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"

	"go.uber.org/zap"

	"github.com/smallyu/go-ecdh/internal/crypto/ec"
	"github.com/smallyu/go-ecdh/internal/crypto/primes"
)

// State of the key-agreement state machine.
type State int

const (
	// StateIdle: nothing exchanged yet.
	StateIdle State = iota
	// StateParamsSent: initiator only; parameters are out, waiting for
	// the peer's point.
	StateParamsSent
	// StateAwaitingPeerPoint: responder only; waiting for the
	// initiator's parameters and public point.
	StateAwaitingPeerPoint
	// StateSharedPointDerived: the shared point and key exist, the
	// peer's confirmation tag is still outstanding.
	StateSharedPointDerived
	// StateConfirmed: both tags verified, the session key is live.
	StateConfirmed
	// StateFailed: a protocol error occurred; the session is dead.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateParamsSent:
		return "ParamsSent"
	case StateAwaitingPeerPoint:
		return "AwaitingPeerPoint"
	case StateSharedPointDerived:
		return "SharedPointDerived"
	case StateConfirmed:
		return "Confirmed"
	default:
		return "Failed"
	}
}

// Config holds session parameters. The zero value is usable: it means
// 2-byte primes, 20 Miller-Rabin rounds, crypto/rand and no logging.
type Config struct {
	// PrimeBytes is the byte length of the generated field prime.
	PrimeBytes int
	// MillerRabinRounds is the iteration count of the primality test.
	MillerRabinRounds int
	// Random is the randomness source for all sampling.
	Random io.Reader
	// Logger receives the structured handshake log.
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.PrimeBytes <= 0 {
		c.PrimeBytes = 2
	}
	if c.MillerRabinRounds <= 0 {
		c.MillerRabinRounds = 20
	}
	if c.Random == nil {
		c.Random = rand.Reader
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Session is one endpoint of the key agreement. It is message-driven:
// the initiator's Start and every HandleMessage call return the wire
// messages to deliver to the peer.
type Session struct {
	cfg       Config
	roleByte  byte
	state     State
	curve     *ec.Curve
	g, ag, bg *ec.Point
	secret    *big.Int
	shared    *ec.Point
	key       [sessionKeyLen]byte
	cipher    *streamCipher
}

// NewInitiator returns a session that will generate the group and start
// the exchange.
func NewInitiator(cfg Config) *Session {
	return &Session{cfg: cfg.withDefaults(), roleByte: roleInitiator, state: StateIdle}
}

// NewResponder returns a session that waits for the peer's parameters.
func NewResponder(cfg Config) *Session {
	return &Session{cfg: cfg.withDefaults(), roleByte: roleResponder, state: StateAwaitingPeerPoint}
}

// State returns the current protocol state.
func (s *Session) State() State { return s.state }

// Established reports whether the session key is confirmed on this
// side.
func (s *Session) Established() bool { return s.state == StateConfirmed }

// SessionKey returns the derived key material, or nil before the shared
// point exists.
func (s *Session) SessionKey() []byte {
	if s.shared == nil {
		return nil
	}
	out := make([]byte, sessionKeyLen)
	copy(out, s.key[:])
	return out
}

// Start generates the group parameters and returns the setup message.
// Initiator only, from StateIdle.
func (s *Session) Start() ([]byte, error) {
	if s.roleByte != roleInitiator || s.state != StateIdle {
		return nil, ErrBadState
	}

	if err := s.generateParameters(); err != nil {
		s.state = StateFailed
		return nil, err
	}

	s.cfg.Logger.Info("key agreement started",
		zap.String("curve", s.curve.String()),
		zap.String("generator", s.g.String()),
		zap.String("public", s.ag.String()),
	)

	s.state = StateParamsSent
	return encodeSetup(s.curve, s.g, s.ag), nil
}

// generateParameters picks the prime, a non-singular curve, a generator
// of the point group and the private scalar.
func (s *Session) generateParameters() error {
	for {
		p, err := primes.PseudoprimeWithBytes(s.cfg.Random, s.cfg.PrimeBytes, s.cfg.MillerRabinRounds)
		if err != nil {
			return err
		}
		if p.Cmp(big.NewInt(3)) <= 0 {
			continue
		}
		s.cfg.Logger.Debug("prime chosen", zap.String("p", p.String()))

		curve, g, err := pickGroup(s.cfg.Random, p)
		if errors.Is(err, ec.ErrNoGenerator) {
			// Likely a non-cyclic point group; draw a new curve.
			continue
		}
		if err != nil {
			return err
		}

		n, err := g.Order(s.cfg.Random)
		if err != nil {
			return err
		}
		a, err := primes.RandomInRange(s.cfg.Random, big.NewInt(1), n)
		if err != nil {
			return err
		}

		s.curve, s.g, s.secret = curve, g, a
		s.ag = s.g.Mul(a).(*ec.Point)
		return nil
	}
}

// pickGroup draws random coefficients until the curve is non-singular
// and its point group has a generator.
func pickGroup(random io.Reader, p *big.Int) (*ec.Curve, *ec.Point, error) {
	for {
		coeffs := make([]*big.Int, 3)
		for i := range coeffs {
			n, err := primes.RandomWithBytes(random, 2*((p.BitLen()+7)/8))
			if err != nil {
				return nil, nil, err
			}
			coeffs[i] = n.Mod(n, p)
		}

		curve, err := ec.NewCurve(coeffs[0], coeffs[1], coeffs[2], p)
		if errors.Is(err, ec.ErrSingularCurve) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		g, err := curve.PickGenerator(random)
		if err != nil {
			return nil, nil, err
		}
		return curve, g, nil
	}
}

// HandleMessage advances the state machine with one incoming wire
// message and returns the messages to send back.
func (s *Session) HandleMessage(msg []byte) ([][]byte, error) {
	out, err := s.handle(msg)
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	return out, nil
}

func (s *Session) handle(msg []byte) ([][]byte, error) {
	switch {
	case s.roleByte == roleResponder && s.state == StateAwaitingPeerPoint:
		return s.handleSetup(msg)
	case s.roleByte == roleInitiator && s.state == StateParamsSent:
		return s.handleReply(msg)
	case s.roleByte == roleResponder && s.state == StateSharedPointDerived:
		return s.handleInitiatorTag(msg)
	case s.roleByte == roleInitiator && s.state == StateSharedPointDerived:
		return s.handleResponderTag(msg)
	default:
		return nil, ErrBadState
	}
}

// handleSetup is the responder's first transition: validate the group,
// pick the private scalar, reply with B*g and derive the key.
func (s *Session) handleSetup(msg []byte) ([][]byte, error) {
	curve, g, ag, err := parseSetup(msg)
	if err != nil {
		return nil, err
	}

	s.cfg.Logger.Info("received key agreement parameters",
		zap.String("curve", curve.String()),
		zap.String("generator", g.String()),
		zap.String("peer public", ag.String()),
	)

	// B is drawn from [1, p+1+2*ceil(sqrt(p))): an upper bound on the group
	// order that avoids computing the cardinality on this side.
	_, upper := curve.HasseInterval()
	b, err := primes.RandomInRange(s.cfg.Random, big.NewInt(1), upper)
	if err != nil {
		return nil, err
	}

	s.curve, s.g, s.ag, s.secret = curve, g, ag, b
	s.bg = g.Mul(b).(*ec.Point)
	s.shared = ag.Mul(b).(*ec.Point)
	s.installKey()

	s.state = StateSharedPointDerived
	return [][]byte{encodeReply(s.bg)}, nil
}

// handleReply is the initiator's second transition: derive the shared
// point and send the first confirmation tag.
func (s *Session) handleReply(msg []byte) ([][]byte, error) {
	bg, err := parseReply(s.curve, msg)
	if err != nil {
		return nil, err
	}

	s.bg = bg
	s.shared = bg.Mul(s.secret).(*ec.Point)
	s.installKey()
	s.logEstablished()

	s.state = StateSharedPointDerived
	tag := confirmationTag(initiatorTagDomain, s.ag, s.bg)
	return [][]byte{s.cipher.encrypt(tag)}, nil
}

// handleInitiatorTag verifies the initiator's tag and answers with the
// responder's own.
func (s *Session) handleInitiatorTag(msg []byte) ([][]byte, error) {
	got, err := s.cipher.decrypt(msg)
	if err != nil {
		return nil, err
	}
	want := confirmationTag(initiatorTagDomain, s.ag, s.bg)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, ErrProtocolMismatch
	}

	s.logEstablished()
	s.state = StateConfirmed
	tag := confirmationTag(responderTagDomain, s.ag, s.bg)
	return [][]byte{s.cipher.encrypt(tag)}, nil
}

// handleResponderTag closes the loop on the initiator side.
func (s *Session) handleResponderTag(msg []byte) ([][]byte, error) {
	got, err := s.cipher.decrypt(msg)
	if err != nil {
		return nil, err
	}
	want := confirmationTag(responderTagDomain, s.ag, s.bg)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, ErrProtocolMismatch
	}

	s.state = StateConfirmed
	return nil, nil
}

func (s *Session) installKey() {
	s.key = deriveKey(s.shared)
	s.cipher = newStreamCipher(s.key, s.roleByte)
}

func (s *Session) logEstablished() {
	s.cfg.Logger.Info("key exchange done",
		zap.String("curve", s.curve.String()),
		zap.String("generator", s.g.String()),
		zap.String("a*g", s.ag.String()),
		zap.String("b*g", s.bg.String()),
		zap.String("key fingerprint", fmt.Sprintf("%x", s.key[:8])),
	)
}

// EncryptMessage encrypts application data. Only valid once the session
// is confirmed.
func (s *Session) EncryptMessage(plaintext []byte) ([]byte, error) {
	if s.state != StateConfirmed {
		return nil, ErrNotEstablished
	}
	return s.cipher.encrypt(plaintext), nil
}

// DecryptMessage decrypts application data from the peer.
func (s *Session) DecryptMessage(ciphertext []byte) ([]byte, error) {
	if s.state != StateConfirmed {
		return nil, ErrNotEstablished
	}
	return s.cipher.decrypt(ciphertext)
}
