package cc

import "github.com/zwavelink/zwave-driver/internal/security"

// Sequence is a sequence of CCs to be transmitted over one exchange
// (e.g. a NonceGet/NonceReport/CommandEncapsulation chain for S0),
// grounded on original_source/packages/cc/src/cc_sequence.rs.
type Sequence interface {
	Reset()
	Next() (WithAddress[CC], bool)
	IsFinished() bool
	HandleResponse(response CC)
}

// NonSequenced is the trivial one-shot sequence for CCs that need no
// multi-step exchange.
type NonSequenced struct {
	cc       WithAddress[CC]
	finished bool
}

func NewNonSequenced(cc WithAddress[CC]) *NonSequenced {
	return &NonSequenced{cc: cc}
}

func (s *NonSequenced) Reset()            { s.finished = false }
func (s *NonSequenced) IsFinished() bool  { return s.finished }
func (s *NonSequenced) HandleResponse(CC) {}

func (s *NonSequenced) Next() (WithAddress[CC], bool) {
	if s.finished {
		return WithAddress[CC]{}, false
	}
	s.finished = true
	return s.cc, true
}

// securityStep names where an outbound S0Sequence is in its exchange.
type securityStep int

const (
	securityStepNonceGet securityStep = iota
	securityStepAwaitingNonce
	securityStepEncapsulated
	securityStepDone
)

// S0Sequence drives the NonceGet -> NonceReport -> CommandEncapsulation
// exchange needed to send a CC secured under S0 when no free nonce is
// already cached. If a free nonce for the peer is already cached,
// callers should skip the NonceGet round trip entirely by starting the
// sequence at
// securityStepEncapsulated via NewS0SequenceWithNonce.
type S0Sequence struct {
	address    CCAddress
	inner      CC
	manager    *security.Manager
	ownNodeID  uint8
	peerNodeID uint8

	receiverNonce security.S0Nonce
	step          securityStep
}

func NewS0Sequence(address CCAddress, inner CC, manager *security.Manager, ownNodeID, peerNodeID uint8) *S0Sequence {
	return &S0Sequence{address: address, inner: inner, manager: manager, ownNodeID: ownNodeID, peerNodeID: peerNodeID, step: securityStepNonceGet}
}

// NewS0SequenceWithNonce starts the sequence already holding a free
// nonce claimed from the manager, skipping the NonceGet round trip.
func NewS0SequenceWithNonce(address CCAddress, inner CC, manager *security.Manager, ownNodeID, peerNodeID uint8, receiverNonce security.S0Nonce) *S0Sequence {
	return &S0Sequence{
		address: address, inner: inner, manager: manager,
		ownNodeID: ownNodeID, peerNodeID: peerNodeID,
		receiverNonce: receiverNonce, step: securityStepEncapsulated,
	}
}

func (s *S0Sequence) Reset() { s.step = securityStepNonceGet }

func (s *S0Sequence) IsFinished() bool { return s.step == securityStepDone }

func (s *S0Sequence) Next() (WithAddress[CC], bool) {
	switch s.step {
	case securityStepNonceGet:
		s.step = securityStepAwaitingNonce
		return Address[CC](s.address, SecurityNonceGet{}), true
	case securityStepEncapsulated:
		s.step = securityStepDone
		encap := NewCommandEncapsulation(s.inner, s.manager, s.ownNodeID, s.peerNodeID, s.receiverNonce)
		return Address[CC](s.address, encap), true
	default:
		return WithAddress[CC]{}, false
	}
}

// HandleResponse feeds the NonceReport back into the sequence so the
// next Next() call can emit the CommandEncapsulation.
func (s *S0Sequence) HandleResponse(response CC) {
	if s.step != securityStepAwaitingNonce {
		return
	}
	report, ok := response.(SecurityNonceReport)
	if !ok {
		return
	}
	s.receiverNonce = report.Nonce
	s.step = securityStepEncapsulated
}
