package security

import (
	"sync"

	"github.com/zwavelink/zwave-driver/internal/command"
)

type nonceKey struct {
	Issuer  command.NodeId
	NonceID byte
}

type nonceEntry struct {
	nonce    S0Nonce
	receiver command.NodeId
}

// ManagerOptions configures a Manager for one S0-secured session.
type ManagerOptions struct {
	OwnNodeID  command.NodeId
	NetworkKey NetworkKey
}

// Manager holds the S0 keys derived for a session plus the three nonce
// maps (nonce_store / free_nonces / receiver_nonces) from
// original_source/packages/core/src/security/manager.rs, guarded by a
// single mutex rather than per-map RwLocks: the Rust original takes them
// jointly whenever a nonce is created or consumed, so nothing is gained
// from finer-grained locking here.
type Manager struct {
	ownNodeID  command.NodeId
	authKey    NetworkKey
	encKey     NetworkKey

	mu             sync.Mutex
	nonceStore     map[nonceKey]nonceEntry
	freeNonces     map[command.NodeId]nonceKey
	receiverNonces map[command.NodeId]nonceKey
}

func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		ownNodeID:      opts.OwnNodeID,
		authKey:        generateAuthKey(opts.NetworkKey),
		encKey:         generateEncKey(opts.NetworkKey),
		nonceStore:     make(map[nonceKey]nonceEntry),
		freeNonces:     make(map[command.NodeId]nonceKey),
		receiverNonces: make(map[command.NodeId]nonceKey),
	}
}

func (m *Manager) AuthKey() []byte { return m.authKey.Bytes() }
func (m *Manager) EncKey() []byte  { return m.encKey.Bytes() }

func (m *Manager) hasNonce(nonceID byte) bool {
	_, ok := m.nonceStore[nonceKey{Issuer: m.ownNodeID, NonceID: nonceID}]
	return ok
}

// GenerateNonce creates and stores a fresh own-issued nonce for receiver,
// retrying on id collision with an already-stored nonce.
func (m *Manager) GenerateNonce(receiver command.NodeId) S0Nonce {
	m.mu.Lock()
	defer m.mu.Unlock()

	var nonce S0Nonce
	for {
		nonce = RandomS0Nonce()
		if !m.hasNonce(nonce.ID()) {
			break
		}
	}
	m.setNonceLocked(m.ownNodeID, receiver, nonce, false)
	return nonce
}

// SetNonce records a nonce issued by issuer for receiver, optionally
// marking it as free (claimable without a specific transaction in mind).
func (m *Manager) SetNonce(issuer, receiver command.NodeId, nonce S0Nonce, free bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setNonceLocked(issuer, receiver, nonce, free)
}

func (m *Manager) setNonceLocked(issuer, receiver command.NodeId, nonce S0Nonce, free bool) {
	key := nonceKey{Issuer: issuer, NonceID: nonce.ID()}

	if existing, ok := m.receiverNonces[receiver]; ok {
		delete(m.nonceStore, existing)
	}

	m.nonceStore[key] = nonceEntry{nonce: nonce, receiver: receiver}
	m.receiverNonces[receiver] = key

	if free {
		m.freeNonces[issuer] = key
	}
}

func (m *Manager) deleteNonceLocked(issuer command.NodeId, nonceID byte) {
	key := nonceKey{Issuer: issuer, NonceID: nonceID}

	old, had := m.nonceStore[key]
	delete(m.nonceStore, key)

	if m.freeNonces[issuer] == key {
		delete(m.freeNonces, issuer)
	}
	if had {
		delete(m.receiverNonces, old.receiver)
	}
}

// DeleteNonceForReceiver deletes whichever nonce was most recently
// issued for receiver, if any.
func (m *Manager) DeleteNonceForReceiver(receiver command.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.receiverNonces[receiver]
	if !ok {
		return
	}
	delete(m.receiverNonces, receiver)
	m.deleteNonceLocked(key.Issuer, key.NonceID)
}

// DeleteOwnNonce deletes a nonce this manager issued, by id.
func (m *Manager) DeleteOwnNonce(nonceID byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteNonceLocked(m.ownNodeID, nonceID)
}

// TryGetOwnNonce retrieves and consumes a nonce this manager issued. The
// same nonce can only be retrieved once.
func (m *Manager) TryGetOwnNonce(nonceID byte) (S0Nonce, bool) {
	return m.TryGetNonce(m.ownNodeID, nonceID)
}

// TryGetNonce retrieves and consumes a nonce issued by issuer, by id. The
// same nonce can only be retrieved once.
func (m *Manager) TryGetNonce(issuer command.NodeId, nonceID byte) (S0Nonce, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nonceKey{Issuer: issuer, NonceID: nonceID}
	delete(m.freeNonces, issuer)
	entry, ok := m.nonceStore[key]
	if !ok {
		return S0Nonce{}, false
	}
	delete(m.nonceStore, key)
	return entry.nonce, true
}

// TryClaimNonce returns the nonce issued for issuer marked as free
// (reserved for no specific transaction), without consuming it from the
// store: it remains retrievable via TryGetNonce.
func (m *Manager) TryClaimNonce(issuer command.NodeId) (S0Nonce, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.freeNonces[issuer]
	if !ok {
		return S0Nonce{}, false
	}
	delete(m.freeNonces, issuer)
	entry, ok := m.nonceStore[key]
	if !ok {
		return S0Nonce{}, false
	}
	return entry.nonce, true
}
