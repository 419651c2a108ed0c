package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Operation names, used for fault injection and logging.
const (
	OpCheckUserExists = "checkUserExists"
	OpGetUsername     = "getUsername"
	OpCreateAccount   = "createAccount"
	OpAddFriend       = "addFriend"
	OpGetFriendList   = "getMyFriendList"
	OpSendMessage     = "sendMessage"
	OpReadMessages    = "readMessage"
)

// threadKey identifies the shared message log of an unordered account pair.
type threadKey struct {
	lo, hi Address
}

func newThreadKey(a, b Address) threadKey {
	for i := 0; i < AddressLength; i++ {
		if a[i] < b[i] {
			return threadKey{lo: a, hi: b}
		}
		if a[i] > b[i] {
			return threadKey{lo: b, hi: a}
		}
	}
	return threadKey{lo: a, hi: b}
}

// MemoryLedger is an in-process Ledger with the deployed contract's revert
// semantics. It backs tests and the demo client.
//
// Friend edges are recorded on both sides, as the contract does, and the two
// parties of a thread read the same message log. Timestamps come from the
// configured TimeProvider so tests can pin ordering.
type MemoryLedger struct {
	accounts map[Address]string
	friends  map[Address][]FriendRecord
	messages map[threadKey][]Message
	faults   map[string]error
	tp       TimeProvider

	mu sync.Mutex
}

// NewMemoryLedger creates an empty MemoryLedger using system time.
func NewMemoryLedger() *MemoryLedger {
	return NewMemoryLedgerWithTimeProvider(nil)
}

// NewMemoryLedgerWithTimeProvider creates an empty MemoryLedger with a custom
// time provider. A nil provider falls back to system time.
func NewMemoryLedgerWithTimeProvider(tp TimeProvider) *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[Address]string),
		friends:  make(map[Address][]FriendRecord),
		messages: make(map[threadKey][]Message),
		faults:   make(map[string]error),
		tp:       getTimeProvider(tp),
	}
}

// SetFault makes every subsequent call of the named operation fail with the
// given error until ClearFault. A nil error defaults to ErrUnreachable.
func (m *MemoryLedger) SetFault(op string, err error) {
	if err == nil {
		err = ErrUnreachable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = err
}

// ClearFault removes an injected fault for the named operation.
func (m *MemoryLedger) ClearFault(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.faults, op)
}

// fault returns the injected error for op, if any. Caller must hold m.mu.
func (m *MemoryLedger) fault(op string) error {
	return m.faults[op]
}

// CheckUserExists reports whether addr is a registered account.
func (m *MemoryLedger) CheckUserExists(ctx context.Context, addr Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpCheckUserExists); err != nil {
		return false, err
	}
	_, ok := m.accounts[addr]
	return ok, nil
}

// GetUsername returns the stored username for addr.
func (m *MemoryLedger) GetUsername(ctx context.Context, addr Address) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpGetUsername); err != nil {
		return "", err
	}
	name, ok := m.accounts[addr]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// CreateAccount registers caller under the given username.
func (m *MemoryLedger) CreateAccount(ctx context.Context, caller Address, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpCreateAccount); err != nil {
		return err
	}
	if _, ok := m.accounts[caller]; ok {
		return newRevertError(OpCreateAccount, RevertAccountExists)
	}
	m.accounts[caller] = username

	logrus.WithFields(logrus.Fields{
		"function": "CreateAccount",
		"receipt":  uuid.NewString(),
		"caller":   caller.Short(),
		"username": username,
	}).Info("account registered")

	return nil
}

// AddFriend records friend under displayName in caller's friend list and,
// mirroring the contract, caller under caller's own username in friend's
// list.
func (m *MemoryLedger) AddFriend(ctx context.Context, caller, friend Address, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpAddFriend); err != nil {
		return err
	}
	callerName, ok := m.accounts[caller]
	if !ok {
		return newRevertError(OpAddFriend, RevertUnknownAccount)
	}
	if _, ok := m.accounts[friend]; !ok {
		return newRevertError(OpAddFriend, RevertUnknownAccount)
	}
	if caller == friend {
		return newRevertError(OpAddFriend, RevertSelfFriend)
	}
	for _, rec := range m.friends[caller] {
		if rec.Address == friend {
			return newRevertError(OpAddFriend, RevertDuplicateFriend)
		}
	}
	m.friends[caller] = append(m.friends[caller], FriendRecord{Address: friend, Name: displayName})
	m.friends[friend] = append(m.friends[friend], FriendRecord{Address: caller, Name: callerName})

	logrus.WithFields(logrus.Fields{
		"function":     "AddFriend",
		"receipt":      uuid.NewString(),
		"caller":       caller.Short(),
		"friend":       friend.Short(),
		"display_name": displayName,
	}).Info("friend edge recorded")

	return nil
}

// GetFriendList returns caller's stored friend list.
func (m *MemoryLedger) GetFriendList(ctx context.Context, caller Address) ([]FriendRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpGetFriendList); err != nil {
		return nil, err
	}
	list := make([]FriendRecord, len(m.friends[caller]))
	copy(list, m.friends[caller])
	return list, nil
}

// SendMessage appends a message from caller to the log shared with recipient.
func (m *MemoryLedger) SendMessage(ctx context.Context, caller, recipient Address, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpSendMessage); err != nil {
		return err
	}
	if _, ok := m.accounts[caller]; !ok {
		return newRevertError(OpSendMessage, RevertUnknownAccount)
	}
	friends := false
	for _, rec := range m.friends[caller] {
		if rec.Address == recipient {
			friends = true
			break
		}
	}
	if !friends {
		return newRevertError(OpSendMessage, RevertNotFriends)
	}

	key := newThreadKey(caller, recipient)
	m.messages[key] = append(m.messages[key], Message{
		Sender:    caller,
		Timestamp: m.tp.Now().Unix(),
		Payload:   payload,
	})

	logrus.WithFields(logrus.Fields{
		"function":  "SendMessage",
		"receipt":   uuid.NewString(),
		"caller":    caller.Short(),
		"recipient": recipient.Short(),
		"size":      len(payload),
	}).Info("message appended")

	return nil
}

// ReadMessages returns the message log shared between caller and
// counterparty, oldest first.
func (m *MemoryLedger) ReadMessages(ctx context.Context, caller, counterparty Address) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpReadMessages); err != nil {
		return nil, err
	}
	log := m.messages[newThreadKey(caller, counterparty)]
	out := make([]Message, len(log))
	copy(out, log)
	return out, nil
}
