package testutil

import "sync"

// RecordingNotifier captures reset codes instead of sending email.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentCode
	fail error
}

// SentCode is one captured delivery.
type SentCode struct {
	To       string
	Username string
	Code     string
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// FailWith makes subsequent sends return err.
func (n *RecordingNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = err
}

func (n *RecordingNotifier) SendResetCode(to, username, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, SentCode{To: to, Username: username, Code: code})
	return nil
}

// Sent returns the captured deliveries in order.
func (n *RecordingNotifier) Sent() []SentCode {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]SentCode, len(n.sent))
	copy(out, n.sent)
	return out
}

// LastCode returns the most recently delivered code, or "".
func (n *RecordingNotifier) LastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1].Code
}
