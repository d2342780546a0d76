package ledger

// DefaultEpochOffset is the session validity window: a login made at epoch N
// can sign until epoch N+DefaultEpochOffset. Two epochs is the shortest
// window that survives an epoch boundary mid-session, which keeps the token
// replay surface as small as possible.
const DefaultEpochOffset = 2

// ExpiryEpoch computes the epoch at which a session created now stops being
// valid. The boundary itself counts as expired.
func ExpiryEpoch(current, offset uint64) uint64 {
	return current + offset
}
