package ledger

import (
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/zkpoll/zkvote/crypto/bcs"
	"github.com/zkpoll/zkvote/types"
)

const (
	// DefaultGasBudget is the gas budget attached to transactions when the
	// caller does not set one.
	DefaultGasBudget = 10_000_000
	// DefaultGasPrice is the reference gas price fallback.
	DefaultGasPrice = 1_000

	// objectDigestSize is the decoded length of a base58 object digest.
	objectDigestSize = 32

	// txDigestPrefix salts the transaction digest hash, separating it from
	// other blake2b domains.
	txDigestPrefix = "TransactionData::"
)

// intentTransactionData is the three-byte intent (scope, version, app id)
// prepended to transaction bytes before hashing for signature.
var intentTransactionData = []byte{0, 0, 0}

// ObjectRef identifies a specific version of an owned object, used for gas
// payment and owned-object call arguments.
type ObjectRef struct {
	ID      types.Address `json:"objectId"`
	Version uint64        `json:"version"`
	Digest  string        `json:"digest"`
}

// CallArg is one argument of a programmable move call.
type CallArg struct {
	pure   []byte
	object *objectArg
}

type objectArg struct {
	shared         bool
	id             types.Address
	initialVersion uint64
	mutable        bool
	ref            ObjectRef
}

// Pure wraps already-serialized bytes as a pure call argument.
func Pure(data []byte) CallArg {
	return CallArg{pure: data}
}

// PureU64 serializes a u64 pure argument.
func PureU64(v uint64) CallArg {
	w := bcs.NewWriter()
	w.WriteU64(v)
	return CallArg{pure: w.Bytes()}
}

// PureBool serializes a bool pure argument.
func PureBool(v bool) CallArg {
	w := bcs.NewWriter()
	w.WriteBool(v)
	return CallArg{pure: w.Bytes()}
}

// PureString serializes a string pure argument.
func PureString(s string) CallArg {
	w := bcs.NewWriter()
	w.WriteString(s)
	return CallArg{pure: w.Bytes()}
}

// PureBytes serializes a vector<u8> pure argument.
func PureBytes(b []byte) CallArg {
	w := bcs.NewWriter()
	w.WriteBytes(b)
	return CallArg{pure: w.Bytes()}
}

// PureAddress serializes an address pure argument.
func PureAddress(a types.Address) CallArg {
	return CallArg{pure: a[:]}
}

// SharedObject references a shared object by id and initial shared version.
func SharedObject(id types.Address, initialVersion uint64, mutable bool) CallArg {
	return CallArg{object: &objectArg{
		shared:         true,
		id:             id,
		initialVersion: initialVersion,
		mutable:        mutable,
	}}
}

// OwnedObject references an owned object by its full reference.
func OwnedObject(ref ObjectRef) CallArg {
	return CallArg{object: &objectArg{ref: ref}}
}

type moveCall struct {
	pkg      types.Address
	module   string
	function string
	args     []CallArg
}

// Transaction is a pending programmable transaction: one or more move calls
// against configured program targets, plus sender and gas data. The sender
// is set by the signing bridge, never by the caller building the calls.
type Transaction struct {
	sender     types.Address
	calls      []moveCall
	gasPayment []ObjectRef
	gasPrice   uint64
	gasBudget  uint64
}

// NewTransaction returns an empty transaction with default gas settings.
func NewTransaction() *Transaction {
	return &Transaction{
		gasPrice:  DefaultGasPrice,
		gasBudget: DefaultGasBudget,
	}
}

// MoveCall appends a call to function in module of the given package, with
// positional arguments.
func (t *Transaction) MoveCall(pkg types.Address, module, function string, args ...CallArg) *Transaction {
	t.calls = append(t.calls, moveCall{pkg: pkg, module: module, function: function, args: args})
	return t
}

// SetSender sets the transaction sender address.
func (t *Transaction) SetSender(a types.Address) {
	t.sender = a
}

// Sender returns the current sender address.
func (t *Transaction) Sender() types.Address {
	return t.sender
}

// SetGas configures gas payment objects, price and budget.
func (t *Transaction) SetGas(payment []ObjectRef, price, budget uint64) {
	t.gasPayment = payment
	if price > 0 {
		t.gasPrice = price
	}
	if budget > 0 {
		t.gasBudget = budget
	}
}

// Build serializes the transaction into canonical TransactionData bytes.
// The sender must be set first.
func (t *Transaction) Build() ([]byte, error) {
	if t.sender.IsZero() {
		return nil, fmt.Errorf("transaction sender not set")
	}
	if len(t.calls) == 0 {
		return nil, fmt.Errorf("transaction has no calls")
	}

	// Deduplicate nothing: inputs are laid out in call order, each call
	// argument becomes one entry in the inputs vector.
	var inputs []CallArg
	type argRef struct{ index uint16 }
	callArgIndexes := make([][]argRef, len(t.calls))
	for i, call := range t.calls {
		for _, a := range call.args {
			callArgIndexes[i] = append(callArgIndexes[i], argRef{index: uint16(len(inputs))})
			inputs = append(inputs, a)
		}
	}

	w := bcs.NewWriter()
	w.WriteVariant(0) // TransactionData::V1
	w.WriteVariant(0) // TransactionKind::ProgrammableTransaction

	// inputs: vector<CallArg>
	w.WriteULEB128(uint64(len(inputs)))
	for _, in := range inputs {
		if err := encodeCallArg(w, in); err != nil {
			return nil, err
		}
	}

	// commands: vector<Command>, all MoveCall
	w.WriteULEB128(uint64(len(t.calls)))
	for i, call := range t.calls {
		w.WriteVariant(0) // Command::MoveCall
		w.WriteFixedBytes(call.pkg[:])
		w.WriteString(call.module)
		w.WriteString(call.function)
		w.WriteULEB128(0) // no type arguments
		w.WriteULEB128(uint64(len(callArgIndexes[i])))
		for _, ref := range callArgIndexes[i] {
			w.WriteVariant(1) // Argument::Input
			w.WriteU16(ref.index)
		}
	}

	// sender
	w.WriteFixedBytes(t.sender[:])

	// gas data: payment, owner, price, budget
	w.WriteULEB128(uint64(len(t.gasPayment)))
	for _, ref := range t.gasPayment {
		if err := encodeObjectRef(w, ref); err != nil {
			return nil, err
		}
	}
	w.WriteFixedBytes(t.sender[:])
	w.WriteU64(t.gasPrice)
	w.WriteU64(t.gasBudget)

	w.WriteVariant(0) // TransactionExpiration::None
	return w.Bytes(), nil
}

func encodeCallArg(w *bcs.Writer, a CallArg) error {
	if a.object == nil {
		w.WriteVariant(0) // CallArg::Pure
		w.WriteBytes(a.pure)
		return nil
	}
	w.WriteVariant(1) // CallArg::Object
	if a.object.shared {
		w.WriteVariant(1) // ObjectArg::SharedObject
		w.WriteFixedBytes(a.object.id[:])
		w.WriteU64(a.object.initialVersion)
		w.WriteBool(a.object.mutable)
		return nil
	}
	w.WriteVariant(0) // ObjectArg::ImmOrOwnedObject
	return encodeObjectRef(w, a.object.ref)
}

func encodeObjectRef(w *bcs.Writer, ref ObjectRef) error {
	digest, err := base58.Decode(ref.Digest)
	if err != nil {
		return fmt.Errorf("decode object digest %q: %w", ref.Digest, err)
	}
	if len(digest) != objectDigestSize {
		return fmt.Errorf("object digest %q has length %d, want %d", ref.Digest, len(digest), objectDigestSize)
	}
	w.WriteFixedBytes(ref.ID[:])
	w.WriteU64(ref.Version)
	w.WriteBytes(digest)
	return nil
}

// IntentDigest returns the blake2b-256 digest of the intent message for the
// given transaction bytes. This is what the ephemeral key signs.
func IntentDigest(txBytes []byte) []byte {
	msg := make([]byte, 0, len(intentTransactionData)+len(txBytes))
	msg = append(msg, intentTransactionData...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)
	return digest[:]
}

// Digest computes the base58 transaction digest for the given transaction
// bytes, as the ledger reports it.
func Digest(txBytes []byte) string {
	msg := make([]byte, 0, len(txDigestPrefix)+len(txBytes))
	msg = append(msg, txDigestPrefix...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)
	return base58.Encode(digest[:])
}
