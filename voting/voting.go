// Package voting wraps the on-chain voting program's entry functions into
// ready-to-sign transactions. It knows the configured program targets and
// argument order, nothing about the program's semantics; the chain enforces
// those.
package voting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zkpoll/zkvote/crypto/bcs"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/types"
)

const votingModule = "voting"

// clockObjectID is the singleton clock object every timed entry function
// takes as its last argument. Its initial shared version is fixed at genesis.
var clockObjectID = func() types.Address {
	var a types.Address
	a[31] = 0x06
	return a
}()

const clockInitialVersion = 1

// Config holds the deployed program and registry object ids, set once from
// the gateway configuration.
type Config struct {
	PackageID        types.Address
	VotingRegistryID types.Address
	PollRegistryID   types.Address
}

// ObjectSource resolves object ids to their on-chain metadata. *ledger.Client
// satisfies it.
type ObjectSource interface {
	Object(ctx context.Context, id string) (json.RawMessage, error)
}

// Program builds transactions against one deployed voting program.
type Program struct {
	cfg     Config
	objects ObjectSource
}

func New(cfg Config, objects ObjectSource) (*Program, error) {
	if cfg.PackageID.IsZero() {
		return nil, fmt.Errorf("voting package id not configured")
	}
	if objects == nil {
		return nil, fmt.Errorf("nil object source")
	}
	return &Program{cfg: cfg, objects: objects}, nil
}

// CreatePoll builds a create_poll transaction: name, description, the choice
// object ids and a deadline as a unix timestamp in milliseconds.
func (p *Program) CreatePoll(name, description string, choices []types.Address, deadlineMillis uint64) (*ledger.Transaction, error) {
	if len(choices) < 2 {
		return nil, fmt.Errorf("a poll needs at least two choices, got %d", len(choices))
	}
	tx := ledger.NewTransaction()
	tx.MoveCall(p.cfg.PackageID, votingModule, "create_poll",
		ledger.PureString(name),
		ledger.PureString(description),
		pureIDVector(choices),
		ledger.PureU64(deadlineMillis),
	)
	return tx, nil
}

// CastVote builds a cast_vote transaction for one choice of one poll. The
// nullifier identifies the voter to the program's double-vote check.
func (p *Program) CastVote(ctx context.Context, pollID, choiceID types.Address, nullifier types.HexBytes) (*ledger.Transaction, error) {
	registry, err := p.sharedArg(ctx, p.cfg.VotingRegistryID, true)
	if err != nil {
		return nil, err
	}
	poll, err := p.sharedArg(ctx, pollID, true)
	if err != nil {
		return nil, err
	}
	tx := ledger.NewTransaction()
	tx.MoveCall(p.cfg.PackageID, votingModule, "cast_vote",
		registry,
		poll,
		ledger.PureBytes(nullifier),
		ledger.PureAddress(choiceID),
		ledger.SharedObject(clockObjectID, clockInitialVersion, false),
	)
	return tx, nil
}

// JoinGroup builds a join_group transaction registering the nullifier as a
// member of the given group.
func (p *Program) JoinGroup(ctx context.Context, groupID types.Address, nullifier types.HexBytes) (*ledger.Transaction, error) {
	registry, err := p.sharedArg(ctx, p.cfg.VotingRegistryID, true)
	if err != nil {
		return nil, err
	}
	tx := ledger.NewTransaction()
	tx.MoveCall(p.cfg.PackageID, votingModule, "join_group",
		registry,
		ledger.PureAddress(groupID),
		ledger.PureBytes(nullifier),
	)
	return tx, nil
}

// VoteForGroup builds a vote_for_group transaction: a group-scoped vote for
// one choice of one poll.
func (p *Program) VoteForGroup(ctx context.Context, groupID, pollID, choiceID types.Address, nullifier types.HexBytes) (*ledger.Transaction, error) {
	registry, err := p.sharedArg(ctx, p.cfg.VotingRegistryID, true)
	if err != nil {
		return nil, err
	}
	poll, err := p.sharedArg(ctx, pollID, true)
	if err != nil {
		return nil, err
	}
	tx := ledger.NewTransaction()
	tx.MoveCall(p.cfg.PackageID, votingModule, "vote_for_group",
		registry,
		ledger.PureAddress(groupID),
		poll,
		ledger.PureBytes(nullifier),
		ledger.PureAddress(choiceID),
		ledger.SharedObject(clockObjectID, clockInitialVersion, false),
	)
	return tx, nil
}

// Nullifier derives the double-vote nullifier the program expects for an
// account.
// TODO: switch to the program-defined zklogin nullifier once the voting
// package exposes one; until then the program keys membership off the
// address bytes.
func Nullifier(addr types.Address) types.HexBytes {
	return []byte(addr.String())
}

// sharedArg resolves an object's initial shared version and wraps it as a
// shared object argument.
func (p *Program) sharedArg(ctx context.Context, id types.Address, mutable bool) (ledger.CallArg, error) {
	raw, err := p.objects.Object(ctx, id.String())
	if err != nil {
		return ledger.CallArg{}, err
	}
	var data struct {
		Owner struct {
			Shared struct {
				InitialSharedVersion json.Number `json:"initial_shared_version"`
			} `json:"Shared"`
		} `json:"owner"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return ledger.CallArg{}, fmt.Errorf("decode object %s: %w", id, err)
	}
	version, err := data.Owner.Shared.InitialSharedVersion.Int64()
	if err != nil || version <= 0 {
		return ledger.CallArg{}, fmt.Errorf("object %s is not shared", id)
	}
	return ledger.SharedObject(id, uint64(version), mutable), nil
}

func pureIDVector(ids []types.Address) ledger.CallArg {
	w := bcs.NewWriter()
	w.WriteULEB128(uint64(len(ids)))
	for _, id := range ids {
		w.WriteFixedBytes(id[:])
	}
	return ledger.Pure(w.Bytes())
}
