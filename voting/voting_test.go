package voting

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkpoll/zkvote/types"
)

type fakeObjects struct {
	// shared object id -> initial shared version
	shared map[string]uint64
	// object ids owned by an address instead of shared
	owned map[string]bool
}

func (f *fakeObjects) Object(_ context.Context, id string) (json.RawMessage, error) {
	if f.owned[id] {
		return json.RawMessage(fmt.Sprintf(
			`{"objectId":%q,"owner":{"AddressOwner":"0x1"}}`, id)), nil
	}
	version, ok := f.shared[id]
	if !ok {
		return nil, fmt.Errorf("object %s not found", id)
	}
	return json.RawMessage(fmt.Sprintf(
		`{"objectId":%q,"owner":{"Shared":{"initial_shared_version":%d}}}`, id, version)), nil
}

func addr(c *qt.C, s string) types.Address {
	a, err := types.ParseAddress(s)
	c.Assert(err, qt.IsNil)
	return a
}

func testProgram(c *qt.C) (*Program, Config) {
	cfg := Config{
		PackageID:        addr(c, "0x2280151e6f09a81aaffec74b11a9e2e7175907e255cbd68da0a0c5f26da4721b"),
		VotingRegistryID: addr(c, "0x7f6145bf8e64d1e2944654571115b4ff18110da42839ed3ca25d4d5cb371851e"),
		PollRegistryID:   addr(c, "0x55d5647ec843e81d509be2b592ad5d093241d6c2ee094f010209932df54f1b5c"),
	}
	objects := &fakeObjects{shared: map[string]uint64{
		cfg.VotingRegistryID.String(): 3,
		"0x00000000000000000000000000000000000000000000000000000000000000aa": 9,
	}}
	program, err := New(cfg, objects)
	c.Assert(err, qt.IsNil)
	return program, cfg
}

func TestNewRequiresPackage(t *testing.T) {
	c := qt.New(t)
	_, err := New(Config{}, &fakeObjects{})
	c.Assert(err, qt.IsNotNil)
}

func TestCreatePoll(t *testing.T) {
	c := qt.New(t)
	program, _ := testProgram(c)

	choices := []types.Address{
		addr(c, "0x00000000000000000000000000000000000000000000000000000000000000c1"),
		addr(c, "0x00000000000000000000000000000000000000000000000000000000000000c2"),
	}
	tx, err := program.CreatePoll("Favorite language", "Pick one", choices, 1756684800000)
	c.Assert(err, qt.IsNil)

	tx.SetSender(addr(c, "0x00000000000000000000000000000000000000000000000000000000000000ee"))
	txBytes, err := tx.Build()
	c.Assert(err, qt.IsNil)
	c.Assert(len(txBytes) > 0, qt.IsTrue)

	_, err = program.CreatePoll("too few", "", choices[:1], 0)
	c.Assert(err, qt.IsNotNil)
}

func TestCastVote(t *testing.T) {
	c := qt.New(t)
	program, _ := testProgram(c)

	poll := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000aa")
	choice := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000c1")
	voter := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000ee")

	tx, err := program.CastVote(context.Background(), poll, choice, Nullifier(voter))
	c.Assert(err, qt.IsNil)

	tx.SetSender(voter)
	txBytes, err := tx.Build()
	c.Assert(err, qt.IsNil)
	c.Assert(len(txBytes) > 0, qt.IsTrue)
}

func TestCastVoteUnknownPoll(t *testing.T) {
	c := qt.New(t)
	program, _ := testProgram(c)

	missing := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000bb")
	choice := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000c1")
	_, err := program.CastVote(context.Background(), missing, choice, []byte("n"))
	c.Assert(err, qt.IsNotNil)
}

func TestCastVoteNonSharedRegistry(t *testing.T) {
	c := qt.New(t)
	cfg := Config{
		PackageID:        addr(c, "0x0000000000000000000000000000000000000000000000000000000000000002"),
		VotingRegistryID: addr(c, "0x00000000000000000000000000000000000000000000000000000000000000dd"),
	}
	// an owned object has no Shared owner section
	ownedObjects := &fakeObjects{
		shared: map[string]uint64{},
		owned:  map[string]bool{cfg.VotingRegistryID.String(): true},
	}
	program, err := New(cfg, ownedObjects)
	c.Assert(err, qt.IsNil)

	poll := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000aa")
	choice := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000c1")
	_, err = program.CastVote(context.Background(), poll, choice, []byte("n"))
	c.Assert(err, qt.IsNotNil)
}

func TestGroupVoting(t *testing.T) {
	c := qt.New(t)
	program, _ := testProgram(c)

	group := addr(c, "0x0000000000000000000000000000000000000000000000000000000000000011")
	poll := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000aa")
	choice := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000c1")
	voter := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000ee")

	join, err := program.JoinGroup(context.Background(), group, Nullifier(voter))
	c.Assert(err, qt.IsNil)
	join.SetSender(voter)
	_, err = join.Build()
	c.Assert(err, qt.IsNil)

	vote, err := program.VoteForGroup(context.Background(), group, poll, choice, Nullifier(voter))
	c.Assert(err, qt.IsNil)
	vote.SetSender(voter)
	_, err = vote.Build()
	c.Assert(err, qt.IsNil)
}

func TestNullifierStable(t *testing.T) {
	c := qt.New(t)
	voter := addr(c, "0x00000000000000000000000000000000000000000000000000000000000000ee")
	c.Assert(Nullifier(voter), qt.DeepEquals, Nullifier(voter))
	c.Assert(string(Nullifier(voter)), qt.Equals, voter.String())
}
