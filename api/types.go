package api

import (
	"github.com/zkpoll/zkvote/types"
)

// CallbackRequest carries the URL fragment the identity provider appended to
// the redirect URI.
type CallbackRequest struct {
	Fragment string `json:"fragment"`
}

// AccountSummary is the public view of a logged-in account. The ephemeral
// secret key and the proof never leave the gateway.
type AccountSummary struct {
	Provider types.OpenIDProvider `json:"provider"`
	Address  types.Address        `json:"address"`
	MaxEpoch uint64               `json:"maxEpoch"`
}

// NewPoll is the request to create a poll signed by the active account.
type NewPoll struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Choices        []types.Address `json:"choices"`
	DeadlineMillis uint64          `json:"deadlineMillis"`
}

// Vote is the request to cast a vote for one choice of a poll.
type Vote struct {
	PollID   types.Address `json:"pollId"`
	ChoiceID types.Address `json:"choiceId"`
}

// GroupJoin is the request to register the active account in a group.
type GroupJoin struct {
	GroupID types.Address `json:"groupId"`
}

// GroupVote is the request to cast a group-scoped vote.
type GroupVote struct {
	GroupID  types.Address `json:"groupId"`
	PollID   types.Address `json:"pollId"`
	ChoiceID types.Address `json:"choiceId"`
}

// TransactionResult is the response to a submitted transaction.
type TransactionResult struct {
	Digest string `json:"digest"`
}

// Balance is the response to a balance query.
type Balance struct {
	Address types.Address `json:"address"`
	Balance string        `json:"balance"`
	Coin    string        `json:"coin"`
}
