package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/storage"
	"github.com/zkpoll/zkvote/types"
	"github.com/zkpoll/zkvote/voting"
)

// activeAccount loads the account that signs transactions, or writes the
// no-session error.
func (a *API) activeAccount(w http.ResponseWriter) (*types.AccountData, bool) {
	account, err := a.conf.Storage.ActiveAccount()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrNoActiveAccount.Write(w)
		} else {
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return nil, false
	}
	return account, true
}

// submit signs and executes a built transaction with the given account.
func (a *API) submit(w http.ResponseWriter, r *http.Request, tx *ledger.Transaction, account *types.AccountData) {
	result, err := a.conf.Signer.Execute(r.Context(), tx, account)
	if err != nil {
		domainError(err).Write(w)
		return
	}
	httpWriteJSON(w, &TransactionResult{Digest: result.Digest})
}

// newPoll creates a poll signed by the active account.
// POST /polls
func (a *API) newPoll(w http.ResponseWriter, r *http.Request) {
	req := &NewPoll{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	account, ok := a.activeAccount(w)
	if !ok {
		return
	}
	tx, err := a.conf.Voting.CreatePoll(req.Name, req.Description, req.Choices, req.DeadlineMillis)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	a.submit(w, r, tx, account)
}

// newVote casts a vote with the active account.
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	req := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	account, ok := a.activeAccount(w)
	if !ok {
		return
	}
	tx, err := a.conf.Voting.CastVote(r.Context(), req.PollID, req.ChoiceID,
		voting.Nullifier(account.UserAddress))
	if err != nil {
		domainError(err).Write(w)
		return
	}
	a.submit(w, r, tx, account)
}

// joinGroup registers the active account in a voting group.
// POST /groups/join
func (a *API) joinGroup(w http.ResponseWriter, r *http.Request) {
	req := &GroupJoin{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	account, ok := a.activeAccount(w)
	if !ok {
		return
	}
	tx, err := a.conf.Voting.JoinGroup(r.Context(), req.GroupID,
		voting.Nullifier(account.UserAddress))
	if err != nil {
		domainError(err).Write(w)
		return
	}
	a.submit(w, r, tx, account)
}

// groupVote casts a group-scoped vote with the active account.
// POST /groups/votes
func (a *API) groupVote(w http.ResponseWriter, r *http.Request) {
	req := &GroupVote{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	account, ok := a.activeAccount(w)
	if !ok {
		return
	}
	tx, err := a.conf.Voting.VoteForGroup(r.Context(), req.GroupID, req.PollID,
		req.ChoiceID, voting.Nullifier(account.UserAddress))
	if err != nil {
		domainError(err).Write(w)
		return
	}
	a.submit(w, r, tx, account)
}

// balance returns the coin balance of an address.
// GET /balance/{address}
func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		ErrMalformedAddress.WithErr(err).Write(w)
		return
	}
	total, err := a.conf.Ledger.Balance(r.Context(), addr.String(), "")
	if err != nil {
		ErrLedgerUnreachable.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &Balance{Address: addr, Balance: total, Coin: ledger.SuiCoinType})
}
