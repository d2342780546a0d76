package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/types"
)

// login starts a login with the requested identity provider.
// POST /auth/login/{provider}
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	provider := types.OpenIDProvider(chi.URLParam(r, ProviderURLParam))
	redirect, err := a.conf.Flow.BeginLogin(r.Context(), provider)
	if err != nil {
		domainError(err).Write(w)
		return
	}
	httpWriteJSON(w, redirect)
}

// callback completes a pending login from the provider's redirect fragment.
// The proving service round-trip happens here, so this is the slow endpoint.
// POST /auth/callback
func (a *API) callback(w http.ResponseWriter, r *http.Request) {
	req := &CallbackRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	account, err := a.conf.Flow.CompleteLogin(r.Context(), req.Fragment)
	if err != nil {
		domainError(err).Write(w)
		return
	}
	log.Infow("login completed", "address", account.UserAddress.String(),
		"provider", account.Provider)
	httpWriteJSON(w, summary(account))
}

// accounts lists every logged-in account.
// GET /accounts
func (a *API) accounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.conf.Storage.Accounts()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	summaries := []*AccountSummary{}
	for i := range accounts {
		summaries = append(summaries, summary(&accounts[i]))
	}
	httpWriteJSON(w, summaries)
}

// logout wipes the session store.
// POST /logout
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.conf.Flow.Logout(); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}

func summary(account *types.AccountData) *AccountSummary {
	return &AccountSummary{
		Provider: account.Provider,
		Address:  account.UserAddress,
		MaxEpoch: account.MaxEpoch,
	}
}
