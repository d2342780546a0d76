package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.vocdoni.io/dvote/log"

	"github.com/zkpoll/zkvote/auth"
	"github.com/zkpoll/zkvote/ledger"
	"github.com/zkpoll/zkvote/signer"
	"github.com/zkpoll/zkvote/storage"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// domainError maps the error kinds of the login flow, session guard and
// ledger client to their API error codes. Unrecognized errors become a
// generic internal error.
func domainError(err error) Error {
	switch {
	case errors.Is(err, auth.ErrUnknownProvider):
		return ErrUnknownProvider.WithErr(err)
	case errors.Is(err, auth.ErrNoToken):
		return ErrNoIdentityToken
	case errors.Is(err, auth.ErrMalformedToken):
		return ErrMalformedToken.WithErr(err)
	case errors.Is(err, auth.ErrNonceMismatch):
		return ErrNonceMismatch
	case errors.Is(err, auth.ErrMissingSetupData):
		return ErrNoPendingLogin
	case errors.Is(err, auth.ErrDuplicateAccount):
		return ErrDuplicateAccount
	case errors.Is(err, auth.ErrSaltService):
		return ErrSaltServiceFailed.WithErr(err)
	case errors.Is(err, auth.ErrProofService):
		return ErrProofServiceFailed.WithErr(err)
	case errors.Is(err, signer.ErrSessionExpired):
		return ErrSessionExpired.WithErr(err)
	case errors.Is(err, signer.ErrSignatureRejected):
		// the node's message is passed through for the client to act on
		return ErrSignatureRejected.WithErr(err)
	case errors.Is(err, ledger.ErrEpochFetch):
		return ErrEpochFetchFailed.WithErr(err)
	case errors.Is(err, storage.ErrNotFound):
		return ErrResourceNotFound
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
