//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedAddress    = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrUnknownProvider     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown identity provider")}
	ErrNoIdentityToken     = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no identity token in callback")}
	ErrMalformedToken      = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed identity token")}
	ErrNonceMismatch       = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("identity token nonce mismatch")}
	ErrNoPendingLogin      = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no pending login")}
	ErrDuplicateAccount    = Error{Code: 40015, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("account already logged in")}
	ErrNoActiveAccount     = Error{Code: 40016, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("no active account, log in first")}
	ErrSessionExpired      = Error{Code: 40017, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("session expired, log in again")}
	ErrSignatureRejected   = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("ledger rejected signature")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrEpochFetchFailed           = Error{Code: 50010, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("could not fetch current epoch")}
	ErrSaltServiceFailed          = Error{Code: 50011, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("salt service failed")}
	ErrProofServiceFailed         = Error{Code: 50012, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("proving service failed")}
	ErrLedgerUnreachable          = Error{Code: 50013, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("ledger node unreachable")}
)
