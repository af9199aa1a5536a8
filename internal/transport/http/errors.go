package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidID            = "invalid_id"
	codeTitleRequired        = "title_required"
	codeNameRequired         = "name_required"
	codeEmailRequired        = "email_required"
	codeInvalidCopies        = "invalid_copies"
	codeInvalidLoanLimit     = "invalid_loan_limit"
	codeCodeAlreadyExists    = "code_already_exists"
	codeBookNotFound         = "book_not_found"
	codeMemberNotFound       = "member_not_found"
	codeLoanNotFound         = "loan_not_found"
	codeMemberIneligible     = "member_ineligible"
	codeLoanLimitExceeded    = "loan_limit_exceeded"
	codeBookUnavailable      = "book_unavailable"
	codeCopiesAvailable      = "copies_available"
	codeLoanAlreadyReturned  = "loan_already_returned"
	codeDuplicateReservation = "duplicate_reservation"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
