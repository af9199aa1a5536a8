package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/app"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

// Borrower is the minimal interface needed to open a loan.
type Borrower interface {
	Borrow(ctx context.Context, in app.BorrowInput) (domain.Loan, error)
}

// Returner is the minimal interface needed to close a loan.
type Returner interface {
	Return(ctx context.Context, loanID string) (domain.Loan, error)
}

// HandleBorrow returns an HTTP handler for opening loans.
func HandleBorrow(svc Borrower) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req borrowRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}

		loan, err := svc.Borrow(r.Context(), app.BorrowInput{
			BookID:     req.BookID,
			MemberID:   req.MemberID,
			MemberCode: req.MemberCode,
			Days:       req.Days,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				return
			case domain.ErrBookNotFound:
				writeError(w, http.StatusNotFound, codeBookNotFound, err.Error())
				return
			case domain.ErrMemberNotFound:
				writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
				return
			case domain.ErrMemberIneligible:
				writeError(w, http.StatusConflict, codeMemberIneligible, err.Error())
				return
			case domain.ErrLoanLimitExceeded:
				writeError(w, http.StatusConflict, codeLoanLimitExceeded, err.Error())
				return
			case domain.ErrBookUnavailable:
				writeError(w, http.StatusConflict, codeBookUnavailable, err.Error())
				return
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(loanResponse{
			ID:         loan.ID,
			BookID:     loan.BookID,
			MemberID:   loan.MemberID,
			BorrowedAt: loan.BorrowedAt,
			DueAt:      loan.DueAt,
			ReturnedAt: loan.ReturnedAt,
			Status:     string(loan.Status),
		})
	}
}

// HandleReturn returns an HTTP handler for closing loans
// (POST /loans/{id}/return).
func HandleReturn(svc Returner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		loanID, ok := parseReturnPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		loan, err := svc.Return(r.Context(), loanID)
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				return
			case domain.ErrLoanNotFound:
				writeError(w, http.StatusNotFound, codeLoanNotFound, err.Error())
				return
			case domain.ErrLoanAlreadyReturned:
				writeError(w, http.StatusConflict, codeLoanAlreadyReturned, err.Error())
				return
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loanResponse{
			ID:         loan.ID,
			BookID:     loan.BookID,
			MemberID:   loan.MemberID,
			BorrowedAt: loan.BorrowedAt,
			DueAt:      loan.DueAt,
			ReturnedAt: loan.ReturnedAt,
			Status:     string(loan.Status),
		})
	}
}

func parseReturnPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "loans" || parts[2] != "return" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type borrowRequest struct {
	BookID     string `json:"book_id"`
	MemberID   string `json:"member_id"`
	MemberCode string `json:"member_code"`
	Days       int    `json:"days"`
}

func (r borrowRequest) validate() error {
	if r.BookID == "" {
		return errors.New("book_id is required")
	}
	if r.MemberID == "" && r.MemberCode == "" {
		return errors.New("member_id or member_code is required")
	}
	if r.Days < 0 {
		return domain.ErrInvalidDays
	}
	return nil
}

type loanResponse struct {
	ID         string     `json:"id"`
	BookID     string     `json:"book_id"`
	MemberID   string     `json:"member_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     string     `json:"status"`
}
