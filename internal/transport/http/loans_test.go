package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/app"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

type fakeBorrower struct {
	loan domain.Loan
	err  error
	got  app.BorrowInput
}

func (f *fakeBorrower) Borrow(_ context.Context, in app.BorrowInput) (domain.Loan, error) {
	f.got = in
	if f.err != nil {
		return domain.Loan{}, f.err
	}
	return f.loan, nil
}

type fakeReturner struct {
	loan domain.Loan
	err  error
	got  string
}

func (f *fakeReturner) Return(_ context.Context, loanID string) (domain.Loan, error) {
	f.got = loanID
	if f.err != nil {
		return domain.Loan{}, f.err
	}
	return f.loan, nil
}

func TestHandleBorrow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates a loan", func(t *testing.T) {
		svc := &fakeBorrower{loan: domain.Loan{
			ID: "loan-1", BookID: "book-1", MemberID: "member-1",
			BorrowedAt: now, DueAt: now.AddDate(0, 0, 14), Status: domain.LoanStatusBorrowed,
		}}
		handler := HandleBorrow(svc)

		body := `{"book_id":"book-1","member_id":"member-1","days":14}`
		req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.got.BookID != "book-1" || svc.got.Days != 14 {
			t.Fatalf("unexpected input: %+v", svc.got)
		}

		var resp loanResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ID != "loan-1" || resp.Status != string(domain.LoanStatusBorrowed) {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("accepts a member code instead of an id", func(t *testing.T) {
		svc := &fakeBorrower{loan: domain.Loan{
			ID: "loan-1", BookID: "book-1", MemberID: "member-1",
			BorrowedAt: now, DueAt: now.AddDate(0, 0, 7), Status: domain.LoanStatusBorrowed,
		}}
		handler := HandleBorrow(svc)

		body := `{"book_id":"book-1","member_code":"M-001","days":7}`
		req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.got.MemberCode != "M-001" || svc.got.MemberID != "" {
			t.Fatalf("unexpected input: %+v", svc.got)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{"book not found", domain.ErrBookNotFound, http.StatusNotFound, codeBookNotFound},
			{"member not found", domain.ErrMemberNotFound, http.StatusNotFound, codeMemberNotFound},
			{"member ineligible", domain.ErrMemberIneligible, http.StatusConflict, codeMemberIneligible},
			{"loan limit exceeded", domain.ErrLoanLimitExceeded, http.StatusConflict, codeLoanLimitExceeded},
			{"book unavailable", domain.ErrBookUnavailable, http.StatusConflict, codeBookUnavailable},
			{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				handler := HandleBorrow(&fakeBorrower{err: tc.err})

				body := `{"book_id":"book-1","member_id":"member-1","days":7}`
				req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
				rec := httptest.NewRecorder()
				handler(rec, req)

				if rec.Code != tc.wantStatus {
					t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
				}
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Code != tc.wantCode {
					t.Fatalf("expected code %s, got %s", tc.wantCode, resp.Code)
				}
			})
		}
	})

	t.Run("rejects bad requests", func(t *testing.T) {
		handler := HandleBorrow(&fakeBorrower{})

		req := httptest.NewRequest(http.MethodGet, "/loans", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(`{"book_id":`))
		rec = httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad JSON, got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(`{"book_id":"b"}`))
		rec = httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 when neither member_id nor member_code is set, got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(`{"book_id":"b","member_id":"m","days":-1}`))
		rec = httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for negative days, got %d", rec.Code)
		}
	})
}

func TestHandleReturn(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("closes a loan", func(t *testing.T) {
		returnedAt := now
		svc := &fakeReturner{loan: domain.Loan{
			ID: "loan-1", BookID: "book-1", MemberID: "member-1",
			ReturnedAt: &returnedAt, Status: domain.LoanStatusReturned,
		}}
		handler := HandleReturn(svc)

		req := httptest.NewRequest(http.MethodPost, "/loans/loan-1/return", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.got != "loan-1" {
			t.Fatalf("expected loan-1, got %q", svc.got)
		}

		var resp loanResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Status != string(domain.LoanStatusReturned) || resp.ReturnedAt == nil {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{"loan not found", domain.ErrLoanNotFound, http.StatusNotFound, codeLoanNotFound},
			{"already returned", domain.ErrLoanAlreadyReturned, http.StatusConflict, codeLoanAlreadyReturned},
			{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				handler := HandleReturn(&fakeReturner{err: tc.err})

				req := httptest.NewRequest(http.MethodPost, "/loans/loan-1/return", nil)
				rec := httptest.NewRecorder()
				handler(rec, req)

				if rec.Code != tc.wantStatus {
					t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
				}
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Code != tc.wantCode {
					t.Fatalf("expected code %s, got %s", tc.wantCode, resp.Code)
				}
			})
		}
	})

	t.Run("rejects malformed paths", func(t *testing.T) {
		handler := HandleReturn(&fakeReturner{})

		for _, path := range []string{"/loans/loan-1", "/loans//return", "/loans/loan-1/extend"} {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("path %s: expected 404, got %d", path, rec.Code)
			}
		}
	})
}
