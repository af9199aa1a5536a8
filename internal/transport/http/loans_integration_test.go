package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cimillas/library-lending/services/api/internal/app"
	"github.com/cimillas/library-lending/services/api/internal/clock"
	"github.com/cimillas/library-lending/services/api/internal/domain"
	"github.com/cimillas/library-lending/services/api/internal/storage/postgres"
	"github.com/cimillas/library-lending/services/api/internal/testutil"
)

// Exercises the full lend-reserve-return flow over HTTP against a real
// database: the last copy goes out, a second borrower is turned away and
// reserves, and the return hands the copy to the waiting reservation
// instead of the shelf.
func TestLendingFlow_Integration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	clk := clock.NewSystem()
	loanRepo := postgres.NewLoanRepository(pool)
	notifRepo := postgres.NewNotificationRepository(pool)
	outbox := app.NewNotificationService(notifRepo, clk)
	loanSvc := app.NewLoanService(loanRepo, outbox, clk)

	mux := http.NewServeMux()
	mux.Handle("/loans", HandleBorrow(loanSvc))
	mux.Handle("/loans/", HandleReturn(loanSvc))
	mux.Handle("/reservations", HandleReserve(loanSvc))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bookID := testutil.InsertBook(t, ctx, pool, "Dune", 1)
	first := testutil.InsertMember(t, ctx, pool, "Ana", domain.MemberStatusActive, 3)
	second := testutil.InsertMember(t, ctx, pool, "Bo", domain.MemberStatusActive, 3)

	post := func(t *testing.T, path, body string) *http.Response {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	// First member takes the last copy.
	resp := post(t, "/loans", `{"book_id":"`+bookID+`","member_id":"`+first+`","days":14}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("borrow: expected 201, got %d", resp.StatusCode)
	}
	var loan loanResponse
	if err := json.NewDecoder(resp.Body).Decode(&loan); err != nil {
		t.Fatalf("decode loan: %v", err)
	}
	if got := testutil.AvailableCopies(t, ctx, pool, bookID); got != 0 {
		t.Fatalf("expected 0 copies after borrow, got %d", got)
	}

	// Second member is turned away.
	resp = post(t, "/loans", `{"book_id":"`+bookID+`","member_id":"`+second+`","days":14}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second borrow: expected 409, got %d", resp.StatusCode)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Code != codeBookUnavailable {
		t.Fatalf("expected code %s, got %s", codeBookUnavailable, errResp.Code)
	}

	// So they join the waitlist instead.
	resp = post(t, "/reservations", `{"book_id":"`+bookID+`","member_id":"`+second+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("reserve: expected 201, got %d", resp.StatusCode)
	}

	// The return hands the copy straight to the waiting reservation.
	resp = post(t, "/loans/"+loan.ID+"/return", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("return: expected 200, got %d", resp.StatusCode)
	}
	if got := testutil.AvailableCopies(t, ctx, pool, bookID); got != 0 {
		t.Fatalf("expected copies to stay 0 after handoff, got %d", got)
	}

	var status domain.ReservationStatus
	err := pool.QueryRow(ctx,
		`SELECT status FROM reservations WHERE book_id = $1 AND member_id = $2`, bookID, second,
	).Scan(&status)
	if err != nil {
		t.Fatalf("query reservation: %v", err)
	}
	if status != domain.ReservationStatusFulfilled {
		t.Fatalf("expected reservation fulfilled, got %s", status)
	}

	var notifCount int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE loan_id = $1`, loan.ID,
	).Scan(&notifCount); err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if notifCount != 1 {
		t.Fatalf("expected 1 queued notification, got %d", notifCount)
	}

	// Returning the same loan again is rejected.
	resp = post(t, "/loans/"+loan.ID+"/return", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double return: expected 409, got %d", resp.StatusCode)
	}
}
