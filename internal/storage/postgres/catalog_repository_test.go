package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/domain"
	"github.com/cimillas/library-lending/services/api/internal/testutil"
	"github.com/google/uuid"
)

func TestCatalogRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	repo := NewCatalogRepository(pool)

	t.Run("ListBooks filters by title or author", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertBook(t, ctx, pool, "Dune", 3)
		testutil.InsertBook(t, ctx, pool, "Dune Messiah", 1)
		testutil.InsertBook(t, ctx, pool, "Neuromancer", 2)

		books, err := repo.ListBooks(ctx, "dune", 20, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(books) != 2 {
			t.Fatalf("expected 2 books, got %d", len(books))
		}
		if books[0].Title != "Dune" || books[1].Title != "Dune Messiah" {
			t.Fatalf("expected title order, got %q, %q", books[0].Title, books[1].Title)
		}

		books, err = repo.ListBooks(ctx, "", 2, 2)
		if err != nil {
			t.Fatalf("paged list: %v", err)
		}
		if len(books) != 1 {
			t.Fatalf("expected 1 book past offset 2, got %d", len(books))
		}
	})

	t.Run("CreateMember rejects a duplicate code", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		member := domain.Member{
			ID: uuid.NewString(), Code: "M-001", Name: "Ana", Email: "ana@example.com",
			Status: domain.MemberStatusActive, MaxLoanLimit: 5, CreatedAt: time.Now(),
		}
		if err := repo.CreateMember(ctx, member); err != nil {
			t.Fatalf("first create: %v", err)
		}

		member.ID = uuid.NewString()
		member.Email = "other@example.com"
		if err := repo.CreateMember(ctx, member); err != domain.ErrCodeAlreadyExists {
			t.Fatalf("expected ErrCodeAlreadyExists, got %v", err)
		}
	})

	t.Run("ListMembers searches name, code and email", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertMember(t, ctx, pool, "Ana", domain.MemberStatusActive, 5)
		testutil.InsertMember(t, ctx, pool, "Bo", domain.MemberStatusActive, 5)

		members, err := repo.ListMembers(ctx, "ana", 20, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(members) != 1 || members[0].Name != "Ana" {
			t.Fatalf("expected just Ana, got %+v", members)
		}
	})

	t.Run("ListLoans joins and filters by status", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		bookID := testutil.InsertBook(t, ctx, pool, "Dune", 3)
		memberID := testutil.InsertMember(t, ctx, pool, "Ana", domain.MemberStatusActive, 5)
		due := time.Now().Add(14 * 24 * time.Hour)
		testutil.InsertLoan(t, ctx, pool, bookID, memberID, due, domain.LoanStatusBorrowed)
		testutil.InsertLoan(t, ctx, pool, bookID, memberID, time.Now().Add(-time.Hour), domain.LoanStatusOverdue)

		loans, err := repo.ListLoans(ctx, "", "overdue", 20, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(loans) != 1 {
			t.Fatalf("expected 1 overdue loan, got %d", len(loans))
		}
		v := loans[0]
		if v.BookTitle != "Dune" || v.MemberName != "Ana" {
			t.Fatalf("expected joined fields, got %+v", v)
		}
		if v.Status != domain.LoanStatusOverdue {
			t.Fatalf("expected overdue, got %s", v.Status)
		}

		loans, err = repo.ListLoans(ctx, "ana", "", 20, 0)
		if err != nil {
			t.Fatalf("search list: %v", err)
		}
		if len(loans) != 2 {
			t.Fatalf("expected 2 loans for member search, got %d", len(loans))
		}
	})
}
