package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/app"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

// AdminBookService is the minimal interface for admin book endpoints.
type AdminBookService interface {
	CreateBook(ctx context.Context, in app.CreateBookInput) (domain.Book, error)
	ListBooks(ctx context.Context, q string, limit, offset int) ([]domain.Book, error)
}

// AdminMemberService is the minimal interface for admin member endpoints.
type AdminMemberService interface {
	CreateMember(ctx context.Context, in app.CreateMemberInput) (domain.Member, error)
	ListMembers(ctx context.Context, q string, limit, offset int) ([]domain.Member, error)
}

// AdminLoanService is the minimal interface for the admin loan listing.
type AdminLoanService interface {
	ListLoans(ctx context.Context, q, status string, limit, offset int) ([]app.LoanView, error)
}

// HandleAdminBooks returns an HTTP handler for admin book creation/listing.
func HandleAdminBooks(svc AdminBookService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q, limit, offset := listParams(r)
			books, err := svc.ListBooks(r.Context(), q, limit, offset)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]bookResponse, 0, len(books))
			for _, b := range books {
				resp = append(resp, bookResponse{
					ID:              b.ID,
					Title:           b.Title,
					Author:          b.Author,
					AvailableCopies: b.AvailableCopies,
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req createBookRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			book, err := svc.CreateBook(r.Context(), app.CreateBookInput{
				Title:  req.Title,
				Author: req.Author,
				Copies: req.Copies,
			})
			if err != nil {
				switch err {
				case domain.ErrTitleRequired:
					writeError(w, http.StatusBadRequest, codeTitleRequired, err.Error())
				case domain.ErrInvalidCopies:
					writeError(w, http.StatusBadRequest, codeInvalidCopies, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(bookResponse{
				ID:              book.ID,
				Title:           book.Title,
				Author:          book.Author,
				AvailableCopies: book.AvailableCopies,
			})
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleAdminMembers returns an HTTP handler for admin member creation/listing.
func HandleAdminMembers(svc AdminMemberService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q, limit, offset := listParams(r)
			members, err := svc.ListMembers(r.Context(), q, limit, offset)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]memberResponse, 0, len(members))
			for _, m := range members {
				resp = append(resp, memberResponse{
					ID:           m.ID,
					Code:         m.Code,
					Name:         m.Name,
					Email:        m.Email,
					Status:       string(m.Status),
					MaxLoanLimit: m.MaxLoanLimit,
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req createMemberRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			member, err := svc.CreateMember(r.Context(), app.CreateMemberInput{
				Code:         req.Code,
				Name:         req.Name,
				Email:        req.Email,
				MaxLoanLimit: req.MaxLoanLimit,
			})
			if err != nil {
				switch err {
				case domain.ErrNameRequired:
					writeError(w, http.StatusBadRequest, codeNameRequired, err.Error())
				case domain.ErrEmailRequired:
					writeError(w, http.StatusBadRequest, codeEmailRequired, err.Error())
				case domain.ErrInvalidLoanLimit:
					writeError(w, http.StatusBadRequest, codeInvalidLoanLimit, err.Error())
				case domain.ErrCodeAlreadyExists:
					writeError(w, http.StatusConflict, codeCodeAlreadyExists, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(memberResponse{
				ID:           member.ID,
				Code:         member.Code,
				Name:         member.Name,
				Email:        member.Email,
				Status:       string(member.Status),
				MaxLoanLimit: member.MaxLoanLimit,
			})
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleAdminLoans returns an HTTP handler for the admin loan listing.
func HandleAdminLoans(svc AdminLoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q, limit, offset := listParams(r)
		status := r.URL.Query().Get("status")

		loans, err := svc.ListLoans(r.Context(), q, status, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]loanViewResponse, 0, len(loans))
		for _, l := range loans {
			resp = append(resp, loanViewResponse{
				ID:         l.ID,
				BookTitle:  l.BookTitle,
				MemberCode: l.MemberCode,
				MemberName: l.MemberName,
				BorrowedAt: l.BorrowedAt,
				DueAt:      l.DueAt,
				ReturnedAt: l.ReturnedAt,
				Status:     string(l.Status),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func listParams(r *http.Request) (q string, limit, offset int) {
	query := r.URL.Query()
	q = query.Get("q")
	limit, _ = strconv.Atoi(query.Get("limit"))
	offset, _ = strconv.Atoi(query.Get("offset"))
	return q, limit, offset
}

type createBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Copies int    `json:"copies"`
}

type bookResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	AvailableCopies int    `json:"available_copies"`
}

type createMemberRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	MaxLoanLimit int    `json:"max_loan_limit"`
}

type memberResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Status       string `json:"status"`
	MaxLoanLimit int    `json:"max_loan_limit"`
}

type loanViewResponse struct {
	ID         string     `json:"id"`
	BookTitle  string     `json:"book_title"`
	MemberCode string     `json:"member_code"`
	MemberName string     `json:"member_name"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     string     `json:"status"`
}
