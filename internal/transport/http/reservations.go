package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/app"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

// Reserver is the minimal interface needed to place a reservation.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Reservation, error)
}

// HandleReserve returns an HTTP handler for joining a book's waitlist.
func HandleReserve(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.BookID == "" || req.MemberID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "book_id and member_id are required")
			return
		}

		res, err := svc.Reserve(r.Context(), app.ReserveInput{
			BookID:   req.BookID,
			MemberID: req.MemberID,
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
			case domain.ErrCopiesAvailable:
				writeError(w, http.StatusConflict, codeCopiesAvailable, err.Error())
				return
			case domain.ErrDuplicateReservation:
				writeError(w, http.StatusConflict, codeDuplicateReservation, err.Error())
				return
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(reserveResponse{
			ID:          res.ID,
			BookID:      res.BookID,
			MemberID:    res.MemberID,
			RequestedAt: res.RequestedAt,
			Status:      string(res.Status),
		})
	}
}

type reserveRequest struct {
	BookID   string `json:"book_id"`
	MemberID string `json:"member_id"`
}

type reserveResponse struct {
	ID          string    `json:"id"`
	BookID      string    `json:"book_id"`
	MemberID    string    `json:"member_id"`
	RequestedAt time.Time `json:"requested_at"`
	Status      string    `json:"status"`
}
