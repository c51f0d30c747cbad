package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/danisworo/libadmin/internal/library"
	"github.com/danisworo/libadmin/internal/redisx"
)

type LibraryHandler struct {
	Loans *library.Service
	Books *library.BookRepo
	Cats  *library.CategoryRepo
	Redis *redis.Client
}

func (h *LibraryHandler) Register(r *chi.Mux) {
	r.Post("/borrows", h.borrow)
	r.Post("/borrows/{id}/return", h.returnBook)
	r.Get("/borrows", h.listBorrows)

	r.Post("/books", h.createBook)
	r.Get("/books", h.listBooks)
	r.Get("/books/{id}", h.getBook)
	r.Put("/books/{id}", h.updateBook)
	r.Delete("/books/{id}", h.deleteBook)

	r.Post("/categories", h.addCategory)
	r.Get("/categories", h.listCategories)
	r.Delete("/categories/{id}", h.deleteCategory)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto HTTP status codes. The conflict family is
// 409 so clients can tell "retry" (tx conflict) from plain bad requests.
func writeErr(w http.ResponseWriter, err error) {
	var ve library.ValidationError
	var ise library.InsufficientStockError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
	case errors.As(err, &ise):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": ise.Error(), "available": ise.Available,
		})
	case errors.Is(err, library.ErrBookNotFound),
		errors.Is(err, library.ErrBorrowNotFound),
		errors.Is(err, library.ErrCategoryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, library.ErrAlreadyReturned):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, library.ErrTxConflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(), "retryable": true,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// ---- loans ----

func (h *LibraryHandler) borrow(w http.ResponseWriter, r *http.Request) {
	var req library.BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Loans.Borrow(ctx, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type returnReq struct {
	BookID string `json:"book_id"`
}

func (h *LibraryHandler) returnBook(w http.ResponseWriter, r *http.Request) {
	borrowID := chi.URLParam(r, "id")
	var req returnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Loans.Return(ctx, borrowID, req.BookID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *LibraryHandler) listBorrows(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	recs, err := h.Loans.History(ctx, r.URL.Query().Get("borrower"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []library.BorrowRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// ---- catalog ----

type bookReq struct {
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Category       string     `json:"category"`
	ISBN           string     `json:"isbn"`
	ImageURL       string     `json:"image_url"`
	ArrivalDate    *time.Time `json:"arrival_date"`
	TotalStock     int        `json:"total_stock"`
	AvailableStock int        `json:"available_stock"`
	DamagedStock   int        `json:"damaged_stock"`
}

func (b bookReq) validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return library.ValidationError{Field: "title", Reason: "required"}
	}
	if b.TotalStock < 0 || b.AvailableStock < 0 || b.DamagedStock < 0 {
		return library.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	// the catalog form enforces the upper bound, the API keeps it too
	if b.AvailableStock > b.TotalStock-b.DamagedStock {
		return library.ValidationError{Field: "available_stock", Reason: "exceeds total minus damaged"}
	}
	return nil
}

func (h *LibraryHandler) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b := &library.Book{
		Title: req.Title, Author: req.Author, Category: req.Category, ISBN: req.ISBN,
		ImageURL: req.ImageURL, ArrivalDate: req.ArrivalDate,
		TotalStock: req.TotalStock, AvailableStock: req.AvailableStock, DamagedStock: req.DamagedStock,
	}
	if err := h.Books.Create(ctx, b); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *LibraryHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	books, err := h.Books.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if books == nil {
		books = []library.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *LibraryHandler) getBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first
	key := fmt.Sprintf(redisx.KeyBook, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	b, err := h.Books.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		if buf, err := json.Marshal(b); err == nil {
			_ = h.Redis.Set(ctx, key, buf, redisx.TTLBookCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *LibraryHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req bookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b := &library.Book{
		ID:    id,
		Title: req.Title, Author: req.Author, Category: req.Category, ISBN: req.ISBN,
		ImageURL: req.ImageURL, ArrivalDate: req.ArrivalDate,
		TotalStock: req.TotalStock, AvailableStock: req.AvailableStock, DamagedStock: req.DamagedStock,
	}
	if err := h.Books.Update(ctx, b); err != nil {
		writeErr(w, err)
		return
	}
	h.dropBookCache(ctx, id)
	writeJSON(w, http.StatusOK, b)
}

func (h *LibraryHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Books.Delete(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	h.dropBookCache(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *LibraryHandler) dropBookCache(ctx context.Context, id string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyBook, id)).Err()
}

// ---- categories ----

type categoryReq struct {
	Name string `json:"name"`
}

func (h *LibraryHandler) addCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeErr(w, library.ValidationError{Field: "name", Reason: "required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Cats.Add(ctx, name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *LibraryHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cats, err := h.Cats.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if cats == nil {
		cats = []library.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *LibraryHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Cats.Delete(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
