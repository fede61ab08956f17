package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/stockboard/internal/imaging"
	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/store"
)

// ProductPhotoSubmit handles POST /products/{id}/photo.
func (s *Server) ProductPhotoSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	back := fmt.Sprintf("/products/%d", id)

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<10)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		http.Redirect(w, r, back+"?photo=invalid", http.StatusSeeOther)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		http.Redirect(w, r, back+"?photo=invalid", http.StatusSeeOther)
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file, imaging.DefaultOptions)
	if err != nil {
		slog.Warn("rejected product photo", "product", id, "error", err)
		http.Redirect(w, r, back+"?photo=invalid", http.StatusSeeOther)
		return
	}

	if err := store.SetProductPhoto(r.Context(), s.DB, id, photo.Data, photo.MIME); err != nil {
		slog.Error("failed to save product photo", "product", id, "error", err)
		http.Error(w, "failed to save photo", http.StatusInternalServerError)
		return
	}

	s.record(r, model.ActionPhotoUploaded, id, fmt.Sprintf("%dx%d", photo.Width, photo.Height))
	http.Redirect(w, r, back+"?photo=ok", http.StatusSeeOther)
}

// ProductPhotoGet handles GET /products/{id}/photo.
func (s *Server) ProductPhotoGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := store.GetProductPhoto(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get product photo", "product", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write photo response", "error", err)
	}
}
