package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/port/launcher"
)

// ListForks handles GET /api/forks in creation order.
func (h *Handlers) ListForks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Forks.ListForks())
}

// GetFork handles GET /api/forks/{id}.
func (h *Handlers) GetFork(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	f, ok := h.Forks.GetFork(id)
	if !ok {
		writeError(w, http.StatusNotFound, "fork not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type launchFailure struct {
	Error string    `json:"error"`
	Fork  fork.Fork `json:"fork"`
}

// CreateFork handles POST /api/forks. A launch failure answers 500 with the
// fork, already registered as failed, next to the error.
func (h *Handlers) CreateFork(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[fork.CreateRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	f, err := h.Forks.CreateFork(r.Context(), req)
	if err != nil {
		var le *launcher.LaunchError
		if errors.As(err, &le) {
			writeJSON(w, http.StatusInternalServerError, launchFailure{Error: err.Error(), Fork: f})
			return
		}
		writeDomainError(w, err, "fork evicted before launch completed")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// TerminateFork handles DELETE /api/forks/{id}. Terminating a finished fork
// succeeds without changing it.
func (h *Handlers) TerminateFork(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !h.Forks.TerminateFork(r.Context(), id) {
		writeError(w, http.StatusNotFound, "fork not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Fork %s terminated", id)})
}

type progressRequest struct {
	Progress int `json:"progress"`
}

// ReportProgress handles POST /api/forks/{id}/progress.
func (h *Handlers) ReportProgress(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[progressRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	f, err := h.Forks.UpdateProgress(r.Context(), urlParam(r, "id"), req.Progress)
	if err != nil {
		writeDomainError(w, err, "fork not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ReportComplete handles POST /api/forks/{id}/complete. No body is read.
func (h *Handlers) ReportComplete(w http.ResponseWriter, r *http.Request) {
	f, err := h.Forks.MarkCompleted(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "fork not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type failRequest struct {
	Message string `json:"message"`
}

// ReportFailure handles POST /api/forks/{id}/fail.
func (h *Handlers) ReportFailure(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[failRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	f, err := h.Forks.MarkFailed(r.Context(), urlParam(r, "id"), req.Message)
	if err != nil {
		writeDomainError(w, err, "fork not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type outputRequest struct {
	Line string `json:"line"`
}

// ReportOutput handles POST /api/forks/{id}/output.
func (h *Handlers) ReportOutput(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[outputRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	if req.Line == "" {
		writeError(w, http.StatusBadRequest, "line is required")
		return
	}
	f, err := h.Forks.AppendOutput(r.Context(), urlParam(r, "id"), req.Line)
	if err != nil {
		writeDomainError(w, err, "fork not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}
