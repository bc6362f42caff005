package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/artarona/Administrador/internal/repository"
	"github.com/artarona/Administrador/internal/service"
)

const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields, trailing data and bodies over maxBodyBytes are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errBodyTooLarge
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "El cuerpo de la petición es demasiado grande")
		return
	}
	writeError(w, http.StatusBadRequest, "JSON inválido")
}

// writeServiceError maps the error taxonomy to a status and a client-safe
// message. Anything unclassified is logged with detail and reported generically.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Datos inválidos")
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "El email ya está registrado")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Contacto no encontrado")
	case errors.Is(err, repository.ErrStorageUnavailable):
		slog.Error(op+": storage unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, "Base de datos no disponible")
	case errors.Is(err, repository.ErrSchemaUnavailable):
		slog.Error(op+": schema unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, "Esquema de base de datos no disponible")
	default:
		slog.Error(op+": internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
	}
}
