package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fininsight/fininsight/internal/ingest"
	"github.com/fininsight/fininsight/internal/storage"
)

type ingestRequest struct {
	ContainerName string `json:"container_name"`
	BlobName      string `json:"blob_name"`
	TableName     string `json:"table_name"`
}

func handleIngest(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ingestor == nil {
		writeError(w, http.StatusNotImplemented, "ingest service is not configured")
		return
	}

	var request ingestRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.ContainerName) == "" || strings.TrimSpace(request.BlobName) == "" {
		writeError(w, http.StatusBadRequest, "container_name and blob_name are required")
		return
	}

	result, err := deps.Ingestor.Run(r.Context(), ingest.Request{
		Container: request.ContainerName,
		Blob:      request.BlobName,
		Table:     request.TableName,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			writeError(w, http.StatusNotFound, "blob was not found")
		case errors.Is(err, ingest.ErrInvalidRequest), errors.Is(err, ingest.ErrInvalidWorkbook):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"rows":   result.Rows,
	})
}
