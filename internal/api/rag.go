package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fininsight/fininsight/internal/auth"
	"github.com/fininsight/fininsight/internal/rag"
)

type ragRequest struct {
	Query    string `json:"query"`
	UserID   string `json:"user_id"`
	UserRole string `json:"user_role"`
}

type ragResponse struct {
	Result string           `json:"result"`
	SQL    string           `json:"sql"`
	Data   []map[string]any `json:"data"`
}

func handleRAG(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(w, http.StatusNotImplemented, "rag pipeline is not configured")
		return
	}

	var request ragRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	userID := request.UserID
	role := request.UserRole
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		if userID == "" {
			userID = identity.UserID
		}
		if role == "" {
			role = identity.Role
		}
	}

	result, err := deps.Pipeline.Run(r.Context(), rag.Request{
		Question: request.Query,
		UserID:   userID,
		Role:     role,
	})
	if err != nil {
		var sqlErr *rag.SQLExecutionError
		if errors.As(err, &sqlErr) {
			writeError(w, http.StatusBadRequest, sqlErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, ragResponse{
		Result: result.Answer,
		SQL:    result.SQL,
		Data:   rows,
	})
}
