package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cashledger/internal/core"
	"cashledger/internal/services"
)

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// transactionRequest is the body of create and update calls. Amount is kept
// raw so a bad amount becomes a field error alongside the others.
type transactionRequest struct {
	ID          string          `json:"id"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
}

// toTransaction converts the request, reporting every invalid field at once.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	tx := core.Transaction{
		ID:          strings.TrimSpace(req.ID),
		Description: req.Description,
		Category:    req.Category,
	}
	verr := &core.ValidationError{}

	if len(req.Amount) == 0 {
		verr.Add("amount", core.ErrInvalidAmount)
	} else if err := tx.Amount.UnmarshalJSON(req.Amount); err != nil {
		verr.Add("amount", core.ErrInvalidAmount)
	}
	if kind, err := core.ParseKind(req.Type); err != nil {
		verr.Add("type", core.ErrInvalidKind)
	} else {
		tx.Kind = kind
	}
	if date, err := core.ParseDate(req.Date); err != nil {
		verr.Add("date", core.ErrInvalidDate)
	} else {
		tx.Date = date
	}

	// Validate covers what parsing could not; fields that failed to parse
	// are already reported.
	var rest *core.ValidationError
	if err := tx.Normalized().Validate(); errors.As(err, &rest) {
		for _, f := range rest.Fields {
			if !hasField(verr, f.Field) {
				verr.Fields = append(verr.Fields, f)
			}
		}
	}
	if err := verr.Err(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func hasField(verr *core.ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type transactionResponse struct {
	ID          string     `json:"id"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Type        core.Kind  `json:"type"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
}

func toResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Description: tx.Description,
		Type:        tx.Kind,
		Category:    tx.Category,
		Date:        tx.Date.String(),
	}
}

// parseFilter reads type, month, category and limit query parameters.
func parseFilter(r *http.Request) (services.Filter, error) {
	q := r.URL.Query()
	var f services.Filter

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		kind, err := core.ParseKind(v)
		if err != nil {
			return f, err
		}
		f.Kind = &kind
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		month, err := core.ParseMonth(v)
		if err != nil {
			return f, err
		}
		f.Month = &month
	}
	if q.Has("category") {
		category := strings.TrimSpace(q.Get("category"))
		f.Category = &category
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
		}
		f.Limit = limit
	}
	return f, nil
}

// parseMonth reads the month query parameter, defaulting to def.
func parseMonth(r *http.Request, def core.Month) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return def, nil
	}
	return core.ParseMonth(v)
}
