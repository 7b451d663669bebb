package core

import (
	"encoding/json"
	"fmt"
)

// Record is the persisted JSON shape of a transaction. The ID is the storage
// key and is not part of the record.
type Record struct {
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
	Type        Kind   `json:"type"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

// EncodeRecord serialises a transaction to its stored JSON form.
func EncodeRecord(tx Transaction) ([]byte, error) {
	return json.Marshal(Record{
		Amount:      tx.Amount,
		Description: tx.Description,
		Type:        tx.Kind,
		Category:    tx.Category,
		Date:        tx.Date.String(),
	})
}

// DecodeRecord parses a stored record. Any unparseable or semantically
// invalid record yields an error wrapping ErrMalformedRecord.
func DecodeRecord(id string, raw []byte) (Transaction, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Transaction{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, id, err)
	}
	kind, err := ParseKind(string(rec.Type))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, id, err)
	}
	date, err := ParseDate(rec.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, id, err)
	}
	tx := Transaction{
		ID:          id,
		Amount:      rec.Amount,
		Description: rec.Description,
		Kind:        kind,
		Category:    rec.Category,
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, id, err)
	}
	return tx, nil
}
