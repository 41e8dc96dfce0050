package dto

import "github.com/noah-isme/sma-bulletin-api/internal/models"

// ImportRequest is an uploaded file to turn into records of one kind.
type ImportRequest struct {
	AccountID string
	Kind      models.ImportKind
	Filename  string
	Data      []byte
}
