package web

import (
	"time"

	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/imports"
)

// operationResponse is the wire representation of an import operation.
type operationResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Owner                string     `json:"owner"`
	Filename             string     `json:"filename"`
	ContentType          string     `json:"contentType"`
	FileSize             int64      `json:"fileSize"`
	Status               string     `json:"status"`
	StorageObjectKey     *string    `json:"storageObjectKey,omitempty"`
	CreatedEntitiesCount *int       `json:"createdEntitiesCount,omitempty"`
	ErrorMessage         *string    `json:"errorMessage,omitempty"`
	StartedAt            time.Time  `json:"startedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

func toOperationResponse(op *imports.Operation) operationResponse {
	return operationResponse{
		ID:                   op.ID,
		Owner:                op.Owner,
		Filename:             op.Filename,
		ContentType:          op.ContentType,
		FileSize:             op.FileSize,
		Status:               string(op.Status),
		StorageObjectKey:     op.StorageObjectKey,
		CreatedEntitiesCount: op.CreatedEntitiesCount,
		ErrorMessage:         op.ErrorMessage,
		StartedAt:            op.StartedAt,
		CompletedAt:          op.CompletedAt,
	}
}

// operationPageResponse is one page of an operation listing.
type operationPageResponse struct {
	Items      []operationResponse `json:"items"`
	TotalCount int64               `json:"totalCount"`
	Page       int                 `json:"page"`
	Size       int                 `json:"size"`
	TotalPages int64               `json:"totalPages"`
}

func toOperationPageResponse(page *imports.OperationPage) operationPageResponse {
	items := make([]operationResponse, len(page.Items))
	for i := range page.Items {
		items[i] = toOperationResponse(&page.Items[i])
	}

	totalPages := int64(0)
	if page.Size > 0 {
		totalPages = (page.TotalCount + int64(page.Size) - 1) / int64(page.Size)
	}

	return operationPageResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Page:       page.Number,
		Size:       page.Size,
		TotalPages: totalPages,
	}
}
