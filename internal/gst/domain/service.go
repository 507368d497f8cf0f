package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
)

type PrepareReturnRequest struct {
	Quarter     string
	Year        int
	Adjustments aggregate.Adjustments
}

type SaveReturnRequest struct {
	PrepareReturnRequest
	Notes string
}

// Export is a rendered return workbook.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

type PublishedExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	Period(quarter string, year int) (aggregate.Period, error)
	Prepare(context.Context, PrepareReturnRequest) (aggregate.ReturnData, error)
	Save(context.Context, SaveReturnRequest) (GSTReturn, error)
	File(ctx context.Context, id string) (GSTReturn, error)
	GetByID(ctx context.Context, id string) (GSTReturn, error)
	List(ctx context.Context, year int) ([]GSTReturn, error)
	Export(ctx context.Context, id string) (Export, error)
	PublishExport(ctx context.Context, id string) (PublishedExport, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("gst_return_not_found")
	ErrAlreadyFiled        = errors.New("gst_return_already_filed")
	ErrStorageDisabled     = errors.New("storage_disabled")
)
