package storage

import (
	"io"

	"github.com/pedalworks/bikefit/internal/models"
)

type FileInfo struct {
	ScanUUID    string
	Modality    models.Modality
	Extension   string
	ContentType string
	Size        int64
}

// Storage persists raw scan media so the vision worker can fetch it by scan
// uuid and modality.
type Storage interface {
	SaveMedia(file io.Reader, info FileInfo) (string, error)
	OpenMedia(path string) (io.ReadSeekCloser, error)
	DeleteMedia(path string) error
}
