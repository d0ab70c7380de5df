package domain

import (
	"time"

	"github.com/google/uuid"
)

// Photo is an uploaded or imported image. Its StoredFilename is the
// opaque, content-addressed name under the artifact store; DisplayName
// is whatever the user originally called it and survives independent
// of the backing file (used to label jobs after the photo is deleted).
type Photo struct {
	ID             uuid.UUID `json:"id"`
	StoredFilename string    `json:"storedFilename"`
	DisplayName    string    `json:"displayName"`
	CreatedAt      time.Time `json:"createdAt"`
}
