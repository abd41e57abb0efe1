package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
)

// Error messages longer than this are cut before landing in the DLQ row.
const maxDLQErrorLen = 1024

// DLQRepository writes events the publisher gave up on. Rows are insert-only;
// replay tooling reads them out of band.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead event in the same transaction that marks the outbox
// row terminal.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		msg := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}
