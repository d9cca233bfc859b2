package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/customeros/lexsync/interfaces"
	"github.com/customeros/lexsync/internal/models"
)

// MemoryDB is an in-memory stand-in for the Postgres repositories. Reads return copies so
// callers observe committed state only.
type MemoryDB struct {
	mu      sync.Mutex
	Mails   map[string]*models.ImportedMail
	Pdfs    map[string]*models.ImportedPdf
	Commits []*models.ChangeSet
	// Fail makes every Commit return it.
	Fail error
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{Mails: map[string]*models.ImportedMail{}, Pdfs: map[string]*models.ImportedPdf{}}
}

func (db *MemoryDB) MailRepository() interfaces.ImportedMailRepository { return memoryMails{db} }
func (db *MemoryDB) PdfRepository() interfaces.ImportedPdfRepository   { return memoryPdfs{db} }
func (db *MemoryDB) UnitOfWork() interfaces.UnitOfWork                 { return memoryUnitOfWork{db} }

func (db *MemoryDB) Pdf(id string) *models.ImportedPdf {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.Pdfs[id]; ok {
		c := *p
		return &c
	}
	return nil
}

// PdfByFilename returns the first committed pdf with the given original filename.
func (db *MemoryDB) PdfByFilename(name string) *models.ImportedPdf {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, p := range db.Pdfs {
		if p.OriginalFilename == name {
			c := *p
			return &c
		}
	}
	return nil
}

type memoryMails struct{ db *MemoryDB }

func (r memoryMails) GetByMessageID(_ context.Context, messageID string) (*models.ImportedMail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.Mails {
		if m.MessageID != nil && *m.MessageID == messageID {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

type memoryPdfs struct{ db *MemoryDB }

func (r memoryPdfs) GetByFileHash(_ context.Context, hash string) (*models.ImportedPdf, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.Pdfs {
		if p.FileHash == hash {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r memoryPdfs) ListUnsynced(_ context.Context, limit int) ([]*models.ImportedPdf, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.ImportedPdf
	for _, p := range r.db.Pdfs {
		if !p.Synced {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ImportedAt.Equal(out[j].ImportedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ImportedAt.Before(out[j].ImportedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
