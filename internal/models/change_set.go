package models

// ChangeSet is what a persister flush commits in one transaction.
type ChangeSet struct {
	NewMails []*ImportedMail
	NewPdfs  []*ImportedPdf
	Dirty    []*ImportedPdf
}

func (c *ChangeSet) IsEmpty() bool {
	return c == nil || (len(c.NewMails) == 0 && len(c.NewPdfs) == 0 && len(c.Dirty) == 0)
}
