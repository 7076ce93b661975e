package repo

import (
	"MeetupBot/model"
	"context"
)

// Persister mirrors the document to durable storage. Load returns
// model.ErrDocumentNotFound when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
}
