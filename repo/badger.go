package repo

import (
	"MeetupBot/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var documentKey = []byte("meetup:document")

// BadgerPersister stores the whole document under a single key.
type BadgerPersister struct {
	db *badger.DB
}

func NewBadgerPersister(db *badger.DB) *BadgerPersister {
	return &BadgerPersister{db: db}
}

func (p *BadgerPersister) Load(_ context.Context) (*model.Document, error) {
	var doc model.Document
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

func (p *BadgerPersister) Save(_ context.Context, doc *model.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}
	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey, data)
	})
	if err != nil {
		return fmt.Errorf("error writing document: %w", err)
	}
	return nil
}
