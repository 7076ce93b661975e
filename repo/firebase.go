package repo

import (
	"MeetupBot/model"
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// FirebaseConnector stores the document at one reference of a Firebase
// Realtime Database.
type FirebaseConnector struct {
	app     *firebase.App
	client  *db.Client
	rootRef string
}

// NewFirebaseConnector creates a new Firebase connector
func NewFirebaseConnector(ctx context.Context, serviceAccountKeyPath, databaseURL, rootRef string) (*FirebaseConnector, error) {
	opt := option.WithCredentialsFile(serviceAccountKeyPath)

	config := &firebase.Config{
		DatabaseURL: databaseURL,
	}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &FirebaseConnector{
		app:     app,
		client:  client,
		rootRef: rootRef,
	}, nil
}

// Load reads the document. The Realtime Database drops empty maps and
// lists, so the result is always normalized.
func (fc *FirebaseConnector) Load(ctx context.Context) (*model.Document, error) {
	var doc *model.Document
	if err := fc.client.NewRef(fc.rootRef).Get(ctx, &doc); err != nil {
		return nil, fmt.Errorf("error reading document: %w", err)
	}
	if doc == nil {
		return nil, model.ErrDocumentNotFound
	}
	doc.Normalize()
	return doc, nil
}

// Save overwrites the document reference.
func (fc *FirebaseConnector) Save(ctx context.Context, doc *model.Document) error {
	if err := fc.client.NewRef(fc.rootRef).Set(ctx, doc); err != nil {
		return fmt.Errorf("error saving document: %w", err)
	}
	return nil
}
