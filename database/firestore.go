package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewFirestore returns a Firestore client for the project. With a credentials file the
// service account in it is used; otherwise application default credentials apply.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	var app *firebase.App
	var err error
	if credentialsFile != "" {
		app, err = firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsFile))
	} else {
		app, err = firebase.NewApp(ctx, conf)
	}
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: firestore client: %w", err)
	}
	return client, nil
}
