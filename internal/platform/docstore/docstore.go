// Package docstore owns the MongoDB client handle: connection, index setup and
// reachability checks. The handle is built once at startup and closed on
// shutdown.
package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const DefaultDatabase = "tvusvet"

const (
	CollPatients  = "patients"
	CollExams     = "exams"
	CollImages    = "images"
	CollTemplates = "templates"
)

const connectTimeout = 10 * time.Second

type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// DatabaseName returns the explicit name if set, else the database in the
// connection string, else DefaultDatabase.
func DatabaseName(uri, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cs, err := connstring.Parse(uri); err == nil && cs.Database != "" {
		return cs.Database
	}
	return DefaultDatabase
}

// Connect dials MongoDB and pings the primary before returning.
func Connect(ctx context.Context, uri, dbName string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	// Nested documents decode to maps so free-form fields render as JSON
	// objects.
	opts := options.Client().ApplyURI(uri).SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(DatabaseName(uri, dbName)),
	}, nil
}

func (c *Client) Database() *mongo.Database { return c.db }

func (c *Client) Collection(name string) *mongo.Collection { return c.db.Collection(name) }

// Ping satisfies db.Pinger.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
