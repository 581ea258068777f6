// Package storage opens the donation store selected by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/iliyamo/receipt-booklet-ledger/internal/config"
	"github.com/iliyamo/receipt-booklet-ledger/internal/database"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

// Backend is an opened store.  Exactly one of SQL and Dynamo is set.
type Backend struct {
	Store  repository.DonationStore
	SQL    *sql.DB
	Dynamo *repository.DonationDynamoRepo
}

// Close releases the SQL pool; the DynamoDB client holds nothing to close.
func (b *Backend) Close() error {
	if b.SQL != nil {
		return b.SQL.Close()
	}
	return nil
}

// Open connects to the backend named by sc.Driver.
func Open(ctx context.Context, sc config.StoreConfig) (*Backend, error) {
	switch sc.Driver {
	case config.DriverMySQL:
		db, err := database.Open(sc.DBUser, sc.DBPass, sc.DBHost, sc.DBPort, sc.DBName)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return &Backend{Store: repository.NewDonationRepo(db), SQL: db}, nil
	case config.DriverDynamoDB:
		client, err := NewDynamoClient(ctx, sc.AWSRegion, sc.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		repo := repository.NewDonationDynamoRepo(client, sc.DynamoTable)
		return &Backend{Store: repo, Dynamo: repo}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// NewDynamoClient loads the default AWS credential chain for region.  A
// non-empty endpoint points the client at e.g. DynamoDB Local.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}
