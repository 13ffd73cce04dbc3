package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
)

const (
	attrKey       = "cache_key"
	attrValue     = "cache_value"
	attrExpiresAt = "expires_at"
)

// ItemAPI is the part of the DynamoDB client the cache uses
type ItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBCache is a Cache shared between service instances. The table's
// TTL attribute is expires_at (epoch seconds); DynamoDB deletes lazily, so
// Get also compares it against the clock.
type DynamoDBCache struct {
	client ItemAPI
	table  string
	now    func() time.Time
}

// NewDynamoDBCache creates a cache over an existing table
func NewDynamoDBCache(client ItemAPI, table string) *DynamoDBCache {
	return &DynamoDBCache{
		client: client,
		table:  table,
		now:    time.Now,
	}
}

// NewDynamoDBClient builds a DynamoDB client from the default AWS credential
// chain. endpoint overrides the service URL, e.g. for DynamoDB Local.
func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

var _ output.Cache = (*DynamoDBCache)(nil)

// Get returns the live value for key
func (c *DynamoDBCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			attrKey: &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache item: %w", err)
	}
	if out.Item == nil {
		return nil, false, nil
	}

	if exp, ok := out.Item[attrExpiresAt].(*types.AttributeValueMemberN); ok {
		expiresAt, err := strconv.ParseInt(exp.Value, 10, 64)
		if err != nil || c.now().Unix() >= expiresAt {
			return nil, false, nil
		}
	}

	value, ok := out.Item[attrValue].(*types.AttributeValueMemberB)
	if !ok {
		return nil, false, nil
	}
	return value.Value, true, nil
}

// Set stores value under key for ttl
func (c *DynamoDBCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := map[string]types.AttributeValue{
		attrKey:   &types.AttributeValueMemberS{Value: key},
		attrValue: &types.AttributeValueMemberB{Value: value},
	}
	if ttl > 0 {
		expiresAt := c.now().Add(ttl).Unix()
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)}
	}

	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to write cache item: %w", err)
	}
	return nil
}
