// Package dynamo provides a DynamoDB document store driver.
//
// Every collection maps to a table named TablePrefix+collection with a
// string hash key "id". Documents are stored as top-level attributes.
// Filters are evaluated server side as Scan filter expressions; equality on
// the identity becomes a consistent GetItem.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Backend is the backend name reported by this driver.
const Backend = "dynamodb"

// API is the subset of the DynamoDB client used by the driver.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Driver provides document operations on DynamoDB tables.
type Driver struct {
	client API
	config Config
	closed atomic.Bool
	newID  func() string
}

var _ driver.Driver = (*Driver)(nil)

// New creates a driver around an existing client.
func New(client API, config Config) *Driver {
	config.validate()
	return &Driver{
		client: client,
		config: config,
		newID:  uuid.NewString,
	}
}

// Open loads AWS configuration, builds a client and verifies that the
// service is reachable.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	cfg.validate()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return nil, fmt.Errorf("reach dynamodb: %w", err)
	}
	return New(client, cfg), nil
}

// Backend returns "dynamodb".
func (d *Driver) Backend() string { return Backend }

// TableName returns the table backing a collection.
func (d *Driver) TableName(collection string) string {
	return d.config.TablePrefix + collection
}

func (d *Driver) check(ctx context.Context) error {
	if d.closed.Load() {
		return driver.ErrClosed
	}
	return ctx.Err()
}

// Clone returns a new connection sharing the client. SDK clients are safe
// for concurrent use.
func (d *Driver) Clone(ctx context.Context) (driver.Driver, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	return New(d.client, d.config), nil
}

// Close marks the connection closed. The SDK client holds no resources
// that need releasing.
func (d *Driver) Close() error {
	d.closed.Store(true)
	return nil
}

// CollectionExists reports whether the prefixed table exists.
func (d *Driver) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := d.check(ctx); err != nil {
		return false, err
	}
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.TableName(name)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateCollection creates an on-demand table keyed by id and waits until
// it is active.
func (d *Driver) CreateCollection(ctx context.Context, name string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	if err := driver.ValidateCollectionName(name); err != nil {
		return err
	}
	table := d.TableName(name)
	_, err := d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(driver.IDField), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(driver.IDField), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return fmt.Errorf("%w: %s", driver.ErrCollectionExists, name)
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, d.config.CreateTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", table, err)
	}
	return nil
}

// ListCollections returns collections whose tables carry the configured prefix.
func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	var names []string
	paginator := dynamodb.NewListTablesPaginator(d.client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, table := range page.TableNames {
			if name, ok := strings.CutPrefix(table, d.config.TablePrefix); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Find scans the table with f as a filter expression. Identity lookups use
// a consistent GetItem instead.
func (d *Driver) Find(ctx context.Context, name string, f filter.Filter, opts driver.FindOptions) (driver.Cursor, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	table := d.TableName(name)

	if id, ok := f.IDLookup(driver.IDField); ok {
		return d.get(ctx, name, table, id)
	}

	expr, err := FilterExpression(f)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.ScanInput{TableName: aws.String(table)}
	if !expr.Empty() {
		input.FilterExpression = aws.String(expr.Condition)
		input.ExpressionAttributeNames = expr.Names
		input.ExpressionAttributeValues = expr.Values
	}
	return &scanCursor{
		collection: name,
		paginator:  dynamodb.NewScanPaginator(d.client, input),
		limit:      opts.Limit,
	}, nil
}

func (d *Driver) get(ctx context.Context, name, table, id string) (driver.Cursor, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapTableError(name, err)
	}
	if result.Item == nil {
		return driver.NewSliceCursor(nil), nil
	}
	rec, err := DecodeItem(result.Item)
	if err != nil {
		return nil, err
	}
	return driver.NewSliceCursor([]driver.Record{rec}), nil
}

// InsertOne writes rec under a fresh identity.
func (d *Driver) InsertOne(ctx context.Context, name string, rec driver.Record) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	item, err := EncodeItem(rec)
	if err != nil {
		return "", err
	}
	id := d.newID()
	item[driver.IDField] = &types.AttributeValueMemberS{Value: id}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.TableName(name)),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return "", driver.ErrDuplicateID
		}
		return "", mapTableError(name, err)
	}
	return id, nil
}

// UpdateOne sets fields on an existing item.
func (d *Driver) UpdateOne(ctx context.Context, name, id string, set driver.Record) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	update, err := UpdateExpression(set)
	if err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}
	update.Names["#id"] = driver.IDField

	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.TableName(name)),
		Key:                       key(id),
		UpdateExpression:          aws.String(update.Condition),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  update.Names,
		ExpressionAttributeValues: update.Values,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return driver.ErrNoDocument
		}
		return mapTableError(name, err)
	}
	return nil
}

// DeleteOne removes an existing item.
func (d *Driver) DeleteOne(ctx context.Context, name, id string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(d.TableName(name)),
		Key:                      key(id),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": driver.IDField},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return driver.ErrNoDocument
		}
		return mapTableError(name, err)
	}
	return nil
}

// scanCursor pages through Scan results on demand.
type scanCursor struct {
	collection string
	paginator  *dynamodb.ScanPaginator
	page       []map[string]types.AttributeValue
	pos        int
	yielded    int
	limit      int
	cur        driver.Record
	err        error
	closed     bool
}

func (c *scanCursor) Next(ctx context.Context) bool {
	c.cur = nil
	if c.closed || c.err != nil {
		return false
	}
	if c.limit > 0 && c.yielded >= c.limit {
		return false
	}
	for c.pos >= len(c.page) {
		if !c.paginator.HasMorePages() {
			return false
		}
		out, err := c.paginator.NextPage(ctx)
		if err != nil {
			c.err = mapTableError(c.collection, err)
			return false
		}
		c.page = out.Items
		c.pos = 0
	}
	rec, err := DecodeItem(c.page[c.pos])
	c.pos++
	if err != nil {
		c.err = err
		return false
	}
	c.cur = rec
	c.yielded++
	return true
}

func (c *scanCursor) Record() driver.Record { return c.cur }

func (c *scanCursor) Err() error { return c.err }

func (c *scanCursor) Close() error {
	c.closed = true
	return nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		driver.IDField: &types.AttributeValueMemberS{Value: id},
	}
}

func mapTableError(name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", driver.ErrNoCollection, name)
	}
	return err
}

func sortedKeys(rec driver.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
