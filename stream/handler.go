// Package stream decodes DynamoDB Streams records of a docstore collection
// into typed document changes.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/store"
)

// Kind is the type of change carried by a stream record.
type Kind string

const (
	// Insert is a newly created document.
	Insert Kind = "INSERT"
	// Modify is an update to an existing document.
	Modify Kind = "MODIFY"
	// Remove is a deleted document.
	Remove Kind = "REMOVE"
)

// Change is one decoded stream record.
type Change[T any] struct {
	EventID string
	Kind    Kind
	ID      string

	// Old and New are nil when the stream view type does not include the
	// corresponding image.
	Old *T
	New *T

	// Fields holds the wire names that differ between Old and New. Set for
	// Modify changes carrying both images.
	Fields []string
}

// HandlerFunc receives decoded changes.
type HandlerFunc[T any] func(ctx context.Context, change Change[T]) error

// Handler decodes stream events with a schema and passes each change to a
// HandlerFunc.
type Handler[T any] struct {
	schema *store.Schema[T]
	fn     HandlerFunc[T]
	logger *zap.Logger
}

// NewHandler creates a new stream handler.
func NewHandler[T any](schema *store.Schema[T], fn HandlerFunc[T], logger *zap.Logger) *Handler[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler[T]{
		schema: schema,
		fn:     fn,
		logger: logger,
	}
}

// HandleEvent processes the records of a DynamoDB stream event in order.
// It stops at the first failing record and returns its error so that the
// batch is retried. This function is designed to be used as an AWS Lambda
// handler.
func (h *Handler[T]) HandleEvent(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				zap.String("eventID", record.EventID),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

func (h *Handler[T]) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	change, err := Decode(h.schema, record)
	if err != nil {
		return err
	}
	if change.Kind == "" {
		h.logger.Debug("skipping record", zap.String("eventName", record.EventName))
		return nil
	}

	h.logger.Debug("processing change",
		zap.String("eventID", change.EventID),
		zap.String("kind", string(change.Kind)),
		zap.String("id", change.ID),
		zap.Strings("fields", change.Fields),
	)
	if err := h.fn(ctx, change); err != nil {
		return fmt.Errorf("handle %s %s: %w", change.Kind, change.ID, err)
	}
	return nil
}

// Decode converts a stream record into a Change. Records with an unknown
// event name yield a Change with an empty Kind.
func Decode[T any](schema *store.Schema[T], record events.DynamoDBEventRecord) (Change[T], error) {
	change := Change[T]{EventID: record.EventID}
	switch Kind(record.EventName) {
	case Insert, Modify, Remove:
		change.Kind = Kind(record.EventName)
	default:
		return change, nil
	}

	change.ID = getStringAttr(record.Change.Keys, driver.IDField)
	if change.ID == "" {
		change.ID = getStringAttr(record.Change.NewImage, driver.IDField)
	}
	if change.ID == "" {
		change.ID = getStringAttr(record.Change.OldImage, driver.IDField)
	}
	if change.ID == "" {
		return Change[T]{}, fmt.Errorf("record %s has no %s key", record.EventID, driver.IDField)
	}

	var err error
	if change.Old, err = decodeImage(schema, change.ID, record.Change.OldImage); err != nil {
		return Change[T]{}, fmt.Errorf("old image of %s: %w", change.ID, err)
	}
	if change.New, err = decodeImage(schema, change.ID, record.Change.NewImage); err != nil {
		return Change[T]{}, fmt.Errorf("new image of %s: %w", change.ID, err)
	}
	if change.Kind == Modify && change.Old != nil && change.New != nil {
		change.Fields = schema.Changed(change.Old, change.New)
	}
	return change, nil
}

func decodeImage[T any](schema *store.Schema[T], id string, image map[string]events.DynamoDBAttributeValue) (*T, error) {
	rec, err := ImageRecord(image)
	if err != nil || rec == nil {
		return nil, err
	}
	return schema.Decode(id, rec)
}
