package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/driver/dynamo"
	"github.com/jacentio/docstore/driver/memory"
	"github.com/jacentio/docstore/driver/sqlite"
)

const instrumentationName = "github.com/jacentio/docstore/store"

// Handle owns one store connection and the collection bindings made through it.
type Handle struct {
	driver driver.Driver
	logger *zap.Logger
	tp     trace.TracerProvider
	tracer trace.Tracer

	mu       sync.RWMutex
	registry *registry
	closed   bool
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the logger. Default: no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider. Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handle) {
		if tp != nil {
			h.tp = tp
		}
	}
}

// New creates a Handle around an open driver connection.
func New(d driver.Driver, opts ...Option) *Handle {
	h := &Handle{
		driver:   d,
		logger:   zap.NewNop(),
		tp:       otel.GetTracerProvider(),
		registry: newRegistry(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.tracer = h.tp.Tracer(instrumentationName)
	return h
}

// Open connects to the backend selected by cfg. Failures are reported as
// *ConnectionError and are not retried.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Handle, error) {
	cfg.validate()

	var d driver.Driver
	var err error
	switch cfg.Backend {
	case BackendMemory:
		d = memory.New()
	case BackendSQLite:
		d, err = sqlite.Open(ctx, cfg.SQLitePath)
	case BackendDynamo:
		d, err = dynamo.Open(ctx, cfg.Dynamo)
	default:
		err = fmt.Errorf("unknown store backend: %q (supported: memory, sqlite, dynamodb)", cfg.Backend)
	}
	if err != nil {
		return nil, &ConnectionError{Backend: cfg.Backend, Err: err}
	}

	h := New(d, opts...)
	h.logger.Info("store opened", zap.String("backend", d.Backend()))
	return h, nil
}

// Backend names the driver behind the handle.
func (h *Handle) Backend() string {
	return h.driver.Backend()
}

// Bindings returns a snapshot of document type name to collection name.
func (h *Handle) Bindings() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry.snapshot()
}

// Collections lists the collections known to the store.
func (h *Handle) Collections(ctx context.Context) ([]string, error) {
	d, err := h.conn()
	if err != nil {
		return nil, err
	}
	return d.ListCollections(ctx)
}

// CreateCollection creates a collection without binding a type to it.
func (h *Handle) CreateCollection(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	return h.ensureCollection(ctx, name, true)
}

// Driver returns the underlying connection for untyped access to records.
// Writes made through it bypass document state tracking.
func (h *Handle) Driver() (driver.Driver, error) {
	return h.conn()
}

// Copy opens a second connection with the same settings and copies the
// binding table into a new, independent handle.
func (h *Handle) Copy(ctx context.Context) (*Handle, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrHandleClosed
	}

	d, err := h.driver.Clone(ctx)
	if err != nil {
		return nil, &ConnectionError{Backend: h.driver.Backend(), Err: err}
	}
	cp := New(d, WithLogger(h.logger), WithTracerProvider(h.tp))
	cp.registry = h.registry.clone()
	h.logger.Debug("store handle copied", zap.Int("bindings", len(cp.registry.bindings)))
	return cp, nil
}

// Close releases the connection and clears every binding. Collections
// bound through the handle fail with ErrHandleClosed afterwards.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.registry.clear()
	h.logger.Debug("store handle closed")
	return h.driver.Close()
}

// conn returns the driver if the handle is open.
func (h *Handle) conn() (driver.Driver, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	return h.driver, nil
}

// activeConn returns the driver if b is still the live binding of its type.
func (h *Handle) activeConn(b *binding) (driver.Driver, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if !h.registry.active(b) {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, b.typ)
	}
	return h.driver, nil
}

// BindOption configures Bind.
type BindOption func(*bindOptions)

type bindOptions struct {
	createIfMissing bool
}

// CreateIfMissing makes Bind create the collection when it does not exist.
func CreateIfMissing() BindOption {
	return func(o *bindOptions) { o.createIfMissing = true }
}

// Bind registers document type T on h under the named collection and
// returns the collection used for reads and writes.
//
// A type may be bound once per handle; a second Bind fails with
// ErrDuplicateBinding and leaves the first binding active. The collection
// must exist unless CreateIfMissing is given. Concurrent binds are
// serialised, so exactly one caller wins.
func Bind[T any](ctx context.Context, h *Handle, collection string, schema *Schema[T], opts ...BindOption) (*Collection[T], error) {
	var o bindOptions
	for _, opt := range opts {
		opt(&o)
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if _, ok := any(new(T)).(Document); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDocument, reflect.TypeFor[T]())
	}

	ctx, span := h.startSpan(ctx, "bind", collection)
	var err error
	defer func() { endSpan(span, err) }()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		err = ErrHandleClosed
		return nil, err
	}

	typ := reflect.TypeFor[T]()
	if _, bound := h.registry.lookup(typ); bound {
		err = fmt.Errorf("%w: %s", ErrDuplicateBinding, typ)
		return nil, err
	}

	if err = h.ensureCollection(ctx, collection, o.createIfMissing); err != nil {
		return nil, err
	}

	b := &binding{typ: typ, collection: collection, schema: schema}
	if err = h.registry.register(b); err != nil {
		return nil, err
	}
	h.logger.Info("document type bound",
		zap.String("type", typ.String()),
		zap.String("collection", collection),
	)
	return newCollection(h, b, schema), nil
}

// ensureCollection resolves the collection, creating it when allowed.
// Callers hold h.mu.
func (h *Handle) ensureCollection(ctx context.Context, name string, create bool) error {
	if err := driver.ValidateCollectionName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrCollectionNotFound, err)
	}
	exists, err := h.driver.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if !create {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	err = h.driver.CreateCollection(ctx, name)
	if errors.Is(err, driver.ErrCollectionExists) {
		// Another handle created it after the existence check.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	h.logger.Info("collection created", zap.String("collection", name))
	return nil
}

// Lookup returns the collection T is bound to on h.
func Lookup[T any](h *Handle) (*Collection[T], error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	typ := reflect.TypeFor[T]()
	b, ok := h.registry.lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, typ)
	}
	schema, ok := b.schema.(*Schema[T])
	if !ok {
		return nil, fmt.Errorf("%w: schema type mismatch for %s", ErrInvalidSchema, typ)
	}
	return newCollection(h, b, schema), nil
}

func (h *Handle) startSpan(ctx context.Context, op, collection string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("docstore.collection", collection))
	return h.tracer.Start(ctx, "docstore."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
