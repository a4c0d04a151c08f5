// Package esstore provides an Elasticsearch implementation of triage.Store.
// It forwards fully-formed query specs to the store and unwraps the response
// envelopes; domain semantics live in the caller.
package esstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/afrigov/sentinel/internal/triage/esstore")

// StoreError wraps any transport or store failure. No retries; it surfaces to
// the caller as-is.
type StoreError struct {
	Op    string
	Index string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("esstore: %s %s: %v", e.Op, e.Index, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store persists incidents, decisions, and escalations in Elasticsearch.
type Store struct {
	es *elasticsearch.Client
}

// New creates a Store and verifies connectivity.
func New(ctx context.Context, url, apiKey string) (*Store, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		APIKey:    apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	s := &Store{es: es}
	if _, err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Ping checks connectivity and returns the cluster version string.
func (s *Store) Ping(ctx context.Context) (string, error) {
	res, err := s.es.Info(s.es.Info.WithContext(ctx))
	if err != nil {
		return "", &StoreError{Op: "info", Err: err}
	}
	defer closeBody(res)
	if res.IsError() {
		return "", &StoreError{Op: "info", Err: fmt.Errorf("status %d", res.StatusCode)}
	}

	var info struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return "", &StoreError{Op: "info", Err: fmt.Errorf("decode: %w", err)}
	}
	return info.Version.Number, nil
}

// searchResult is the unwrapped search response envelope.
type searchResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

type searchHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

// put indexes a document under the given id and returns the stored id.
func (s *Store) put(ctx context.Context, index, docID string, doc any) (string, error) {
	ctx, span := s.startSpan(ctx, "put", index)
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		return "", s.fail(span, &StoreError{Op: "put", Index: index, Err: fmt.Errorf("marshal: %w", err)})
	}

	res, err := s.es.Index(index, bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(docID),
	)
	if err != nil {
		return "", s.fail(span, &StoreError{Op: "put", Index: index, Err: err})
	}
	defer closeBody(res)
	if res.IsError() {
		return "", s.fail(span, &StoreError{Op: "put", Index: index, Err: envelopeError(res)})
	}

	var out struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", s.fail(span, &StoreError{Op: "put", Index: index, Err: fmt.Errorf("decode: %w", err)})
	}
	return out.ID, nil
}

// search forwards a query spec and unwraps the hit envelope.
func (s *Store) search(ctx context.Context, index string, spec any) (*searchResult, error) {
	ctx, span := s.startSpan(ctx, "search", index)
	defer span.End()

	body, err := json.Marshal(spec)
	if err != nil {
		return nil, s.fail(span, &StoreError{Op: "search", Index: index, Err: fmt.Errorf("marshal: %w", err)})
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, s.fail(span, &StoreError{Op: "search", Index: index, Err: err})
	}
	defer closeBody(res)
	if res.IsError() {
		return nil, s.fail(span, &StoreError{Op: "search", Index: index, Err: envelopeError(res)})
	}

	var out searchResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, s.fail(span, &StoreError{Op: "search", Index: index, Err: fmt.Errorf("decode: %w", err)})
	}
	return &out, nil
}

// getDoc fetches one document by id. Returns (nil, false, nil) when absent.
func (s *Store) getDoc(ctx context.Context, index, docID string) (json.RawMessage, bool, error) {
	ctx, span := s.startSpan(ctx, "get", index)
	defer span.End()

	res, err := s.es.Get(index, docID, s.es.Get.WithContext(ctx))
	if err != nil {
		return nil, false, s.fail(span, &StoreError{Op: "get", Index: index, Err: err})
	}
	defer closeBody(res)
	if res.StatusCode == 404 {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, s.fail(span, &StoreError{Op: "get", Index: index, Err: envelopeError(res)})
	}

	var out struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, false, s.fail(span, &StoreError{Op: "get", Index: index, Err: fmt.Errorf("decode: %w", err)})
	}
	if !out.Found {
		return nil, false, nil
	}
	return out.Source, true, nil
}

// update applies a partial document update.
func (s *Store) update(ctx context.Context, index, docID string, fields map[string]any) error {
	ctx, span := s.startSpan(ctx, "update", index)
	defer span.End()

	body, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return s.fail(span, &StoreError{Op: "update", Index: index, Err: fmt.Errorf("marshal: %w", err)})
	}

	res, err := s.es.Update(index, docID, bytes.NewReader(body), s.es.Update.WithContext(ctx))
	if err != nil {
		return s.fail(span, &StoreError{Op: "update", Index: index, Err: err})
	}
	defer closeBody(res)
	if res.IsError() {
		return s.fail(span, &StoreError{Op: "update", Index: index, Err: envelopeError(res)})
	}
	return nil
}

func (s *Store) startSpan(ctx context.Context, op, index string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "esstore."+op, trace.WithAttributes(
		attribute.String("db.system", "elasticsearch"),
		attribute.String("db.operation.name", op),
		attribute.String("db.collection.name", index),
	))
}

func (s *Store) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// envelopeError extracts a bounded error description from a store response.
func envelopeError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("status %d: %s", res.StatusCode, string(body))
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}
