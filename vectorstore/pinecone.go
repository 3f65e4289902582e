package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jobtalk/jobtalk/errors"
)

// DefaultControlURL is the Pinecone control plane endpoint.
const DefaultControlURL = "https://api.pinecone.io"

// PineconeStore is a Store backed by a Pinecone serverless index. The control
// plane handles index lifecycle; vector reads and writes go to the index's
// own data plane host, resolved once and cached.
type PineconeStore struct {
	apiKey     string
	index      string
	cloud      string
	region     string
	controlURL string
	client     *http.Client

	mu      sync.Mutex
	dataURL string
}

// PineconeConfig configures the Pinecone adapter.
type PineconeConfig struct {
	APIKey string
	Index  string
	Cloud  string // default: aws
	Region string // default: us-east-1

	// ControlURL and DataURL override the Pinecone endpoints, for tests.
	ControlURL string
	DataURL    string
}

// NewPineconeStore creates a Pinecone-backed store. A missing API key is an
// error; there is no local fallback behind this adapter.
func NewPineconeStore(cfg PineconeConfig) (*PineconeStore, error) {
	if cfg.APIKey == "" {
		return nil, errors.StoreUnavailable("pinecone api key is not configured")
	}
	if cfg.Index == "" {
		return nil, errors.InvalidInput("pinecone index name is required")
	}
	cloud := cfg.Cloud
	if cloud == "" {
		cloud = "aws"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	controlURL := cfg.ControlURL
	if controlURL == "" {
		controlURL = DefaultControlURL
	}
	return &PineconeStore{
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		cloud:      cloud,
		region:     region,
		controlURL: controlURL,
		dataURL:    cfg.DataURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type pineconeIndexSpec struct {
	Serverless struct {
		Cloud  string `json:"cloud"`
		Region string `json:"region"`
	} `json:"serverless"`
}

type pineconeCreateIndexRequest struct {
	Name      string            `json:"name"`
	Dimension int               `json:"dimension"`
	Metric    string            `json:"metric"`
	Spec      pineconeIndexSpec `json:"spec"`
}

type pineconeIndexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// EnsureIndex creates the serverless index if it does not exist and caches
// the data plane host. Concurrent creates race harmlessly: a conflict from
// the control plane means another caller won, which is success.
func (s *PineconeStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "index dimension must be positive, got %d", dimension)
	}

	desc, err := s.describeIndex(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeNotFound) {
			return err
		}
		if err := s.createIndex(ctx, dimension); err != nil {
			return err
		}
		desc, err = s.describeIndex(ctx)
		if err != nil {
			return err
		}
	}

	if desc.Dimension != 0 && desc.Dimension != dimension {
		return errors.DimensionMismatch(desc.Dimension, dimension)
	}

	s.mu.Lock()
	if s.dataURL == "" && desc.Host != "" {
		s.dataURL = "https://" + desc.Host
	}
	s.mu.Unlock()
	return nil
}

func (s *PineconeStore) describeIndex(ctx context.Context) (*pineconeIndexDescription, error) {
	body, status, err := s.do(ctx, "GET", s.controlURL+"/indexes/"+s.index, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, errors.NotFound("pinecone index does not exist", errors.WithMetadata("index", s.index))
	}
	if status != http.StatusOK {
		return nil, errors.Upstream("pinecone", status, string(body))
	}

	var desc pineconeIndexDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, errors.MalformedResponse("failed to parse index description", errors.WithCause(err))
	}
	return &desc, nil
}

func (s *PineconeStore) createIndex(ctx context.Context, dimension int) error {
	req := pineconeCreateIndexRequest{
		Name:      s.index,
		Dimension: dimension,
		Metric:    "cosine",
	}
	req.Spec.Serverless.Cloud = s.cloud
	req.Spec.Serverless.Region = s.region

	body, status, err := s.do(ctx, "POST", s.controlURL+"/indexes", req)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusConflict:
		// Another caller created the index first
		return nil
	default:
		return errors.Upstream("pinecone", status, string(body))
	}
}

type pineconeUpsertRequest struct {
	Vectors   []Record `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert writes records into a namespace on the data plane and returns the
// count written.
func (s *PineconeStore) Upsert(ctx context.Context, namespace string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	want := len(records[0].Values)
	for _, r := range records {
		if len(r.Values) != want {
			return 0, errors.DimensionMismatch(want, len(r.Values))
		}
	}

	dataURL, err := s.resolveDataURL(ctx)
	if err != nil {
		return 0, err
	}

	req := pineconeUpsertRequest{
		Vectors:   records,
		Namespace: namespace,
	}
	body, status, err := s.do(ctx, "POST", dataURL+"/vectors/upsert", req)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, errors.Upstream("pinecone", status, string(body))
	}

	var resp pineconeUpsertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, errors.MalformedResponse("failed to parse upsert response", errors.WithCause(err))
	}
	if resp.UpsertedCount == 0 {
		// Older data planes omit the count on success
		return len(records), nil
	}
	return resp.UpsertedCount, nil
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns up to topK records most similar to the vector.
func (s *PineconeStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "topK must be positive, got %d", topK)
	}
	dataURL, err := s.resolveDataURL(ctx)
	if err != nil {
		return nil, err
	}

	req := pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}
	body, status, err := s.do(ctx, "POST", dataURL+"/query", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.Upstream("pinecone", status, string(body))
	}

	var resp pineconeQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.MalformedResponse("failed to parse query response", errors.WithCause(err))
	}
	return resp.Matches, nil
}

// resolveDataURL returns the cached data plane URL, describing the index to
// discover it when needed.
func (s *PineconeStore) resolveDataURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.dataURL
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	desc, err := s.describeIndex(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return "", errors.StoreUnavailable("pinecone index does not exist; bootstrap a session first",
				errors.WithMetadata("index", s.index))
		}
		return "", err
	}
	if desc.Host == "" {
		return "", errors.StoreUnavailable("pinecone index has no data plane host yet",
			errors.WithMetadata("index", s.index))
	}

	url := "https://" + desc.Host
	s.mu.Lock()
	s.dataURL = url
	s.mu.Unlock()
	return url, nil
}

// do sends a JSON request with the Pinecone auth header and returns the raw
// response body and status.
func (s *PineconeStore) do(ctx context.Context, method, url string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to marshal pinecone request")
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create pinecone request")
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, errors.WrapWithCode(err, errors.ErrCodeStoreUnavailable, "pinecone request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.WrapWithCode(err, errors.ErrCodeStoreUnavailable, "failed to read pinecone response")
	}
	return body, resp.StatusCode, nil
}
