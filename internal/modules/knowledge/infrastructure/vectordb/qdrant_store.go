package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"
)

const maxResponseBytes = 8 << 20

type QdrantConfig struct {
	URL            string
	APIKey         string
	CollectionName string
	VectorDim      int
	Timeout        time.Duration
}

// QdrantError 非 2xx 响应或 status 不是 ok
type QdrantError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *QdrantError) Error() string {
	return fmt.Sprintf("qdrant %s failed: status=%d %s", e.Op, e.StatusCode, e.Message)
}

type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	vectorDim  int
	http       *http.Client
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("qdrant url is empty")
	}
	if strings.TrimSpace(cfg.CollectionName) == "" {
		return nil, errors.New("collection is empty")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", cfg.VectorDim)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QdrantStore{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		collection: strings.TrimSpace(cfg.CollectionName),
		vectorDim:  cfg.VectorDim,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

var _ repository.VectorStore = (*QdrantStore)(nil)

func (s *QdrantStore) Collection() string { return s.collection }

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type qdrantPoint struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EnsureCollection 集合不存在时创建，并为过滤字段建 keyword 索引
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	err := s.doJSON(ctx, "get_collection", http.MethodGet, s.collectionPath(""), nil, nil)
	var qe *QdrantError
	switch {
	case err == nil:
	case errors.As(err, &qe) && qe.StatusCode == http.StatusNotFound:
		body := map[string]any{"vectors": map[string]any{"size": s.vectorDim, "distance": "Cosine"}}
		if err := s.doJSON(ctx, "create_collection", http.MethodPut, s.collectionPath(""), body, nil); err != nil {
			return err
		}
	default:
		return err
	}

	for _, field := range []string{entity.FieldUserID, entity.FieldSourceID} {
		body := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := s.doJSON(ctx, "create_index", http.MethodPut, s.collectionPath("/index?wait=true"), body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, points []entity.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := make([]qdrantPoint, 0, len(points))
	for _, p := range points {
		if p.Id == "" {
			return errors.New("point missing id")
		}
		if len(p.Vector) != s.vectorDim {
			return fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", p.Id, len(p.Vector), s.vectorDim)
		}
		body = append(body, qdrantPoint{
			ID:     p.Id,
			Vector: p.Vector,
			Payload: map[string]any{
				entity.FieldUserID:      p.UserId,
				entity.FieldSourceID:    p.SourceId,
				entity.FieldChunkIndex:  p.ChunkIndex,
				entity.FieldText:        p.Text,
				entity.FieldChunkLength: p.ChunkLength,
			},
		})
	}
	return s.doJSON(ctx, "upsert", http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

func (s *QdrantStore) Scroll(ctx context.Context, filter repository.Filter, limit int) ([]entity.Point, error) {
	f, err := qdrantFilter(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}
	req := map[string]any{
		"filter":       f,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	var result struct {
		Points []qdrantPoint `json:"points"`
	}
	if err := s.doJSON(ctx, "scroll", http.MethodPost, s.collectionPath("/points/scroll"), req, &result); err != nil {
		return nil, err
	}
	out := make([]entity.Point, 0, len(result.Points))
	for _, p := range result.Points {
		out = append(out, pointFromPayload(p))
	}
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context, filter repository.Filter) (int, error) {
	f, err := qdrantFilter(filter)
	if err != nil {
		return 0, err
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := s.doJSON(ctx, "count", http.MethodPost, s.collectionPath("/points/count"), map[string]any{"filter": f, "exact": true}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (s *QdrantStore) Delete(ctx context.Context, filter repository.Filter) error {
	f, err := qdrantFilter(filter)
	if err != nil {
		return err
	}
	return s.doJSON(ctx, "delete", http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": f}, nil)
}

func (s *QdrantStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.doJSON(ctx, "delete_ids", http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": ids}, nil)
}

func (s *QdrantStore) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

func (s *QdrantStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("qdrant %s: encode request: %w", op, err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("qdrant %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("qdrant %s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &QdrantError{Op: op, StatusCode: resp.StatusCode, Message: truncate(string(raw), 256)}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("qdrant %s: decode envelope: %w", op, err)
	}
	if msg := envelopeStatusError(envelope.Status); msg != "" {
		return &QdrantError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("qdrant %s: decode result: %w", op, err)
	}
	return nil
}

func envelopeStatusError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") {
			return ""
		}
		return "status=" + str
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Error != "" {
		return obj.Error
	}
	return ""
}

func pointFromPayload(p qdrantPoint) entity.Point {
	out := entity.Point{Id: fmt.Sprint(p.ID)}
	out.UserId, _ = p.Payload[entity.FieldUserID].(string)
	out.SourceId, _ = p.Payload[entity.FieldSourceID].(string)
	out.Text, _ = p.Payload[entity.FieldText].(string)
	if v, ok := p.Payload[entity.FieldChunkIndex].(float64); ok {
		out.ChunkIndex = int64(v)
	}
	if v, ok := p.Payload[entity.FieldChunkLength].(float64); ok {
		out.ChunkLength = int64(v)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
