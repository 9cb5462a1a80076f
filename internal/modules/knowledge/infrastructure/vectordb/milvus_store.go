package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	mentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldID     = "id"
	fieldVector = "vector"
	fieldCount  = "count(*)"
)

var outputFields = []string{
	fieldID,
	entity.FieldUserID,
	entity.FieldSourceID,
	entity.FieldChunkIndex,
	entity.FieldText,
	entity.FieldChunkLength,
}

type MilvusStore struct {
	cli        mclient.Client
	collection string
	vectorDim  int
}

func NewMilvusStore(cli mclient.Client, collection string, vectorDim int) (*MilvusStore, error) {
	if cli == nil {
		return nil, errors.New("milvus client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	return &MilvusStore{cli: cli, collection: collection, vectorDim: vectorDim}, nil
}

var _ repository.VectorStore = (*MilvusStore)(nil)

func (s *MilvusStore) Collection() string { return s.collection }

func (s *MilvusStore) Upsert(ctx context.Context, points []entity.Point) error {
	if len(points) == 0 {
		return nil
	}
	ids := make([]string, 0, len(points))
	vectors := make([][]float32, 0, len(points))
	userIDs := make([]string, 0, len(points))
	sourceIDs := make([]string, 0, len(points))
	chunkIdx := make([]int64, 0, len(points))
	texts := make([]string, 0, len(points))
	lengths := make([]int64, 0, len(points))

	for _, p := range points {
		if p.Id == "" {
			return errors.New("point missing id")
		}
		if len(p.Vector) != s.vectorDim {
			return fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", p.Id, len(p.Vector), s.vectorDim)
		}
		ids = append(ids, p.Id)
		vectors = append(vectors, p.Vector)
		userIDs = append(userIDs, p.UserId)
		sourceIDs = append(sourceIDs, p.SourceId)
		chunkIdx = append(chunkIdx, p.ChunkIndex)
		texts = append(texts, p.Text)
		lengths = append(lengths, p.ChunkLength)
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"",
		mentity.NewColumnVarChar(fieldID, ids),
		mentity.NewColumnFloatVector(fieldVector, s.vectorDim, vectors),
		mentity.NewColumnVarChar(entity.FieldUserID, userIDs),
		mentity.NewColumnVarChar(entity.FieldSourceID, sourceIDs),
		mentity.NewColumnInt64(entity.FieldChunkIndex, chunkIdx),
		mentity.NewColumnVarChar(entity.FieldText, texts),
		mentity.NewColumnInt64(entity.FieldChunkLength, lengths),
	)
	return err
}

// Scroll 用强一致读，刚写入的点立即可见
func (s *MilvusStore) Scroll(ctx context.Context, filter repository.Filter, limit int) ([]entity.Point, error) {
	expr, err := milvusExpr(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}
	rs, err := s.cli.Query(
		ctx,
		s.collection,
		nil,
		expr,
		outputFields,
		mclient.WithLimit(int64(limit)),
		mclient.WithSearchQueryConsistencyLevel(mentity.ClStrong),
	)
	if err != nil {
		return nil, err
	}
	return parseQueryResult(rs)
}

func (s *MilvusStore) Count(ctx context.Context, filter repository.Filter) (int, error) {
	expr, err := milvusExpr(filter)
	if err != nil {
		return 0, err
	}
	rs, err := s.cli.Query(
		ctx,
		s.collection,
		nil,
		expr,
		[]string{fieldCount},
		mclient.WithSearchQueryConsistencyLevel(mentity.ClStrong),
	)
	if err != nil {
		return 0, err
	}
	col := columnByName(rs, fieldCount)
	if col == nil || col.Len() == 0 {
		return 0, errors.New("milvus count: empty result")
	}
	n, err := col.GetAsInt64(0)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *MilvusStore) Delete(ctx context.Context, filter repository.Filter) error {
	expr, err := milvusExpr(filter)
	if err != nil {
		return err
	}
	return s.cli.Delete(ctx, s.collection, "", expr)
}

func (s *MilvusStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.cli.Delete(ctx, s.collection, "", milvusIDsExpr(ids))
}

func parseQueryResult(rs mclient.ResultSet) ([]entity.Point, error) {
	idCol := columnByName(rs, fieldID)
	if idCol == nil {
		return []entity.Point{}, nil
	}
	userCol := columnByName(rs, entity.FieldUserID)
	sourceCol := columnByName(rs, entity.FieldSourceID)
	idxCol := columnByName(rs, entity.FieldChunkIndex)
	textCol := columnByName(rs, entity.FieldText)
	lenCol := columnByName(rs, entity.FieldChunkLength)

	out := make([]entity.Point, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		id, err := idCol.GetAsString(i)
		if err != nil {
			return nil, err
		}
		p := entity.Point{Id: id}
		if userCol != nil {
			p.UserId, _ = userCol.GetAsString(i)
		}
		if sourceCol != nil {
			p.SourceId, _ = sourceCol.GetAsString(i)
		}
		if idxCol != nil {
			p.ChunkIndex, _ = idxCol.GetAsInt64(i)
		}
		if textCol != nil {
			p.Text, _ = textCol.GetAsString(i)
		}
		if lenCol != nil {
			p.ChunkLength, _ = lenCol.GetAsInt64(i)
		}
		out = append(out, p)
	}
	return out, nil
}

func columnByName(cols mclient.ResultSet, name string) mentity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}
