package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"OmniAgent/internal/modules/knowledge/application/dto/request"
	"OmniAgent/internal/modules/knowledge/application/dto/respond"
	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"
	"OmniAgent/pkg/util"
	"OmniAgent/pkg/xerr"
	"OmniAgent/pkg/zlog"

	"go.uber.org/zap"
)

const defaultScrollLimit = 10000

// SourceSyncService 保证同一来源在向量库与元数据表之间的一致。
// 所有方法都返回完整的结果对象，存储层错误不会直接抛给调用方。
type SourceSyncService interface {
	Ingest(ctx context.Context, req request.IngestSourceRequest) *respond.IngestResult
	DeleteSource(ctx context.Context, req request.DeleteSourceRequest) *respond.DeleteResult
	ListSources(ctx context.Context, req request.ListSourcesRequest) *respond.ListSourcesResult
}

type SourceSyncOptions struct {
	// ScrollLimit 存在性检查一次最多取回的点数
	ScrollLimit int
	Locker      repository.KeyLocker
	Events      repository.SourceEventPublisher
}

type sourceSyncService struct {
	vectors     repository.VectorStore
	sources     repository.SourceRepository
	locker      repository.KeyLocker
	events      repository.SourceEventPublisher
	scrollLimit int
}

// NewSourceSyncService sources 为 nil 表示元数据库未配置
func NewSourceSyncService(vectors repository.VectorStore, sources repository.SourceRepository, opts SourceSyncOptions) SourceSyncService {
	limit := opts.ScrollLimit
	if limit <= 0 {
		limit = defaultScrollLimit
	}
	locker := opts.Locker
	if locker == nil {
		locker = noopLocker{}
	}
	return &sourceSyncService{
		vectors:     vectors,
		sources:     sources,
		locker:      locker,
		events:      opts.Events,
		scrollLimit: limit,
	}
}

func sourceLockKey(userID, sourceID string) string {
	return "omniagent:source:" + userID + ":" + sourceID
}

func (s *sourceSyncService) Ingest(ctx context.Context, req request.IngestSourceRequest) *respond.IngestResult {
	userID := strings.TrimSpace(req.UserId)
	sourceID := strings.TrimSpace(req.SourceId)
	saga := newIngestSaga(userID, sourceID, s.vectors.Collection(), s.sources != nil)

	if err := validateIngest(userID, sourceID, req); err != nil {
		saga.failed(stepValidate, err.Error())
		return saga.fail(xerr.KindValidation, err.Error())
	}
	saga.ok(stepValidate, "")

	unlock, err := s.locker.Lock(ctx, sourceLockKey(userID, sourceID))
	if err != nil {
		zlog.Error("source lock failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
		saga.failed(stepLock, err.Error())
		return saga.fail(xerr.KindStoreUnavailable, "could not acquire source lock")
	}
	defer unlock()
	saga.ok(stepLock, "")

	existing, err := s.vectors.Scroll(ctx, repository.SourceFilter(userID, sourceID), s.scrollLimit)
	if err != nil {
		zlog.Error("existence check failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
		saga.res.QdrantStatus = respond.QdrantFailed
		saga.failed(stepExistence, err.Error())
		return saga.fail(xerr.KindStoreUnavailable, "vector store unavailable, nothing written")
	}
	saga.ok(stepExistence, fmt.Sprintf("%d existing points", len(existing)))

	sourceType := entity.SourceType(strings.TrimSpace(req.SourceType))
	title := strings.TrimSpace(req.SourceTitle)

	if len(existing) > 0 {
		return s.replay(ctx, saga, userID, sourceID, title, sourceType, s.existingCount(ctx, userID, sourceID, len(existing)))
	}
	return s.ingestNew(ctx, saga, userID, sourceID, title, sourceType, req.Chunks, req.Vectors)
}

// existingCount scroll 被截断时改用精确计数，计数失败则退回截断值
func (s *sourceSyncService) existingCount(ctx context.Context, userID, sourceID string, scrolled int) int {
	if scrolled < s.scrollLimit {
		return scrolled
	}
	n, err := s.vectors.Count(ctx, repository.SourceFilter(userID, sourceID))
	if err != nil {
		zlog.Warn("exact point count failed, reporting scroll size", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
		return scrolled
	}
	return n
}

// replay 向量已存在时只刷新元数据，不写向量
func (s *sourceSyncService) replay(ctx context.Context, saga *ingestSaga, userID, sourceID, title string, sourceType entity.SourceType, count int) *respond.IngestResult {
	saga.res.QdrantStatus = respond.QdrantExisting
	saga.res.PointsUpserted = count
	saga.res.FileReplaced = false

	if s.sources == nil {
		saga.skipped(stepMetadata, "metadata store not configured")
	} else {
		status, err := s.touchOrCreate(ctx, userID, sourceID, title, sourceType)
		if err != nil {
			zlog.Error("metadata touch failed on replay", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
			saga.res.SupabaseStatus = respond.SupabaseFailed
			saga.failed(stepMetadata, err.Error())
			return saga.fail(xerr.KindStoreUnavailable, "source already ingested but metadata store update failed")
		}
		saga.res.SupabaseStatus = status
		saga.ok(stepMetadata, status)
	}

	s.publish(ctx, saga, entity.SourceEvent{
		Type: entity.EventSourceIngested, UserId: userID, SourceId: sourceID,
		Title: title, SourceType: string(sourceType), Points: count, Replayed: true,
	})
	return saga.finish("source already ingested, metadata refreshed")
}

func (s *sourceSyncService) ingestNew(ctx context.Context, saga *ingestSaga, userID, sourceID, title string, sourceType entity.SourceType, chunks []string, vectors [][]float32) *respond.IngestResult {
	var (
		prior   *entity.UserSource
		created *entity.UserSource
	)

	if s.sources == nil {
		saga.skipped(stepMetadata, "metadata store not configured")
	} else {
		found, err := s.sources.FindOne(ctx, userID, sourceID, "")
		if err != nil {
			zlog.Error("metadata lookup failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
			saga.res.SupabaseStatus = respond.SupabaseFailed
			saga.failed(stepMetadata, err.Error())
			return saga.fail(xerr.KindStoreUnavailable, "metadata store unavailable, no vectors written")
		}
		if found != nil {
			// 先不动旧行，向量写成功后再刷新
			prior = found
			saga.ok(stepMetadata, "pre-existing row, touch deferred")
		} else {
			row := &entity.UserSource{UserId: userID, SourceId: sourceID, SourceTitle: title, SourceType: sourceType}
			if err := s.sources.Create(ctx, row); err != nil {
				saga.res.SupabaseStatus = respond.SupabaseFailed
				saga.failed(stepMetadata, err.Error())
				if xerr.KindOf(err) == xerr.KindConflict {
					zlog.Warn("metadata create lost race", zap.String("user_id", userID), zap.String("source_id", sourceID))
					return saga.fail(xerr.KindConflict, "source is being ingested concurrently, retry")
				}
				zlog.Error("metadata create failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
				return saga.fail(xerr.KindOf(err), "metadata store unavailable, no vectors written")
			}
			created = row
			saga.ok(stepMetadata, respond.SupabaseCreated)
		}
	}

	points := make([]entity.Point, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for i, text := range chunks {
		id := util.GenerateUUID()
		ids = append(ids, id)
		points = append(points, entity.NewPoint(id, userID, sourceID, i, text, vectors[i]))
	}

	if err := s.vectors.Upsert(ctx, points); err != nil {
		zlog.Error("vector upsert failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Int("points", len(points)), zap.Error(err))
		saga.res.QdrantStatus = respond.QdrantFailed
		saga.failed(stepVectorUpsert, err.Error())
		return s.compensate(ctx, saga, prior, created)
	}
	saga.res.QdrantStatus = respond.QdrantUpserted
	saga.res.PointsUpserted = len(points)
	saga.ok(stepVectorUpsert, fmt.Sprintf("%d points", len(points)))

	if res := s.verifyNoDuplicates(ctx, saga, userID, sourceID, ids, prior, created != nil); res != nil {
		return res
	}

	switch {
	case created != nil:
		saga.res.SupabaseStatus = respond.SupabaseCreated
	case prior != nil:
		prior.SourceTitle = title
		prior.SourceType = sourceType
		if err := s.sources.Update(ctx, prior); err != nil {
			zlog.Error("metadata touch failed after vector write", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
			saga.res.SupabaseStatus = respond.SupabaseFailed
			saga.failed(stepMetadataTouch, err.Error())
			return saga.fail(xerr.KindPartialFailure, "vectors written but metadata refresh failed; metadata holds previous values")
		}
		saga.res.SupabaseStatus = respond.SupabaseUpdated
		saga.ok(stepMetadataTouch, "")
	}

	s.publish(ctx, saga, entity.SourceEvent{
		Type: entity.EventSourceIngested, UserId: userID, SourceId: sourceID,
		Title: title, SourceType: string(sourceType), Points: len(points),
	})
	return saga.finish(fmt.Sprintf("ingested %d chunks", len(points)))
}

// compensate 向量写失败后撤销本次新建的元数据行；旧行不动
func (s *sourceSyncService) compensate(ctx context.Context, saga *ingestSaga, prior, created *entity.UserSource) *respond.IngestResult {
	switch {
	case created != nil:
		if err := s.sources.Delete(ctx, created.Id); err != nil {
			zlog.Error("metadata compensation failed", zap.String("user_id", created.UserId), zap.String("source_id", created.SourceId), zap.Error(err))
			saga.res.SupabaseStatus = respond.SupabaseRolledBack
			saga.failed(stepCompensate, err.Error())
			return saga.fail(xerr.KindPartialFailure, "vector write failed and metadata rollback failed; metadata state unknown, re-query before retrying")
		}
		saga.res.SupabaseStatus = respond.SupabaseRolledBack
		saga.ok(stepCompensate, "")
	case prior != nil:
		saga.res.SupabaseStatus = respond.SupabaseNotAffected
		saga.skipped(stepCompensate, "pre-existing row left unchanged")
	default:
		saga.skipped(stepCompensate, "nothing to compensate")
	}
	return saga.fail(xerr.KindStoreUnavailable, "vector store write failed")
}

// verifyNoDuplicates 写入后复查点数。超出本批说明有并发写者，
// 未创建元数据行的一方删除自己这一批。返回 nil 表示继续。
func (s *sourceSyncService) verifyNoDuplicates(ctx context.Context, saga *ingestSaga, userID, sourceID string, ids []string, prior *entity.UserSource, creator bool) *respond.IngestResult {
	found, err := s.vectors.Scroll(ctx, repository.SourceFilter(userID, sourceID), len(ids)+1)
	if err != nil {
		zlog.Warn("duplicate verification skipped", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
		saga.failed(stepVerify, err.Error())
		return nil
	}
	if len(found) <= len(ids) {
		saga.ok(stepVerify, "")
		return nil
	}
	if creator {
		// 对方可能在我们写入前就完成了校验，只能由元数据行的创建者清掉对方的批次
		saga.ok(stepVerify, "concurrent batch detected, kept as metadata owner")
		removed, err := s.dropForeignPoints(ctx, userID, sourceID, ids)
		if err != nil {
			zlog.Error("removing concurrent batch failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
			saga.failed(stepVectorDedupe, err.Error())
			return saga.fail(xerr.KindPartialFailure, "own batch written but concurrent duplicate points could not be removed")
		}
		zlog.Warn("concurrent ingest detected, removed foreign batch", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Int("removed", removed))
		saga.ok(stepVectorDedupe, fmt.Sprintf("%d foreign points removed", removed))
		return nil
	}

	saga.failed(stepVerify, "concurrent batch detected")
	zlog.Warn("concurrent ingest detected, reverting own batch", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Int("points", len(ids)))
	if prior != nil {
		saga.res.SupabaseStatus = respond.SupabaseNotAffected
	}
	if err := s.vectors.DeleteByIDs(ctx, ids); err != nil {
		zlog.Error("reverting own batch failed", zap.String("user_id", userID), zap.String("source_id", sourceID), zap.Error(err))
		saga.failed(stepVectorRevert, err.Error())
		return saga.fail(xerr.KindPartialFailure, "concurrent ingest left duplicate points and revert failed")
	}
	saga.ok(stepVectorRevert, "")
	saga.res.QdrantStatus = respond.QdrantRolledBack
	saga.res.PointsUpserted = 0
	return saga.fail(xerr.KindConflict, "source was ingested concurrently, own batch reverted; retry")
}

// dropForeignPoints 删除该来源下不属于本批 ids 的所有点，返回删除数量
func (s *sourceSyncService) dropForeignPoints(ctx context.Context, userID, sourceID string, ids []string) (int, error) {
	own := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		own[id] = struct{}{}
	}
	limit := len(ids) + s.scrollLimit
	removed := 0
	for {
		found, err := s.vectors.Scroll(ctx, repository.SourceFilter(userID, sourceID), limit)
		if err != nil {
			return removed, err
		}
		foreign := make([]string, 0, len(found))
		for _, p := range found {
			if _, ok := own[p.Id]; !ok {
				foreign = append(foreign, p.Id)
			}
		}
		if len(foreign) == 0 {
			return removed, nil
		}
		if err := s.vectors.DeleteByIDs(ctx, foreign); err != nil {
			return removed, err
		}
		removed += len(foreign)
		if len(found) < limit {
			return removed, nil
		}
	}
}

// touchOrCreate 按 (user_id, source_id) 刷新或新建元数据行
func (s *sourceSyncService) touchOrCreate(ctx context.Context, userID, sourceID, title string, sourceType entity.SourceType) (string, error) {
	row, err := s.sources.FindOne(ctx, userID, sourceID, "")
	if err != nil {
		return "", err
	}
	if row == nil {
		row = &entity.UserSource{UserId: userID, SourceId: sourceID, SourceTitle: title, SourceType: sourceType}
		err = s.sources.Create(ctx, row)
		if err == nil {
			return respond.SupabaseCreated, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", err
		}
		// 并发方刚建好，转为更新
		row, err = s.sources.FindOne(ctx, userID, sourceID, "")
		if err != nil {
			return "", err
		}
		if row == nil {
			return "", errors.New("metadata row vanished after duplicate key")
		}
	}
	row.SourceTitle = title
	row.SourceType = sourceType
	if err := s.sources.Update(ctx, row); err != nil {
		return "", err
	}
	return respond.SupabaseUpdated, nil
}

func (s *sourceSyncService) publish(ctx context.Context, saga *ingestSaga, evt entity.SourceEvent) {
	if s.events == nil {
		saga.skipped(stepPublish, "")
		return
	}
	evt.Collection = s.vectors.Collection()
	evt.OccurredAt = time.Now().UTC()
	if err := s.events.PublishSourceEvent(ctx, evt); err != nil {
		zlog.Warn("publish source event failed", zap.String("type", evt.Type), zap.String("source_id", evt.SourceId), zap.Error(err))
		saga.failed(stepPublish, err.Error())
		return
	}
	saga.ok(stepPublish, "")
}

func validateIngest(userID, sourceID string, req request.IngestSourceRequest) error {
	if userID == "" {
		return errors.New("user_id is required")
	}
	if sourceID == "" {
		return errors.New("source_id is required")
	}
	if !entity.SourceType(strings.TrimSpace(req.SourceType)).Valid() {
		return fmt.Errorf("source_type must be website or pdf, got %q", req.SourceType)
	}
	if len(req.Chunks) == 0 {
		return errors.New("at least one chunk is required")
	}
	if len(req.Chunks) != len(req.Vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(req.Chunks), len(req.Vectors))
	}
	for i, v := range req.Vectors {
		if len(v) == 0 {
			return fmt.Errorf("vector %d is empty", i)
		}
	}
	return nil
}

func (s *sourceSyncService) DeleteSource(ctx context.Context, req request.DeleteSourceRequest) *respond.DeleteResult {
	userID := strings.TrimSpace(req.UserId)
	title := strings.TrimSpace(req.SourceTitle)
	res := &respond.DeleteResult{
		Status:         respond.StatusError,
		UserId:         userID,
		SourceTitle:    title,
		QdrantStatus:   respond.QdrantNotAttempted,
		SupabaseStatus: respond.SupabaseNotAffected,
	}
	fail := func(kind xerr.Kind, msg string) *respond.DeleteResult {
		res.Error = string(kind)
		res.Message = msg
		return res
	}

	if userID == "" || title == "" {
		return fail(xerr.KindValidation, "user_id and source_title are required")
	}
	if s.sources == nil {
		res.SupabaseStatus = respond.SupabaseNotConfigured
		return fail(xerr.KindNotFound, "metadata store not configured, cannot resolve source title")
	}

	src, err := s.sources.FindByTitle(ctx, userID, title)
	if err != nil {
		zlog.Error("resolve source title failed", zap.String("user_id", userID), zap.String("title", title), zap.Error(err))
		res.SupabaseStatus = respond.SupabaseFailed
		return fail(xerr.KindStoreUnavailable, "metadata store unavailable")
	}
	if src == nil {
		return fail(xerr.KindNotFound, fmt.Sprintf("no source titled %q", title))
	}
	res.SourceId = src.SourceId

	unlock, err := s.locker.Lock(ctx, sourceLockKey(userID, src.SourceId))
	if err != nil {
		zlog.Error("source lock failed", zap.String("user_id", userID), zap.String("source_id", src.SourceId), zap.Error(err))
		return fail(xerr.KindStoreUnavailable, "could not acquire source lock")
	}
	defer unlock()

	if err := s.vectors.Delete(ctx, repository.SourceFilter(userID, src.SourceId)); err != nil {
		zlog.Error("vector delete failed", zap.String("user_id", userID), zap.String("source_id", src.SourceId), zap.Error(err))
		res.QdrantStatus = respond.QdrantFailed
		return fail(xerr.KindStoreUnavailable, "vector store delete failed, metadata kept")
	}
	res.QdrantStatus = respond.QdrantDeleted

	if err := s.sources.Delete(ctx, src.Id); err != nil {
		zlog.Error("metadata delete failed after vector delete", zap.String("user_id", userID), zap.String("source_id", src.SourceId), zap.Error(err))
		res.SupabaseStatus = respond.SupabaseFailed
		return fail(xerr.KindPartialFailure, "vectors deleted but metadata row remains")
	}
	res.SupabaseStatus = respond.SupabaseDeleted

	if s.events != nil {
		evt := entity.SourceEvent{
			Type: entity.EventSourceDeleted, UserId: userID, SourceId: src.SourceId, Title: title,
			SourceType: string(src.SourceType), Collection: s.vectors.Collection(), OccurredAt: time.Now().UTC(),
		}
		if err := s.events.PublishSourceEvent(ctx, evt); err != nil {
			zlog.Warn("publish source event failed", zap.String("type", evt.Type), zap.String("source_id", evt.SourceId), zap.Error(err))
		}
	}

	res.Status = respond.StatusSuccess
	res.Message = "source deleted"
	return res
}

func (s *sourceSyncService) ListSources(ctx context.Context, req request.ListSourcesRequest) *respond.ListSourcesResult {
	userID := strings.TrimSpace(req.UserId)
	sourceType := entity.SourceType(strings.TrimSpace(req.SourceType))
	res := &respond.ListSourcesResult{
		Status:  respond.StatusError,
		UserId:  userID,
		Sources: []respond.SourceItem{},
	}

	if userID == "" {
		res.Error = string(xerr.KindValidation)
		res.Message = "user_id is required"
		return res
	}
	if sourceType != "" && !sourceType.Valid() {
		res.Error = string(xerr.KindValidation)
		res.Message = fmt.Sprintf("source_type must be website or pdf, got %q", req.SourceType)
		return res
	}
	if s.sources == nil {
		res.Status = respond.StatusSuccess
		res.SupabaseStatus = respond.SupabaseNotConfigured
		res.Message = "metadata store not configured"
		return res
	}

	rows, err := s.sources.ListByUser(ctx, userID, sourceType)
	if err != nil {
		zlog.Error("list sources failed", zap.String("user_id", userID), zap.Error(err))
		res.SupabaseStatus = respond.SupabaseFailed
		res.Error = string(xerr.KindStoreUnavailable)
		res.Message = "metadata store unavailable"
		return res
	}
	for _, r := range rows {
		res.Sources = append(res.Sources, respond.SourceItem{
			SourceId:    r.SourceId,
			SourceTitle: r.SourceTitle,
			SourceType:  string(r.SourceType),
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	res.Status = respond.StatusSuccess
	res.SupabaseStatus = respond.SupabaseAvailable
	return res
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }
