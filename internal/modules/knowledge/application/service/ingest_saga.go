package service

import (
	"OmniAgent/internal/modules/knowledge/application/dto/respond"
	"OmniAgent/pkg/xerr"
)

// 摄取流程的步骤名，按执行顺序
const (
	stepValidate      = "validate"
	stepLock          = "lock"
	stepExistence     = "existence_check"
	stepMetadata      = "metadata_upsert"
	stepVectorUpsert  = "vector_upsert"
	stepCompensate    = "metadata_compensate"
	stepVerify        = "duplicate_verify"
	stepVectorRevert  = "vector_revert"
	stepVectorDedupe  = "vector_dedupe"
	stepMetadataTouch = "metadata_touch"
	stepPublish       = "publish_event"
)

// ingestSaga 记录每一步的结果，最终状态由 finish/fail 一次性写入
type ingestSaga struct {
	res *respond.IngestResult
}

func newIngestSaga(userID, sourceID, collection string, metadataConfigured bool) *ingestSaga {
	supabase := respond.SupabaseNotAffected
	if !metadataConfigured {
		supabase = respond.SupabaseNotConfigured
	}
	return &ingestSaga{res: &respond.IngestResult{
		Status:         respond.StatusError,
		UserId:         userID,
		SourceId:       sourceID,
		Collection:     collection,
		QdrantStatus:   respond.QdrantNotAttempted,
		SupabaseStatus: supabase,
		Steps:          []respond.Step{},
	}}
}

func (s *ingestSaga) ok(name, detail string) {
	s.res.Steps = append(s.res.Steps, respond.Step{Name: name, Outcome: respond.StepOK, Detail: detail})
}

func (s *ingestSaga) failed(name, detail string) {
	s.res.Steps = append(s.res.Steps, respond.Step{Name: name, Outcome: respond.StepFailed, Detail: detail})
}

func (s *ingestSaga) skipped(name, detail string) {
	s.res.Steps = append(s.res.Steps, respond.Step{Name: name, Outcome: respond.StepSkipped, Detail: detail})
}

func (s *ingestSaga) fail(kind xerr.Kind, msg string) *respond.IngestResult {
	s.res.Status = respond.StatusError
	s.res.Error = string(kind)
	s.res.Message = msg
	return s.res
}

func (s *ingestSaga) finish(msg string) *respond.IngestResult {
	s.res.Status = respond.StatusSuccess
	s.res.Error = string(xerr.KindNone)
	s.res.Message = msg
	return s.res
}

// outcome 查找某一步的结果，未执行返回空串
func (s *ingestSaga) outcome(name string) respond.StepOutcome {
	for _, st := range s.res.Steps {
		if st.Name == name {
			return st.Outcome
		}
	}
	return ""
}
