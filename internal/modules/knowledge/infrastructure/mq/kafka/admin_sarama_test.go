package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	sarama.ClusterAdmin

	topics  map[string]sarama.TopicDetail
	created map[string]*sarama.TopicDetail
}

func (f *fakeAdmin) ListTopics() (map[string]sarama.TopicDetail, error) {
	return f.topics, nil
}

func (f *fakeAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, _ bool) error {
	if f.created == nil {
		f.created = map[string]*sarama.TopicDetail{}
	}
	f.created[topic] = detail
	return nil
}

func TestEnsureTopic_CreatesMissing(t *testing.T) {
	admin := &fakeAdmin{topics: map[string]sarama.TopicDetail{}}
	require.NoError(t, ensureTopic(admin, "omniagent.source.events", 0, 0))

	detail := admin.created["omniagent.source.events"]
	require.NotNil(t, detail)
	assert.Equal(t, int32(1), detail.NumPartitions)
	assert.Equal(t, int16(1), detail.ReplicationFactor)
	assert.Equal(t, "604800000", *detail.ConfigEntries["retention.ms"])
}

func TestEnsureTopic_SkipsExisting(t *testing.T) {
	admin := &fakeAdmin{topics: map[string]sarama.TopicDetail{"t": {}}}
	require.NoError(t, ensureTopic(admin, "t", 3, 1))
	assert.Empty(t, admin.created)
}

func TestEnsureTopic_Validates(t *testing.T) {
	assert.Error(t, EnsureTopic(TopicAdminConfig{}, "t", 1, 1))
	assert.Error(t, EnsureTopic(TopicAdminConfig{Brokers: []string{"127.0.0.1:1"}}, " ", 1, 1))
}
