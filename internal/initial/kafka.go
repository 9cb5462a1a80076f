package initial

import (
	"OmniAgent/internal/config"
	"OmniAgent/internal/modules/knowledge/infrastructure/mq"
	"OmniAgent/internal/modules/knowledge/infrastructure/mq/kafka"
	"OmniAgent/pkg/zlog"

	"go.uber.org/zap"
)

// InitKafka 确保事件主题存在并返回生产者。未配置 broker 时返回 nil, nil
func InitKafka(conf *config.Config) (mq.Publisher, error) {
	kc := conf.KafkaConfig
	if len(kc.Brokers) == 0 {
		zlog.Info("kafka 未配置，来源事件不发布")
		return nil, nil
	}
	if err := kafka.EnsureTopic(kafka.TopicAdminConfig{Brokers: kc.Brokers, ClientID: kc.ClientID}, kc.SourceTopic, kc.Partitions, kc.Replication); err != nil {
		return nil, err
	}
	pub, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{Brokers: kc.Brokers, ClientID: kc.ClientID})
	if err != nil {
		return nil, err
	}
	zlog.Info("kafka publisher ready", zap.Strings("brokers", kc.Brokers), zap.String("topic", kc.SourceTopic))
	return pub, nil
}
