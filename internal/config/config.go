package config

import (
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultConfigPath = "configs/config_local.toml"

type MainConfig struct {
	AppName  string `toml:"appName"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	ForceTLS bool   `toml:"forceTLS"`
}

// MysqlConfig 元数据库（user_sources / whatsapp_accounts）。Host 为空表示未配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
}

// JwtConfig 只用于校验上游签发的 token。Key 为空表示不启用鉴权
type JwtConfig struct {
	Key    string `toml:"key"`
	Issuer string `toml:"issuer"`
}

// VectorStoreConfig 选择向量库实现：milvus（默认）或 qdrant
type VectorStoreConfig struct {
	Provider   string `toml:"provider"`
	ScrollMax  int    `toml:"scrollMax"`
	LockTTLSec int    `toml:"lockTTLSec"`
}

type MilvusConfig struct {
	Address        string `toml:"address"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbName"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	MetricType     string `toml:"metricType"`
}

type QdrantConfig struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"apiKey"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
}

type KafkaConfig struct {
	Brokers     []string `toml:"brokers"`
	ClientID    string   `toml:"clientID"`
	SourceTopic string   `toml:"sourceTopic"`
	Partitions  int32    `toml:"partitions"`
	Replication int16    `toml:"replication"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type Config struct {
	MainConfig        `toml:"mainConfig"`
	MysqlConfig       `toml:"mysqlConfig"`
	JwtConfig         `toml:"jwtConfig"`
	VectorStoreConfig `toml:"vectorStoreConfig"`
	MilvusConfig      `toml:"milvusConfig"`
	QdrantConfig      `toml:"qdrantConfig"`
	KafkaConfig       `toml:"kafkaConfig"`
	LogConfig         `toml:"logConfig"`
	RedisConfig       `toml:"redisConfig"`
}

var config *Config

// LoadConfig 读取 toml 配置；路径可通过 OMNIAGENT_CONFIG 覆盖
func LoadConfig() error {
	configPath := strings.TrimSpace(os.Getenv("OMNIAGENT_CONFIG"))
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("加载配置文件失败: %v, 尝试使用默认设置", err)
		return err
	}
	return nil
}

// Decode 从 toml 文本解析配置，主要用于测试
func Decode(data string) (*Config, error) {
	c := new(Config)
	if _, err := toml.Decode(data, c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
		config.applyDefaults()
	}
	return config
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.AppName) == "" {
		c.AppName = "OmniAgent"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if strings.TrimSpace(c.VectorStoreConfig.Provider) == "" {
		c.VectorStoreConfig.Provider = "milvus"
	}
	if c.ScrollMax <= 0 {
		c.ScrollMax = 10000
	}
	if c.LockTTLSec <= 0 {
		c.LockTTLSec = 60
	}
	if strings.TrimSpace(c.MilvusConfig.CollectionName) == "" {
		c.MilvusConfig.CollectionName = "OmniAgent"
	}
	if c.MilvusConfig.VectorDim <= 0 {
		c.MilvusConfig.VectorDim = 384
	}
	if c.QdrantConfig.VectorDim <= 0 {
		c.QdrantConfig.VectorDim = 384
	}
	if strings.TrimSpace(c.QdrantConfig.CollectionName) == "" {
		c.QdrantConfig.CollectionName = "OmniAgent"
	}
	if strings.TrimSpace(c.SourceTopic) == "" {
		c.SourceTopic = "omniagent.source.events"
	}
}

// MetadataConfigured 元数据库是否配置；未配置时摄取仅依赖向量库
func (c *Config) MetadataConfigured() bool {
	return strings.TrimSpace(c.MysqlConfig.Host) != ""
}
