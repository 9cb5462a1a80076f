package initial

import (
	"context"
	"fmt"
	"strings"

	"OmniAgent/internal/config"
	knowledgeEntity "OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/pkg/zlog"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"
)

// InitMilvus 连接 Milvus，按需创建数据库、集合与向量索引
func InitMilvus(ctx context.Context, conf *config.Config) (mclient.Client, error) {
	mc := conf.MilvusConfig
	addr := strings.TrimSpace(mc.Address)
	if addr == "" {
		return nil, fmt.Errorf("milvus address is empty")
	}
	dbName := strings.TrimSpace(mc.DBName)
	if dbName == "" {
		dbName = "omniagent"
	}
	dim := mc.VectorDim
	if dim <= 0 {
		dim = 384
	}

	defaultCli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  addr,
		Username: strings.TrimSpace(mc.Username),
		Password: strings.TrimSpace(mc.Password),
		DBName:   "default",
	})
	if err != nil {
		return nil, err
	}
	defer defaultCli.Close()

	if err := ensureDatabase(ctx, defaultCli, dbName); err != nil {
		return nil, err
	}

	cli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  addr,
		Username: strings.TrimSpace(mc.Username),
		Password: strings.TrimSpace(mc.Password),
		DBName:   dbName,
	})
	if err != nil {
		return nil, err
	}
	if err := ensureCollection(ctx, cli, mc.CollectionName, dim, metricType(mc.MetricType)); err != nil {
		_ = cli.Close()
		return nil, err
	}
	zlog.Info("milvus connected", zap.String("address", addr), zap.String("collection", mc.CollectionName))
	return cli, nil
}

func ensureDatabase(ctx context.Context, cli mclient.Client, dbName string) error {
	dbs, err := cli.ListDatabases(ctx)
	if err != nil {
		return err
	}
	for _, db := range dbs {
		if db.Name == dbName {
			return nil
		}
	}
	return cli.CreateDatabase(ctx, dbName)
}

func ensureCollection(ctx context.Context, cli mclient.Client, collection string, dim int, metric entity.MetricType) error {
	exists, err := cli.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		schema := &entity.Schema{
			CollectionName: collection,
			Description:    "OmniAgent source chunks",
			Fields: []*entity.Field{
				{
					Name:       "id",
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					TypeParams: map[string]string{"max_length": "128"},
				},
				{
					Name:       "vector",
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{entity.TypeParamDim: fmt.Sprintf("%d", dim)},
				},
				{
					Name:       knowledgeEntity.FieldUserID,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "128"},
				},
				{
					Name:       knowledgeEntity.FieldSourceID,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "64"},
				},
				{
					Name:     knowledgeEntity.FieldChunkIndex,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       knowledgeEntity.FieldText,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "65535"},
				},
				{
					Name:     knowledgeEntity.FieldChunkLength,
					DataType: entity.FieldTypeInt64,
				},
			},
		}
		if err := cli.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return err
		}
		idx, err := entity.NewIndexAUTOINDEX(metric)
		if err != nil {
			return err
		}
		if err := cli.CreateIndex(ctx, collection, "vector", idx, false); err != nil {
			return err
		}
	}
	return cli.LoadCollection(ctx, collection, false)
}

func metricType(s string) entity.MetricType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}
