package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	https_server "OmniAgent/api/http"
	"OmniAgent/internal/config"
	"OmniAgent/internal/initial"
	accountService "OmniAgent/internal/modules/account/application/service"
	accountRepository "OmniAgent/internal/modules/account/domain/repository"
	accountPersistence "OmniAgent/internal/modules/account/infrastructure/persistence"
	"OmniAgent/internal/modules/knowledge/application/service"
	"OmniAgent/internal/modules/knowledge/domain/repository"
	"OmniAgent/internal/modules/knowledge/infrastructure/lock"
	"OmniAgent/internal/modules/knowledge/infrastructure/mq"
	"OmniAgent/internal/modules/knowledge/infrastructure/persistence"
	"OmniAgent/internal/modules/knowledge/infrastructure/vectordb"
	"OmniAgent/pkg/redis"
	"OmniAgent/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化存储并组装服务
	deps, cleanup, err := bootstrap(ctx, conf)
	if err != nil {
		zlog.Fatal("启动失败", zap.Error(err))
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           https_server.NewRouter(conf, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 3. 启动 HTTP 服务，收到信号后优雅关闭
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("正在关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		zlog.Error("服务器异常退出", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	zlog.Info("服务器已关闭")
}

func bootstrap(ctx context.Context, conf *config.Config) (https_server.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}
	fail := func(err error) (https_server.Deps, func(), error) {
		cleanup()
		return https_server.Deps{}, func() {}, err
	}

	// 元数据库可选；未配置时端口保持 nil 接口
	db, err := initial.InitGorm(conf)
	if err != nil {
		return fail(err)
	}
	var (
		sources  repository.SourceRepository
		accounts accountRepository.AccountRepository
	)
	if db != nil {
		sources = persistence.NewSourceRepository(db)
		accounts = accountPersistence.NewAccountRepository(db)
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
	}

	vectors, err := newVectorStore(ctx, conf, &closers)
	if err != nil {
		return fail(err)
	}

	redisOK, err := initial.InitRedis(ctx, conf)
	if err != nil {
		// 锁降级为进程内互斥
		zlog.Warn("redis unavailable, falling back to in-process lock", zap.Error(err))
	}
	var locker repository.KeyLocker
	if redisOK {
		ttl := time.Duration(conf.LockTTLSec) * time.Second
		locker = lock.NewRedisLocker("lock:", ttl, ttl)
		closers = append(closers, func() { _ = redis.Close() })
	} else {
		locker = lock.NewKeyedMutex()
	}

	var events repository.SourceEventPublisher
	pub, err := initial.InitKafka(conf)
	if err != nil {
		zlog.Warn("kafka unavailable, source events disabled", zap.Error(err))
	} else if pub != nil {
		closers = append(closers, func() { _ = pub.Close() })
		ep, err := mq.NewSourceEventPublisher(pub, conf.SourceTopic)
		if err != nil {
			return fail(err)
		}
		events = ep
	}

	deps := https_server.Deps{
		Sources: service.NewSourceSyncService(vectors, sources, service.SourceSyncOptions{
			ScrollLimit: conf.ScrollMax,
			Locker:      locker,
			Events:      events,
		}),
		Accounts:      accountService.NewAccountSyncService(accounts),
		VectorStore:   conf.VectorStoreConfig.Provider,
		MetadataStore: db != nil,
	}
	return deps, cleanup, nil
}

func newVectorStore(ctx context.Context, conf *config.Config, closers *[]func()) (repository.VectorStore, error) {
	switch conf.VectorStoreConfig.Provider {
	case "qdrant":
		qc := conf.QdrantConfig
		store, err := vectordb.NewQdrantStore(vectordb.QdrantConfig{
			URL:            qc.URL,
			APIKey:         qc.APIKey,
			CollectionName: qc.CollectionName,
			VectorDim:      qc.VectorDim,
			Timeout:        time.Duration(qc.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "milvus":
		cli, err := initial.InitMilvus(ctx, conf)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = cli.Close() })
		return vectordb.NewMilvusStore(cli, conf.MilvusConfig.CollectionName, conf.MilvusConfig.VectorDim)
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", conf.VectorStoreConfig.Provider)
	}
}
