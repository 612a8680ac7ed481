package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/config"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/repository"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/database"
	applogger "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/logger"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/mailer"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/mq"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/redis"
)

// app 进程内共享的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	repo   *repository.Repository

	rdb        *redis.Client
	publisher  *mq.Publisher
	dispatcher *service.Dispatcher
	svc        *service.Service
}

// bootstrap 加载配置并建立依赖；withDelivery 为 false 时不初始化 Redis 与投递通道
func bootstrap(configPath string, withDelivery bool) (*app, error) {
	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))

	a := &app{cfg: cfg, logger: logger, db: db, repo: repository.NewRepository(db)}
	if !withDelivery {
		a.svc = service.NewService(cfg, a.repo, service.Options{}, logger)
		return a, nil
	}

	// 4. 连接 Redis（可选：失败时降级运行，扫描仅依赖数据库互斥）
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，扫描锁、站内推送与限流将不可用", zap.Error(err))
		} else {
			a.rdb = rdb
		}
	}

	// 5. 投递通道
	a.dispatcher = service.NewDispatcher(a.buildSinks(), cfg.Delivery.Workers, cfg.Delivery.QueueSize, logger)
	a.dispatcher.Start()

	// 6. 依赖注入: Repository → Service
	opts := service.Options{Dispatcher: a.dispatcher}
	if a.rdb != nil {
		opts.Locker = a.rdb
	}
	a.svc = service.NewService(cfg, a.repo, opts, logger)
	return a, nil
}

func (a *app) buildSinks() []service.Sink {
	cfg := a.cfg
	var sinks []service.Sink

	if cfg.Delivery.InAppEnabled {
		if a.rdb != nil {
			sinks = append(sinks, service.NewInAppSink(a.rdb))
		} else {
			a.logger.Warn("站内推送需要 Redis，已跳过")
		}
	}
	if cfg.Delivery.EmailEnabled {
		sinks = append(sinks, service.NewEmailSink(mailer.New(&cfg.Mail)))
	}
	if cfg.Delivery.MQEnabled {
		pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			a.logger.Warn("RabbitMQ 连接失败，消息队列通道已跳过", zap.Error(err))
		} else {
			a.publisher = pub
			sinks = append(sinks, service.NewBrokerSink(pub, cfg.MQ.RoutingKey))
		}
	}
	return sinks
}

// migrate 执行嵌入的数据库迁移
func (a *app) migrate() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return database.RunMigrations(sqlDB, a.logger)
}

// close 按依赖逆序释放资源；投递队列先排空
func (a *app) close(ctx context.Context) {
	if a.dispatcher != nil {
		if err := a.dispatcher.Stop(ctx); err != nil {
			a.logger.Warn("投递队列未排空", zap.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	if sqlDB, _ := a.db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}
