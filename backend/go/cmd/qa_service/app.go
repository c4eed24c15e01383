package main

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/internal/database/kafka"
	"AskBot/backend/go/internal/database/minio"
	"AskBot/backend/go/internal/database/mongo"
	"AskBot/backend/go/internal/database/redis"
	"AskBot/backend/go/internal/llm"
	"AskBot/backend/go/internal/qa_service/messenger"
	"AskBot/backend/go/internal/qa_service/service"
	"AskBot/backend/go/internal/qa_service/store"
	"AskBot/backend/go/pkg/circuitbreaker"
	pkghttp "AskBot/backend/go/pkg/http"
	"AskBot/backend/go/pkg/logger"
	"AskBot/backend/go/pkg/ratelimiter"
	"context"
	"fmt"
)

// 进程内缓存（去重、按键限流）最多跟踪的键数。
const maxTrackedKeys = 10000

// app 持有装配好的组件以及关闭它们所需的清理函数。
type app struct {
	cfg      *config.AppConfig
	facts    store.FactStore
	configs  store.ConfigStore
	resolver *service.Resolver
	relay    *service.Relay
	importer *service.Importer
	log      *logger.Logger
	checks   []dependencyCheck
	closers  []func(context.Context) error
}

// dependencyCheck 是启动时成功接入的一个外部依赖的探活函数。
type dependencyCheck struct {
	name string
	ping func(context.Context) error
}

// newApp 按配置装配所有组件。memory 为 true 时使用进程内存储，便于本地调试。
// Kafka、Redis 和 MinIO 都是可选的：未配置或连接失败时降级运行并记录警告。
func newApp(ctx context.Context, cfg *config.AppConfig, memory bool) (*app, error) {
	a := &app{cfg: cfg, log: logger.New("qa_service", "", "")}

	if err := a.initStores(ctx, memory); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	factory, err := llm.NewFactory(cfg.Generation)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	var resolverOpts []service.ResolverOption
	if p := a.missPublisher(); p != nil {
		resolverOpts = append(resolverOpts, service.WithMissPublisher(p))
	}
	a.resolver = service.NewResolver(a.facts, a.configs, factory, cfg.GenerationTimeout(), resolverOpts...)

	relay, err := a.newRelay(ctx)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.relay = relay

	var archiver service.Archiver
	if ia := a.importArchiver(ctx); ia != nil {
		archiver = ia
	}
	a.importer = service.NewImporter(a.facts, archiver)
	return a, nil
}

func (a *app) initStores(ctx context.Context, memory bool) error {
	if memory {
		a.log.Warn("使用进程内存储，数据不会持久化")
		a.facts = store.NewMemoryFactStore()
		a.configs = store.NewMemoryConfigStore()
		return nil
	}

	mongoCfg := &a.cfg.Databases.MongoDB
	conn, err := mongo.Connect(ctx, mongoCfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, conn.Close)
	a.checks = append(a.checks, dependencyCheck{name: "mongodb", ping: conn.Ping})

	db := conn.Database()
	facts := store.NewMongoFactStore(db, mongoCfg.FactCollection)
	if err := facts.EnsureIndexes(ctx); err != nil {
		return err
	}
	a.facts = facts
	a.configs = store.NewMongoConfigStore(db, mongoCfg.ConfigCollection)
	return nil
}

func (a *app) missPublisher() service.MissPublisher {
	kafkaCfg := &a.cfg.Databases.Kafka
	if len(kafkaCfg.Brokers) == 0 {
		return nil
	}
	client, err := kafka.Connect(kafkaCfg)
	if err != nil {
		a.log.WithErr(err).Warn("Kafka 不可用，不发布未命中事件")
		return nil
	}
	publisher := kafka.NewMissPublisher(client)
	a.closers = append(a.closers,
		func(context.Context) error { return publisher.Close() },
		func(context.Context) error { return client.Close() },
	)
	a.checks = append(a.checks, dependencyCheck{name: "kafka", ping: client.Ping})
	return publisher
}

func (a *app) newRelay(ctx context.Context) (*service.Relay, error) {
	cfg := a.cfg
	httpClient, err := pkghttp.NewClient(cfg.SendTimeout(), cfg.Middleware.CircuitBreaker,
		circuitbreaker.WithName("send-api"),
		circuitbreaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
			a.log.WithPayload(map[string]interface{}{"breaker": name, "from": from.String(), "to": to.String()}).Warn("熔断器状态变化")
		}),
	)
	if err != nil {
		return nil, err
	}
	sender := messenger.NewClient(cfg.Relay.GraphAPIURL, httpClient, cfg.Relay.MaxMessageChars)

	opts := []service.RelayOption{service.WithDeduper(a.deduper(ctx))}
	if cfg.Relay.SenderRate > 0 {
		burst := cfg.Relay.SenderBurst
		if burst <= 0 {
			burst = 1
		}
		limiter, err := ratelimiter.NewKeyed(func() ratelimiter.RateLimiter {
			return ratelimiter.NewTokenBucket(cfg.Relay.SenderRate, burst)
		}, maxTrackedKeys)
		if err != nil {
			return nil, fmt.Errorf("创建发送者限流器失败: %w", err)
		}
		opts = append(opts, service.WithSenderLimiter(limiter))
	}
	return service.NewRelay(a.configs, a.resolver, sender, cfg.SendTimeout(), opts...), nil
}

// deduper 优先使用 Redis，多实例部署时共享去重窗口。
func (a *app) deduper(ctx context.Context) service.Deduper {
	redisCfg := &a.cfg.Databases.Redis
	if redisCfg.Address != "" {
		client, err := redis.Connect(ctx, redisCfg)
		if err == nil {
			a.closers = append(a.closers, func(context.Context) error { return client.Close() })
			d := redis.NewMessageDeduper(client, a.cfg.DedupTTL())
			a.checks = append(a.checks, dependencyCheck{name: "redis", ping: d.Ping})
			return d
		}
		a.log.WithErr(err).Warn("Redis 不可用，改用进程内去重")
	}
	// 容量为正数，这里不会出错。
	d, _ := service.NewMemoryDeduper(maxTrackedKeys, a.cfg.DedupTTL())
	return d
}

func (a *app) importArchiver(ctx context.Context) *minio.ImportArchiver {
	minioCfg := &a.cfg.Databases.MinIO
	if minioCfg.Endpoint == "" {
		return nil
	}
	archiver, err := minio.Connect(ctx, minioCfg)
	if err != nil {
		a.log.WithErr(err).Warn("MinIO 不可用，不归档导入文件")
		return nil
	}
	a.checks = append(a.checks, dependencyCheck{name: "minio", ping: archiver.Ping})
	return archiver
}

// health 依次探测启动时接入的依赖，返回第一个失败。进程内存储模式下没有依赖，总是健康。
func (a *app) health(ctx context.Context) error {
	for _, c := range a.checks {
		if err := c.ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// Close 按创建的相反顺序释放资源。
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.WithErr(err).Error("释放资源失败")
		}
	}
	a.closers = nil
}
