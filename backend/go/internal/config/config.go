package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")，为空表示不启用
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点，为空表示不归档导入文件
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 导入文件归档的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address          string `yaml:"address"`          // MongoDB 连接 URI
	Username         string `yaml:"username"`         // 用户名
	Password         string `yaml:"password"`         // 密码
	Database         string `yaml:"database"`         // 数据库名称
	FactCollection   string `yaml:"factCollection"`   // 问答集合
	ConfigCollection string `yaml:"configCollection"` // 配置集合
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`   // Kafka Broker 地址列表，为空表示不发布未命中事件
	MissTopic string   `yaml:"missTopic"` // 知识库未命中问题的主题
}

// DatabaseConfigs 包含所有外部存储的配置。
type DatabaseConfigs struct {
	MongoDB MongoConfig `yaml:"mongodb"`
	Redis   RedisConfig `yaml:"redis"`
	Kafka   KafkaConfig `yaml:"kafka"`
	MinIO   MinIOConfig `yaml:"minio"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址，例如 ":8000"
}

// AuthConfig 用于配置认证相关设置。只负责校验，不负责签发。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥 (HS256)
	AdminRole string `yaml:"adminRole"` // 管理员角色名
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// GenerationConfig 定义了生成式回答的配置。API Key 不在这里，它存放在数据库的配置记录中，可在运行时修改。
type GenerationConfig struct {
	Provider string `yaml:"provider"` // "gemini" 或 "openai"
	Model    string `yaml:"model"`    // 模型名称
	BaseURL  string `yaml:"baseURL"`  // OpenAI 兼容接口地址 (可选)
	Timeout  string `yaml:"timeout"`  // 单次生成超时，例如 "20s"

	SystemPrompt    string `yaml:"systemPrompt"`    // 系统提示词 (可选)
	MaxOutputTokens int    `yaml:"maxOutputTokens"` // 单次回答的最大输出 token 数，0 表示使用提供商默认值
}

// RelayConfig 定义了 Messenger webhook 转发的配置。
type RelayConfig struct {
	GraphAPIURL     string  `yaml:"graphAPIURL"`     // Send API 地址
	SendTimeout     string  `yaml:"sendTimeout"`     // 单次发送超时
	DedupTTL        string  `yaml:"dedupTTL"`        // 消息 ID 去重窗口
	SenderRate      float64 `yaml:"senderRate"`      // 每个发送者每秒允许的消息数，0 表示不限制
	SenderBurst     int     `yaml:"senderBurst"`     // 每个发送者的突发容量
	MaxMessageChars int     `yaml:"maxMessageChars"` // 单条回复最大字符数
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Logger     LoggerConfig     `yaml:"logger"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Generation GenerationConfig `yaml:"generation"`
	Relay      RelayConfig      `yaml:"relay"`
	Middleware MiddlewareConfig `yaml:"middleware"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
}

// DiscoveryConfig 定义了 etcd 服务注册的配置。
type DiscoveryConfig struct {
	Endpoints        []string `yaml:"endpoints"`        // etcd 地址列表，为空表示不注册
	ServiceName      string   `yaml:"serviceName"`      // 注册使用的服务名
	AdvertiseAddress string   `yaml:"advertiseAddress"` // 对外公布的地址，为空时使用监听地址
	TTL              int64    `yaml:"ttl"`              // 租约秒数
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按客户端 IP 限流的配置。
type RateLimiterConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Algorithm string  `yaml:"algorithm"` // 支持: "tokenBucket", "fixedWindow"
	Rate      float64 `yaml:"rate"`      // tokenBucket: 每秒速率
	Capacity  int     `yaml:"capacity"`  // tokenBucket: 桶容量
	Limit     int     `yaml:"limit"`     // fixedWindow: 窗口内请求数
	Window    string  `yaml:"window"`    // fixedWindow: 窗口长度，例如 "1m"
}

// CircuitBreakerConfig 定义了出站调用熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// 默认值
const (
	DefaultServerAddress    = ":8000"
	DefaultDatabase         = "qa_database"
	DefaultFactCollection   = "custom_qa"
	DefaultConfigCollection = "config"
	DefaultProvider         = "gemini"
	DefaultModel            = "gemini-1.5-flash"
	DefaultGenerationTO     = "20s"
	DefaultGraphAPIURL      = "https://graph.facebook.com/v19.0/me/messages"
	DefaultSendTimeout      = "10s"
	DefaultDedupTTL         = "10m"
	DefaultMaxMessageChars  = 2000
	DefaultMissTopic        = "qa_misses"
	DefaultAdminRole        = "admin"
	DefaultServiceName      = "qa_service"
	DefaultDiscoveryTTL     = 10
)

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，然后补齐默认值并应用环境变量覆盖。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 用环境变量覆盖敏感配置，避免把密钥写进配置文件。
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("ASKBOT_JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	if v := os.Getenv("ASKBOT_MONGO_URI"); v != "" {
		c.Databases.MongoDB.Address = v
	}
	if v := os.Getenv("ASKBOT_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultServerAddress
	}
	if c.Auth.AdminRole == "" {
		c.Auth.AdminRole = DefaultAdminRole
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	mongo := &c.Databases.MongoDB
	if mongo.Database == "" {
		mongo.Database = DefaultDatabase
	}
	if mongo.FactCollection == "" {
		mongo.FactCollection = DefaultFactCollection
	}
	if mongo.ConfigCollection == "" {
		mongo.ConfigCollection = DefaultConfigCollection
	}
	if c.Databases.Kafka.MissTopic == "" {
		c.Databases.Kafka.MissTopic = DefaultMissTopic
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = DefaultProvider
	}
	if c.Generation.Model == "" {
		c.Generation.Model = DefaultModel
	}
	if c.Generation.Timeout == "" {
		c.Generation.Timeout = DefaultGenerationTO
	}
	if c.Relay.GraphAPIURL == "" {
		c.Relay.GraphAPIURL = DefaultGraphAPIURL
	}
	if c.Relay.SendTimeout == "" {
		c.Relay.SendTimeout = DefaultSendTimeout
	}
	if c.Relay.DedupTTL == "" {
		c.Relay.DedupTTL = DefaultDedupTTL
	}
	if c.Relay.MaxMessageChars <= 0 {
		c.Relay.MaxMessageChars = DefaultMaxMessageChars
	}
	if c.Middleware.CircuitBreaker.Timeout == "" {
		c.Middleware.CircuitBreaker.Timeout = "30s"
	}
	if c.Discovery.ServiceName == "" {
		c.Discovery.ServiceName = DefaultServiceName
	}
	if c.Discovery.AdvertiseAddress == "" {
		c.Discovery.AdvertiseAddress = c.Server.Address
	}
	if c.Discovery.TTL <= 0 {
		c.Discovery.TTL = DefaultDiscoveryTTL
	}
}

// Validate 检查必填项以及所有时长字段是否可以解析。
func (c *AppConfig) Validate() error {
	if c.Databases.MongoDB.Address == "" {
		return fmt.Errorf("databases.mongodb.address 不能为空")
	}
	if c.Auth.JwtSecret == "" {
		return fmt.Errorf("auth.jwtSecret 不能为空")
	}
	switch c.Generation.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("不支持的生成服务提供商: %s", c.Generation.Provider)
	}
	durations := map[string]string{
		"generation.timeout":                c.Generation.Timeout,
		"relay.sendTimeout":                 c.Relay.SendTimeout,
		"relay.dedupTTL":                    c.Relay.DedupTTL,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
	}
	if c.Middleware.RateLimiter.Enabled && c.Middleware.RateLimiter.Algorithm == "fixedWindow" {
		durations["middleware.rateLimiter.window"] = c.Middleware.RateLimiter.Window
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s 不是合法的时长 '%s': %w", name, value, err)
		}
	}
	return nil
}

// GenerationTimeout 返回生成调用的超时时间。
func (c *AppConfig) GenerationTimeout() time.Duration {
	return mustDuration(c.Generation.Timeout)
}

// SendTimeout 返回 Send API 调用的超时时间。
func (c *AppConfig) SendTimeout() time.Duration {
	return mustDuration(c.Relay.SendTimeout)
}

// DedupTTL 返回消息去重窗口。
func (c *AppConfig) DedupTTL() time.Duration {
	return mustDuration(c.Relay.DedupTTL)
}

// mustDuration 只在 Validate 之后调用。
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
