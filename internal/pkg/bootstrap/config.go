// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 是环境变量覆盖的统一前缀，例如 ORDERS_STORAGE_BACKEND。
// 字段不使用 envconfig 标签：带标签时 envconfig 会回退读取无前缀的同名变量 (USER、PORT)。
const EnvPrefix = "ORDERS"

// Config 是订单服务的完整配置。
// 加载顺序：默认值 -> YAML 文件 -> .env -> 环境变量。
type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Services  ServicesConfig  `yaml:"services"`
	Infra     InfraConfig     `yaml:"infra"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type AppConfig struct {
	Name            string        `yaml:"name"`
	Port            int           `yaml:"port"`
	APIPrefix       string        `yaml:"api_prefix" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig 选择持久化后端：relational (MySQL) 或 document (Redis)。
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	MySQL   MySQLConfig `yaml:"mysql"`
	Redis   RedisConfig `yaml:"redis"`
}

type MySQLConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	MaxOpenConns int    `yaml:"max_open_conns" split_words:"true"`
	AutoMigrate  bool   `yaml:"auto_migrate" split_words:"true"`
}

// DSN 使用驱动自带的 Config 生成连接串，避免手工拼接转义问题。
func (c MySQLConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

type RedisConfig struct {
	Addrs    string `yaml:"addrs"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// IDStrategy: sequence (INCR) 或 max_plus_one (旧方案，仅用于复现并发问题)
	IDStrategy string `yaml:"id_strategy" split_words:"true"`
}

// ServicesConfig 是外部协作服务（客户、商品、支付）的地址。
type ServicesConfig struct {
	CustomersURL string        `yaml:"customers_url" split_words:"true"`
	ProductsURL  string        `yaml:"products_url" split_words:"true"`
	PaymentsURL  string        `yaml:"payments_url" split_words:"true"`
	Timeout      time.Duration `yaml:"timeout"`
	// ProductFanOut 限制批量查询商品时的并发数
	ProductFanOut int `yaml:"product_fan_out" split_words:"true"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Nacos     NacosConfig     `yaml:"nacos"`
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
}

// NacosConfig 为空 Addrs 时不注册本服务。
// 协作服务地址写成 nacos://<service>/ 时经 Nacos 解析。
type NacosConfig struct {
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

// ZooKeeperConfig 为空 Servers 时对账任务不加锁，适用于单副本部署。
type ZooKeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout" split_words:"true"`
	LockName       string        `yaml:"lock_name" split_words:"true"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// KafkaConfig 为空 Brokers 时关闭事件发布与支付结果消费。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// PaymentTopic 是支付服务回写支付结果的主题，为空时不消费
	PaymentTopic string `yaml:"payment_topic" split_words:"true"`
	GroupID      string `yaml:"group_id" split_words:"true"`
}

// ReconcileConfig 控制后台对账任务，Interval 为 0 时关闭。
type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig 返回与原服务一致的默认配置。
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:            "orders-service",
			Port:            8003,
			APIPrefix:       "/api/v1",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Backend: "relational",
			MySQL: MySQLConfig{
				Host:         "localhost",
				Port:         3306,
				User:         "orders",
				Database:     "orders_service",
				MaxOpenConns: 20,
				AutoMigrate:  true,
			},
			Redis: RedisConfig{
				Addrs:      "localhost:6379",
				IDStrategy: "sequence",
			},
		},
		Services: ServicesConfig{
			CustomersURL:  "http://localhost:8001",
			ProductsURL:   "http://localhost:8002",
			PaymentsURL:   "http://localhost:8004",
			Timeout:       5 * time.Second,
			ProductFanOut: 8,
		},
		Infra: InfraConfig{
			Kafka:     KafkaConfig{Topic: "order-events", GroupID: "orders-service"},
			Nacos:     NacosConfig{Group: "DEFAULT_GROUP"},
			ZooKeeper: ZooKeeperConfig{SessionTimeout: 10 * time.Second, LockName: "orders-reconciler"},
		},
	}
}

var current atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次加载的配置；尚未加载时返回默认配置。
func GetCurrentConfig() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	cfg := DefaultConfig()
	return &cfg
}

// Init 从 path 加载配置并设置为当前配置。
func Init(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// LoadConfig 依次合并默认值、YAML 文件、.env 与环境变量。
// path 为空或文件不存在时跳过 YAML。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config file %s", path)
			}
		case os.IsNotExist(err):
			log.Warn().Str("path", path).Msg("config file not found, using defaults and environment")
		default:
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "apply environment overrides")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置中互相关联的字段。
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "relational", "document":
	default:
		return errors.Errorf("storage.backend must be relational or document, got %q", c.Storage.Backend)
	}
	switch c.Storage.Redis.IDStrategy {
	case "", "sequence", "max_plus_one":
	default:
		return errors.Errorf("storage.redis.id_strategy must be sequence or max_plus_one, got %q", c.Storage.Redis.IDStrategy)
	}
	if c.App.Port <= 0 {
		return errors.Errorf("app.port must be positive, got %d", c.App.Port)
	}
	return nil
}
