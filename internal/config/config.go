package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务端配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Lobby  LobbyConfig  `yaml:"lobby"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"` // 最大并发连接数
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LobbyConfig 房间文档配置
type LobbyConfig struct {
	Collection       string `yaml:"collection"`         // 文档集合名（key 前缀）
	MaxUpdateRetries int    `yaml:"max_update_retries"` // 乐观锁冲突重试次数
	OpTimeout        int    `yaml:"op_timeout"`         // 单次存储操作超时（秒）
}

// OpTimeoutDuration 返回存储操作超时时长
func (c *LobbyConfig) OpTimeoutDuration() time.Duration {
	return time.Duration(c.OpTimeout) * time.Second
}

// AuthConfig 身份校验配置
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	IdentityClaim string `yaml:"identity_claim"` // 作为玩家名的 claim
}

// LogConfig 日志配置
type LogConfig struct {
	Dir string `yaml:"dir"` // 为空时输出到标准错误
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.ApplyEnv()

	return cfg, nil
}

// FromEnv 默认配置叠加环境变量，用于没有配置文件的场景
func FromEnv() *Config {
	cfg := Default()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv 环境变量优先于配置文件中的密钥
func (c *Config) ApplyEnv() {
	if secret := os.Getenv("LOBBY_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}

// applyDefaults 为显式写成零值的字段补默认值
func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxConnections <= 0 {
		c.Server.MaxConnections = d.Server.MaxConnections
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}
	if c.Lobby.Collection == "" {
		c.Lobby.Collection = d.Lobby.Collection
	}
	if c.Lobby.MaxUpdateRetries <= 0 {
		c.Lobby.MaxUpdateRetries = d.Lobby.MaxUpdateRetries
	}
	if c.Lobby.OpTimeout <= 0 {
		c.Lobby.OpTimeout = d.Lobby.OpTimeout
	}
	if c.Auth.IdentityClaim == "" {
		c.Auth.IdentityClaim = d.Auth.IdentityClaim
	}
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           1780,
			MaxConnections: 1000,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Lobby: LobbyConfig{
			Collection:       "appmob_lobby",
			MaxUpdateRetries: 10,
			OpTimeout:        5,
		},
		Auth: AuthConfig{
			IdentityClaim: "email",
		},
	}
}
