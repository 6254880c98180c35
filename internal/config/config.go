package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`

	DevTools struct {
		URL    string `yaml:"url"`
		Target string `yaml:"target"`
	} `yaml:"devtools"`

	Engine struct {
		// BypassCSP 注入前关闭页面 CSP 校验
		BypassCSP     bool `yaml:"bypassCSP"`
		EvalTimeoutMS int  `yaml:"evalTimeoutMS"`
		// Legacy 不使用 CDP 引擎，只走旧式注入/eval 回退链
		Legacy bool `yaml:"legacy"`
	} `yaml:"engine"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}
	c.Sqlite.Dsn = "db.sqlite3"
	c.Sqlite.Prefix = "cdpmarklet_"
	c.Log.Level = "debug"
	c.Log.Writer = []string{"console", "file"}
	c.Log.File = "logs/cdpmarklet.log"
	c.DevTools.URL = "http://127.0.0.1:9222"
	c.Engine.BypassCSP = true
	c.Engine.EvalTimeoutMS = 10000
	return c
}

// Load 读取 YAML 配置文件并覆盖默认值；path 为空时返回默认配置
func Load(path string) (*Config, error) {
	c := NewConfig()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}
