package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krishnaIndia/routing/internal/paths"
	"github.com/krishnaIndia/routing/internal/telemetry"
)

const (
	DefaultLogLevel   = "info"
	DefaultBindAddr   = "127.0.0.1:5483"
	DefaultGroupSize  = 23
	DefaultBucketSize = 20
	DefaultTimeout    = 5 * time.Second

	// DefaultStoreFile is the bbolt file holding this node's identity and known peers.
	DefaultStoreFile = "pmid.db"
)

// Config holds everything the node reads from flags, env and config file.
type Config struct {
	// DataDir contains the identity store and the optional config file.
	DataDir string `mapstructure:"datadir"`

	LogLevel string `mapstructure:"log"`

	// BindAddr is where `serve` listens for joining nodes.
	BindAddr string `mapstructure:"listen"`

	// GroupSize is how many close contacts are asked for when relocating.
	GroupSize int `mapstructure:"group-size"`

	BucketSize int `mapstructure:"bucket-size"`

	// Timeout bounds dialing and the identity handshake.
	Timeout time.Duration `mapstructure:"timeout"`

	logger *logrus.Logger
}

func NewDefaultConfig() *Config {
	return &Config{
		DataDir:    paths.DefaultDataDir(),
		LogLevel:   DefaultLogLevel,
		BindAddr:   DefaultBindAddr,
		GroupSize:  DefaultGroupSize,
		BucketSize: DefaultBucketSize,
		Timeout:    DefaultTimeout,
	}
}

// StorePath returns the full path of the identity store.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, DefaultStoreFile)
}

// Logger returns an entry tagged with component, building the logger lazily.
func (c *Config) Logger(component string) *logrus.Entry {
	if c.logger == nil {
		c.logger = telemetry.NewLogger(os.Stderr, c.LogLevel)
	}
	return telemetry.Component(c.logger, component)
}

// SetLogger replaces the logger, for tests and embedding.
func (c *Config) SetLogger(l *logrus.Logger) { c.logger = l }
