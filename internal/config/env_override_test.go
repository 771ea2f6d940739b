package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Store(t *testing.T) {
	t.Run("KOTADB_PATH overrides store path", func(t *testing.T) {
		t.Setenv("KOTADB_PATH", "/tmp/custom.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/custom.db", cfg.Store.Path)
	})

	t.Run("unset env leaves YAML value intact", func(t *testing.T) {
		cfg := &Config{Store: StoreConfig{Path: "from-yaml.db"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-yaml.db", cfg.Store.Path)
	})

	t.Run("default wins when neither env nor YAML set it", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, ".kotadb/kota.db", cfg.Store.Path)
	})
}

func TestEnvOverrides_ADW(t *testing.T) {
	t.Run("GITHUB_TOKEN and ANTHROPIC_API_KEY", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "gh-token")
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gh-token", cfg.ADW.GithubToken)
		assert.Equal(t, "ant-key", cfg.ADW.AnthropicAPIKey)
	})

	t.Run("KOTADB_BASE_BRANCH overrides default develop", func(t *testing.T) {
		t.Setenv("KOTADB_BASE_BRANCH", "main")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "main", cfg.ADW.BaseBranch)
	})

	t.Run("ADW_MAX_PARALLEL_AGENTS overrides default 3", func(t *testing.T) {
		t.Setenv("ADW_MAX_PARALLEL_AGENTS", "8")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 8, cfg.ADW.MaxParallelAgents)
	})

	t.Run("invalid ADW_MAX_PARALLEL_AGENTS is ignored", func(t *testing.T) {
		t.Setenv("ADW_MAX_PARALLEL_AGENTS", "-1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 3, cfg.ADW.MaxParallelAgents)
	})

	t.Run("backoff durations override defaults", func(t *testing.T) {
		t.Setenv("KOTADB_RETRY_BACKOFF_BASE", "10s")
		t.Setenv("KOTADB_RETRY_BACKOFF_MAX", "1m")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 10*time.Second, cfg.ADW.RetryBackoffBase)
		assert.Equal(t, time.Minute, cfg.ADW.RetryBackoffMax)
	})
}

func TestEnvOverrides_Logging(t *testing.T) {
	t.Run("KOTADB_DEBUG enables debug mode", func(t *testing.T) {
		t.Setenv("KOTADB_DEBUG", "1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("KOTADB_LOG_LEVEL overrides default info", func(t *testing.T) {
		t.Setenv("KOTADB_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".kotadb/kota.db", cfg.Store.Path)
	assert.Equal(t, 3, cfg.ADW.MaxParallelAgents)
	assert.Equal(t, 5*time.Second, cfg.ADW.RetryBackoffBase)
	assert.Equal(t, 5*time.Minute, cfg.ADW.RetryBackoffMax)
	assert.Equal(t, "develop", cfg.ADW.BaseBranch)
	assert.False(t, cfg.Logging.DebugMode)
	assert.Nil(t, cfg.RPC.AllowedOrigins)
}

func TestResolvedStorePath(t *testing.T) {
	t.Run("relative path joins with CWD", func(t *testing.T) {
		cfg := &Config{Store: StoreConfig{Path: ".kotadb/kota.db", CWD: "/work"}}
		assert.Equal(t, "/work/.kotadb/kota.db", cfg.ResolvedStorePath())
	})

	t.Run("absolute path passes through", func(t *testing.T) {
		cfg := &Config{Store: StoreConfig{Path: "/abs/kota.db", CWD: "/work"}}
		assert.Equal(t, "/abs/kota.db", cfg.ResolvedStorePath())
	})
}

func TestRetryBackoffDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 5*time.Second, cfg.GetRetryBackoffBase())
	assert.Equal(t, 5*time.Minute, cfg.GetRetryBackoffMax())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(".kotadb/kota.db", cfg.Store.Path)
}
