package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  name: puzle-read
  port: 8000
database:
  driver: sqlite
  sqlite_path: puzle.db
kafka:
  brokers: ["localhost:9092"]
  topics:
    article_events: article-events
jwt:
  secret: test
  expire_hours: 24
`)
	t.Setenv("PUZLE_APP_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.App.Port)
	}
	if cfg.Comments.OrphanPolicy != OrphanAttach || cfg.Comments.BotAuthor != "Puzle" || cfg.Comments.MaxIndentDepth != 8 {
		t.Errorf("comment defaults = %+v", cfg.Comments)
	}
	if cfg.Redis.CacheTTLDuration() != 10*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Redis.CacheTTLDuration())
	}
	if cfg.Kafka.ArticleEventsTopic() != "article-events" {
		t.Errorf("topic = %q", cfg.Kafka.ArticleEventsTopic())
	}
	if cfg.Elasticsearch.ArticlesIndex() != "articles" {
		t.Errorf("index = %q", cfg.Elasticsearch.ArticlesIndex())
	}
	if GetJWT().ExpireDuration() != 24*time.Hour {
		t.Errorf("global config not installed")
	}
}

func TestLoadRejectsUnknownOrphanPolicy(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
comments:
  orphan_policy: promote
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown orphan policy")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
