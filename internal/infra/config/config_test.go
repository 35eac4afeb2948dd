package config

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_BACKEND", "MESSAGE_STORE", "MONGO_URI", "SESSION_TTL", "SEED_DEMO", "KAFKA_BROKERS", "S3_ENDPOINT", "SCYLLA_CONSISTENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, BackendMemory, cfg.MessageStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SeedDemo)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.S3Enabled())
	assert.Equal(t, gocql.Quorum, cfg.ScyllaConsistency)
	assert.Equal(t, 1, cfg.ReplicationFactor)
}

func TestLoad_MongoWithScyllaMessages(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MESSAGE_STORE", "scylla")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2,")
	t.Setenv("SCYLLA_CONSISTENCY", "local_quorum")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("SEED_DEMO", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.ScyllaHosts)
	assert.Equal(t, gocql.LocalQuorum, cfg.ScyllaConsistency)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":   {"STORAGE_BACKEND": "postgres"},
		"mongo without uri": {"STORAGE_BACKEND": "mongo", "MONGO_URI": ""},
		"bad ttl":           {"SESSION_TTL": "tomorrow"},
		"negative ttl":      {"SESSION_TTL": "-1h"},
		"bad bool":          {"SEED_DEMO": "maybe"},
		"bad consistency":   {"SCYLLA_CONSISTENCY": "two"},
		"unknown msg store": {"MESSAGE_STORE": "redis"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("STORAGE_BACKEND", "")
			t.Setenv("MESSAGE_STORE", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
