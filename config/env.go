package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv matches os.Getenv; tests pass a map lookup instead.
type Getenv func(string) string

// Infra holds the optional backing services configured through the
// environment. Each is disabled when its primary variable is empty.
type Infra struct {
	S3    S3Settings
	Redis RedisSettings
	Kafka KafkaSettings
}

// S3Settings: required S3_BUCKET. Optional S3_REGION, S3_PROFILE, S3_PREFIX, S3_USE_PATH_STYLE=true
type S3Settings struct {
	Bucket       string
	Region       string
	Profile      string
	Prefix       string
	UsePathStyle bool
}

// Enabled reports whether artifacts should be mirrored to S3
func (s S3Settings) Enabled() bool { return s.Bucket != "" }

// RedisSettings: REDIS_ADDR enables the history; REDIS_PASS, HISTORY_TTL_DAYS optional.
type RedisSettings struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// Enabled reports whether cross-run history is configured
func (r RedisSettings) Enabled() bool { return r.Addr != "" }

// KafkaSettings: KAFKA_BOOTSTRAP_SERVERS enables events.
type KafkaSettings struct {
	Brokers      []string
	ScriptTopic  string
	RequestTopic string
	GroupID      string
}

// Enabled reports whether Kafka brokers are configured
func (k KafkaSettings) Enabled() bool { return len(k.Brokers) > 0 }

// LoadInfra reads infrastructure settings via getenv (os.Getenv when nil)
func LoadInfra(getenv Getenv) Infra {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	infra := Infra{}

	infra.S3 = S3Settings{
		Bucket:       env("S3_BUCKET"),
		Region:       env("S3_REGION"),
		Profile:      env("S3_PROFILE"),
		UsePathStyle: strings.EqualFold(env("S3_USE_PATH_STYLE"), "true"),
	}
	if prefix := env("S3_PREFIX"); prefix != "" {
		infra.S3.Prefix = strings.Trim(prefix, "/") + "/"
	}

	ttl := 30 * 24 * time.Hour
	if v := env("HISTORY_TTL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			ttl = time.Duration(days) * 24 * time.Hour
		}
	}
	infra.Redis = RedisSettings{
		Addr:     env("REDIS_ADDR"),
		Password: env("REDIS_PASS"),
		TTL:      ttl,
	}

	if servers := env("KAFKA_BOOTSTRAP_SERVERS"); servers != "" {
		for _, b := range strings.Split(servers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				infra.Kafka.Brokers = append(infra.Kafka.Brokers, b)
			}
		}
	}
	infra.Kafka.ScriptTopic = orDefault(env("KAFKA_SCRIPT_TOPIC"), "weekly-scripts")
	infra.Kafka.RequestTopic = orDefault(env("KAFKA_REQUEST_TOPIC"), "weekly-run-requests")
	infra.Kafka.GroupID = orDefault(env("KAFKA_GROUP_ID"), "weeklyreport")

	return infra
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
