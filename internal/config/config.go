package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	SNSTopicARN string // decision events topic; empty disables publishing

	JWTPublicKeyPath string

	Collaborators CollaboratorConfig
	Decision      DecisionConfig

	StageRetryCap  int
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	MaxUploadBytes int64

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Sessions     string
	Documents    string
	StageResults string
}

// CollaboratorConfig holds the base URL of each external scoring service and
// the per-call timeout applied to all of them.
type CollaboratorConfig struct {
	DocumentAnalyzerURL string
	FaceMatcherURL      string
	LivenessDetectorURL string
	DeepfakeDetectorURL string
	Timeout             time.Duration
}

// DecisionConfig holds the scoring weights and thresholds. These are
// configuration, not hard-coded business law.
type DecisionConfig struct {
	DocumentWeight  float64
	FaceMatchWeight float64
	LivenessWeight  float64
	DeepfakeWeight  float64

	ApproveThreshold        float64
	ReviewThreshold         float64
	DeepfakeRejectThreshold float64
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Sessions:     getEnv("DYNAMO_TABLE_SESSIONS", "verification_sessions"),
			Documents:    getEnv("DYNAMO_TABLE_DOCUMENTS", "document_records"),
			StageResults: getEnv("DYNAMO_TABLE_STAGE_RESULTS", "stage_results"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "veriflow-media"),

		SNSTopicARN: getEnv("SNS_DECISION_TOPIC_ARN", ""),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		Collaborators: CollaboratorConfig{
			DocumentAnalyzerURL: getEnv("DOCUMENT_ANALYZER_URL", "http://localhost:8081"),
			FaceMatcherURL:      getEnv("FACE_MATCHER_URL", "http://localhost:8082"),
			LivenessDetectorURL: getEnv("LIVENESS_DETECTOR_URL", "http://localhost:8083"),
			DeepfakeDetectorURL: getEnv("DEEPFAKE_DETECTOR_URL", "http://localhost:8084"),
			Timeout:             getEnvDuration("COLLABORATOR_TIMEOUT", 45*time.Second),
		},
		Decision: DecisionConfig{
			DocumentWeight:          getEnvFloat("DECISION_WEIGHT_DOCUMENT", 0.50),
			FaceMatchWeight:         getEnvFloat("DECISION_WEIGHT_FACE_MATCH", 0.30),
			LivenessWeight:          getEnvFloat("DECISION_WEIGHT_LIVENESS", 0.15),
			DeepfakeWeight:          getEnvFloat("DECISION_WEIGHT_DEEPFAKE", 0.05),
			ApproveThreshold:        getEnvFloat("DECISION_APPROVE_THRESHOLD", 70),
			ReviewThreshold:         getEnvFloat("DECISION_REVIEW_THRESHOLD", 40),
			DeepfakeRejectThreshold: getEnvFloat("DECISION_DEEPFAKE_REJECT_THRESHOLD", 50),
		},

		StageRetryCap:  getEnvInt("STAGE_RETRY_CAP", 1),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
