package utils

import "os"

var (
	PG_DSN = os.Getenv("MOONCAKE_CATALOG_DSN")

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_ENDPOINT = os.Getenv("MOONCAKE_S3_ENDPOINT")

	REDIS_ADDR     = os.Getenv("MOONCAKE_LAKE_ADDR")
	REDIS_PASSWORD = os.Getenv("MOONCAKE_LAKE_PASSWORD")
)
