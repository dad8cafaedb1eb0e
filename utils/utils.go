package utils

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nbiscaro/pg-mooncake/gologger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/segmentio/ksuid"
)

var logger = gologger.NewLogger()

func GetEnvOrDefault(env, defaultVal string) string {
	e := os.Getenv(env)
	if e == "" {
		return defaultVal
	}
	return e
}

func GetEnvOrDefaultInt(env string, defaultVal int64) int64 {
	e := os.Getenv(env)
	if e == "" {
		return defaultVal
	}
	intVal, err := strconv.ParseInt(e, 10, 64)
	if err != nil {
		logger.Error().Msg(fmt.Sprintf("failed to parse env '%s' as int", env))
		os.Exit(1)
	}
	return intVal
}

func GetEnvOrDefaultBool(env string, defaultVal bool) bool {
	e := os.Getenv(env)
	if e == "" {
		return defaultVal
	}
	return e == "1" || e == "true"
}

// GenRandomID returns a nanoid with the given prefix, used for DV transaction batch ids.
func GenRandomID(prefix string) string {
	return prefix + gonanoid.MustGenerate("abcdefghijklmonpqrstuvwxyzABCDEFGHIJKLMONPQRSTUVWXYZ0123456789", 22)
}

// GenKSortedID returns a k-sorted id, used for catalog snapshot tokens. Ids
// sort by their one-second-resolution timestamp; ids issued within the same
// second are in random order.
func GenKSortedID(prefix string) string {
	return prefix + ksuid.New().String()
}
