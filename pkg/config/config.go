package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Tipos de almacenamiento del progreso
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config configuración del servidor del examen
type Config struct {
	Addr          string
	QuestionsFile string
	WebsiteDir    string

	Store        string
	ProgressFile string
	SQLitePath   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// FromEnv construye la configuración a partir de variables de entorno con valores por defecto
func FromEnv() Config {
	return Config{
		Addr:          getEnv("INTAKE_ADDR", ":5050"),
		QuestionsFile: getEnv("INTAKE_QUESTIONS_FILE", "questions.json"),
		WebsiteDir:    getEnv("INTAKE_WEBSITE_DIR", "website_files"),
		Store:         getEnv("INTAKE_STORE", StoreFile),
		ProgressFile:  getEnv("INTAKE_PROGRESS_FILE", "answers.json"),
		SQLitePath:    getEnv("INTAKE_SQLITE_PATH", "intake.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisKey:      getEnv("INTAKE_REDIS_KEY", "intake:progress"),
	}
}

// Validate verifica que la configuración sea utilizable
func (c Config) Validate() error {
	if strings.TrimSpace(c.QuestionsFile) == "" {
		return fmt.Errorf("questions file is required")
	}
	switch c.Store {
	case StoreFile:
		if strings.TrimSpace(c.ProgressFile) == "" {
			return fmt.Errorf("progress file is required for store %q", c.Store)
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite path is required for store %q", c.Store)
		}
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" || strings.TrimSpace(c.RedisKey) == "" {
			return fmt.Errorf("redis address and key are required for store %q", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (expected %s, %s or %s)", c.Store, StoreFile, StoreRedis, StoreSQLite)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
