package cmd

import (
	"github.com/backsoul/intake/pkg/config"
	"github.com/spf13/cobra"
)

// cfg parte de las variables de entorno; los flags la sobrescriben
var cfg = config.FromEnv()

var rootCmd = &cobra.Command{
	Use:          "intake",
	Short:        "Servidor del examen de admisión por voz",
	Long:         "Backend del agente de voz que conduce el examen de admisión: catálogo de preguntas, progreso persistente y canal de herramientas.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "Dirección HTTP (INTAKE_ADDR)")
	flags.StringVar(&cfg.QuestionsFile, "questions", cfg.QuestionsFile, "Archivo JSON con el catálogo de preguntas (INTAKE_QUESTIONS_FILE)")
	flags.StringVar(&cfg.WebsiteDir, "website-dir", cfg.WebsiteDir, "Directorio con templates/ y static/ (INTAKE_WEBSITE_DIR)")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "Almacenamiento del progreso: file, redis o sqlite (INTAKE_STORE)")
	flags.StringVar(&cfg.ProgressFile, "progress-file", cfg.ProgressFile, "Archivo del progreso para --store=file (INTAKE_PROGRESS_FILE)")
	flags.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "Base de datos para --store=sqlite (INTAKE_SQLITE_PATH)")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Dirección de Redis (REDIS_ADDR)")
	flags.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Contraseña de Redis (REDIS_PASSWORD)")
	flags.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Base de datos de Redis (REDIS_DB)")
	flags.StringVar(&cfg.RedisKey, "redis-key", cfg.RedisKey, "Clave del progreso en Redis (INTAKE_REDIS_KEY)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(resetCmd)
}

// loadConfig devuelve la configuración efectiva ya validada
func loadConfig() (config.Config, error) {
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
