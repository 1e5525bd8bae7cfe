package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/backsoul/intake/pkg/handlers"
	"github.com/backsoul/intake/pkg/websocket"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Inicia el servidor HTTP y el canal /media-stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	log.Println("🚀 Iniciando servidor del examen de admisión")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("⚙️  Inicializando servicios...")
	deps, err := openExam(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.exam.HealthCheck(ctx); err != nil {
		log.Printf("⚠️ El almacenamiento del progreso no responde: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()
	deps.exam.OnChange(hub.BroadcastProgress)

	router := handlers.NewRouter(
		handlers.NewExamHandler(deps.exam, deps.questions),
		handlers.NewMediaHandler(deps.exam, hub),
		cfg.WebsiteDir,
	)

	server := &fasthttp.Server{
		Handler: router.Handle,
		Name:    "Intake Server",
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.Addr)
	}()

	log.Printf("🩺 Examen de admisión escuchando en %s", cfg.Addr)
	log.Printf("💬 Chat: http://localhost%s/start-chat", cfg.Addr)
	log.Printf("🔧 API Health: http://localhost%s/api/health", cfg.Addr)
	log.Printf("🎙️  Media stream: ws://localhost%s/media-stream", cfg.Addr)
	log.Println("🔄 Presiona Ctrl+C para detener el servidor")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("🛑 Deteniendo servidor...")
		return server.Shutdown()
	}
}
