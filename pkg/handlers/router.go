package handlers

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fasthttp"
)

// Router enruta las peticiones del servidor del examen
type Router struct {
	exam       *ExamHandler
	media      *MediaHandler
	websiteDir string
	static     fasthttp.RequestHandler
}

// NewRouter crea el router; websiteDir contiene templates/ y static/
func NewRouter(exam *ExamHandler, media *MediaHandler, websiteDir string) *Router {
	fs := &fasthttp.FS{
		Root:        filepath.Join(websiteDir, "static"),
		PathRewrite: fasthttp.NewPathPrefixStripper(len("/static")),
	}
	return &Router{
		exam:       exam,
		media:      media,
		websiteDir: websiteDir,
		static:     fs.NewRequestHandler(),
	}
}

// Handle implementa fasthttp.RequestHandler
func (r *Router) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	log.Printf("📡 %s %s", method, path)

	ctx.Response.Header.Set("Server", "Intake-FastHTTP/1.0")
	ctx.Response.Header.Set("Cache-Control", "no-cache")

	// Headers CORS para desarrollo
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if method == fasthttp.MethodOptions {
		ctx.SetStatusCode(fasthttp.StatusOK)
		return
	}

	switch {
	case path == "/" && method == fasthttp.MethodGet:
		r.exam.Index(ctx)
	case (path == "/start-chat" || path == "/start-chat/") && method == fasthttp.MethodGet:
		r.serveFile(ctx, filepath.Join("templates", "chat.html"))
	case strings.HasPrefix(path, "/static/") && method == fasthttp.MethodGet:
		r.static(ctx)

	case path == "/api/health":
		r.exam.HealthCheck(ctx)

	case path == "/progress" && method == fasthttp.MethodGet:
		r.exam.GetProgress(ctx)
	case path == "/questions" && method == fasthttp.MethodGet:
		r.exam.GetQuestions(ctx)
	case path == "/questions/reload" && method == fasthttp.MethodPost:
		r.exam.ReloadQuestions(ctx)
	case path == "/question" && method == fasthttp.MethodGet:
		r.exam.GetCurrentQuestion(ctx)
	case path == "/answer" && method == fasthttp.MethodPost:
		r.exam.SaveAnswer(ctx)
	case path == "/skip" && method == fasthttp.MethodPost:
		r.exam.SkipQuestion(ctx)
	case path == "/reset" && method == fasthttp.MethodPost:
		r.exam.Reset(ctx)

	case path == "/media-stream":
		r.media.HandleMediaStream(ctx)

	default:
		respondWithError(ctx, fasthttp.StatusNotFound, "Ruta no encontrada: "+method+" "+path)
	}
}

func (r *Router) serveFile(ctx *fasthttp.RequestCtx, filename string) {
	filePath := filepath.Join(r.websiteDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBodyString(`<!DOCTYPE html>
<html>
<head><title>Archivo no encontrado</title></head>
<body>
	<h1>⚠️ Archivo no encontrado</h1>
	<p>El archivo <strong>` + filename + `</strong> no existe en el servidor.</p>
</body>
</html>`)
		return
	}

	if filepath.Ext(filename) == ".html" {
		ctx.SetContentType("text/html; charset=utf-8")
	}
	fasthttp.ServeFile(ctx, filePath)
	log.Printf("✅ Archivo servido: %s", filename)
}
