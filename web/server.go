// Package web serves the annotate pipeline over HTTP and websocket.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"TreeDetServer/classes"
	"TreeDetServer/logger"
	"TreeDetServer/monitor"
	"TreeDetServer/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxUpload bounds request bodies and websocket frames.
var maxUpload int64 = 20 * 1024 * 1024

type classInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch pipeline.Kind(err) {
	case "input":
		return http.StatusBadRequest
	case "upstream":
		return http.StatusBadGateway
	case "canceled":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error(), "kind": pipeline.Kind(err)})
}

// countsHeader renders counts as Dead=0,Grass=1,...
func countsHeader(out *pipeline.Output) string {
	parts := make([]string, 0, len(out.Counts))
	for _, e := range out.Counts {
		parts = append(parts, fmt.Sprintf("%s=%d", e.Label, e.Count))
	}
	return strings.Join(parts, ",")
}

func requestLogger() gin.HandlerFunc {
	log := logger.Named(logger.HTTP)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// readUpload returns the bytes of the multipart "file" field.
func readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &pipeline.InputError{Reason: fmt.Sprintf("request body larger than %d bytes", maxUpload), Err: err}
		}
		return nil, &pipeline.InputError{Reason: "no image provided", Err: err}
	}
	if err := pipeline.CheckFilename(file.Filename); err != nil {
		return nil, err
	}
	if file.Size > maxUpload {
		return nil, &pipeline.InputError{Reason: fmt.Sprintf("image larger than %d bytes", maxUpload)}
	}
	f, err := file.Open()
	if err != nil {
		return nil, &pipeline.InputError{Reason: "upload could not be read", Err: err}
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		return nil, &pipeline.InputError{Reason: "upload could not be read", Err: err}
	}
	return data, nil
}

func NewRouter(pool *pipeline.Pool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = maxUpload

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
	})
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/classes", func(c *gin.Context) {
		infos := make([]classInfo, 0, classes.Count)
		for _, l := range classes.All() {
			infos = append(infos, classInfo{Index: int(l), Name: l.String(), Color: l.Hex()})
		}
		c.JSON(http.StatusOK, gin.H{"data": infos, "tag": classes.Tag()})
	})
	r.GET("/api/engine", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": pool.Pipeline().Backend().CheckConfig()})
	})
	r.POST("/api/annotate", func(c *gin.Context) {
		data, err := readUpload(c)
		if err != nil {
			abort(c, err)
			return
		}
		out, err := pool.Submit(c.Request.Context(), "http", data)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
	r.POST("/api/annotate/png", func(c *gin.Context) {
		data, err := readUpload(c)
		if err != nil {
			abort(c, err)
			return
		}
		out, err := pool.Submit(c.Request.Context(), "http", data)
		if err != nil {
			abort(c, err)
			return
		}
		c.Header("X-Request-Id", out.ID)
		c.Header("X-Total-Trees", strconv.Itoa(out.Total))
		c.Header("X-Class-Counts", countsHeader(out))
		c.Data(http.StatusOK, "image/png", out.Image)
	})
	r.GET("/ws", wsHandler(pool))
	r.GET("/metrics", gin.WrapH(monitor.Handler()))
	return r
}

// Serve runs the router on port until ctx is done.
func Serve(ctx context.Context, port int, pool *pipeline.Pool) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewRouter(pool),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Log().Info("http server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "http shutdown")
}
