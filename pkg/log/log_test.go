package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNew_ServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", ServiceName: "socket-service", Output: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
	assert.Equal(t, "socket-service", got[0][FieldService])
}

func TestWithConn(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithConn(ctx, "c1", "u1", "websocket")

	l := Ctx(ctx)
	l.Info().Msg("hello")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0][FieldConnID])
	assert.Equal(t, "u1", got[0][FieldUserID])
	assert.Equal(t, "websocket", got[0][FieldTransport])
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(GinMiddleware(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) {
		c.Set(FieldUserID, "u1")
		l := Ctx(c.Request.Context())
		l.Info().Msg("inside")
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "req-1", got[0][FieldRequestID])
	assert.Equal(t, "request completed", got[1]["message"])
	assert.Equal(t, float64(http.StatusTeapot), got[1][FieldStatus])
	assert.Equal(t, "u1", got[1][FieldUserID])
}

func TestUnaryServerInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := UnaryServerInterceptor(zerolog.New(&buf))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "rid-9"))
	info := &grpc.UnaryServerInfo{FullMethod: "/jevah.Test/Call"}

	resp, err := interceptor(ctx, "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		l := Ctx(ctx)
		l.Info().Msg("handler")
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "rid-9", got[0][FieldRequestID])
	assert.Equal(t, "/jevah.Test/Call", got[1][FieldGRPCMethod])
	assert.Equal(t, "OK", got[1][FieldGRPCCode])
}
