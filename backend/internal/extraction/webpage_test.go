package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWebpageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html>
			<head>
				<title>公司简介</title>
				<style>body { color: red; }</style>
				<script>console.log("tracking");</script>
			</head>
			<body>
				<nav>首页 关于 联系</nav>
				<p>张三于2020年加入ABC公司。</p>
				<footer>版权所有</footer>
			</body>
		</html>`))
	}))
	defer srv.Close()

	text, err := FetchWebpageText(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "公司简介")
	assert.Contains(t, text, "张三于2020年加入ABC公司。")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "版权所有")
	assert.NotContains(t, text, "联系")
}

func TestFetchWebpageText_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := FetchWebpageText(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 404"))
}

func TestFetchWebpageText_Unreachable(t *testing.T) {
	_, err := FetchWebpageText(context.Background(), "http://127.0.0.1:1/none")
	assert.Error(t, err)
}
