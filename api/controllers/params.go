/*
 * @module api/controllers/params
 * @description 把一次 HTTP 请求翻译成引擎认识的 StandardParams：path/query/body 三源
 * @architecture MVC架构 - 请求适配
 * @documentReference SPEC_FULL.md #6 "Input wire shape"
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 */

package controllers

import (
	"net/http"

	"orm-engine/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// buildStandardParams 从请求的路由参数、查询串与（可选的）JSON body 构造 StandardParams。
func buildStandardParams(r *http.Request) (*models.StandardParams, error) {
	sp := models.NewStandardParams()

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			sp.Path[key] = rctx.URLParams.Values[i]
		}
	}

	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			sp.Query[key] = values[0]
		} else {
			sp.Query[key] = values
		}
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		var body map[string]any
		if err := render.DecodeJSON(r.Body, &body); err == nil {
			sp.Body = body
		}
	}

	return sp, nil
}

// clientFingerprint 派生限流/审计用的客户端标识：优先 X-Client-Id，否则取远端地址。
func clientFingerprint(r *http.Request) string {
	if v := r.Header.Get("X-Client-Id"); v != "" {
		return v
	}
	return r.RemoteAddr
}
