// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"rivaas.dev/pathmap/config"
	"rivaas.dev/pathmap/dispatch"
	"rivaas.dev/pathmap/router"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler references understood in route tables.
const (
	kindEcho   = "echo"
	kindStatic = "static:"
	kindStatus = "status:"
)

var errUnknownHandler = errors.New("unknown handler kind, want echo, static:<text> or status:<code>")

// match is the echo handler's response body.
type match struct {
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Resource  string            `json:"resource,omitempty"`
	Name      string            `json:"name,omitempty"`
	Template  string            `json:"template"`
	Params    map[string]string `json:"params"`
	Remaining string            `json:"remaining,omitempty"`
	Allow     []string          `json:"allow,omitempty"`
}

func newMatch[H any](method, path string, res *dispatch.Result[H]) match {
	if res == nil {
		return match{Method: method, Path: path}
	}
	m := match{
		Method:    method,
		Path:      path,
		Template:  res.Template(),
		Params:    res.Params(),
		Remaining: res.Remaining,
		Allow:     res.Allow,
	}
	if res.Resource != nil {
		m.Resource = res.Resource.Name
	}
	if res.Method != nil {
		m.Name = res.Method.Name
	}
	return m
}

// handlerSpec is a parsed handler reference.
type handlerSpec struct {
	kind        string
	text        string
	status      int
	contentType string
}

func parseHandler(ref string, m config.MethodConfig) (handlerSpec, error) {
	contentType := "text/plain; charset=utf-8"
	if len(m.Produces) > 0 {
		contentType = m.Produces[0]
	}

	switch {
	case ref == kindEcho:
		return handlerSpec{kind: kindEcho, status: http.StatusOK}, nil
	case strings.HasPrefix(ref, kindStatic):
		return handlerSpec{
			kind:        kindStatic,
			text:        strings.TrimPrefix(ref, kindStatic),
			status:      http.StatusOK,
			contentType: contentType,
		}, nil
	case strings.HasPrefix(ref, kindStatus):
		code, err := strconv.Atoi(strings.TrimPrefix(ref, kindStatus))
		if err != nil || code < 100 || code > 599 {
			return handlerSpec{}, fmt.Errorf("invalid status in %q", ref)
		}
		return handlerSpec{kind: kindStatus, status: code}, nil
	default:
		return handlerSpec{}, fmt.Errorf("%w: %q", errUnknownHandler, ref)
	}
}

// httpHandler resolves a handler reference for the net/http engine.
func httpHandler(ref string, m config.MethodConfig) (http.Handler, error) {
	spec, err := parseHandler(ref, m)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch spec.kind {
		case kindEcho:
			res, _ := router.ResultFromContext(req.Context())
			body, err := json.Marshal(newMatch(req.Method, req.URL.Path, res))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		case kindStatic:
			w.Header().Set("Content-Type", spec.contentType)
			_, _ = w.Write([]byte(spec.text))
		default:
			w.WriteHeader(spec.status)
		}
	}), nil
}

// fastHandler resolves a handler reference for the fasthttp engine.
func fastHandler(ref string, m config.MethodConfig) (fasthttp.RequestHandler, error) {
	spec, err := parseHandler(ref, m)
	if err != nil {
		return nil, err
	}

	return func(ctx *fasthttp.RequestCtx) {
		switch spec.kind {
		case kindEcho:
			res, _ := router.FastResultFromContext(ctx)
			body, err := json.Marshal(newMatch(string(ctx.Method()), string(ctx.Path()), res))
			if err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		case kindStatic:
			ctx.SetContentType(spec.contentType)
			ctx.SetBodyString(spec.text)
		default:
			ctx.SetStatusCode(spec.status)
		}
	}, nil
}
