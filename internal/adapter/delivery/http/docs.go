package http

import (
	_ "embed"

	"github.com/valyala/fasthttp"
)

//go:embed static/openapi.json
var openAPIDocument []byte

//go:embed static/docs.html
var docsPage []byte

// OpenAPI serves the API description.
func OpenAPI(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(openAPIDocument)
}

// Docs serves the interactive documentation page.
func Docs(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(docsPage)
}
