package handler

import (
	"embed"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates は画面テンプレートを読み込みます。gin.Engine.SetHTMLTemplate に渡して使用します。
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// reportHref はテキストレポートをダウンロードリンク用のdata URIに変換します。
func reportHref(report string) template.URL {
	return template.URL("data:text/plain;charset=utf-8," + url.PathEscape(report))
}
