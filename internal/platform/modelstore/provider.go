package modelstore

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"tumor_backend/internal/feature/tumordetection/domain"
)

// maxConfirmPageSize は確認ページとして読み込むHTMLの上限です。
const maxConfirmPageSize = 1 << 20

var (
	// 大きなファイルの場合、Google Driveはウイルススキャン確認ページ（HTMLフォーム）を返す
	formActionPattern  = regexp.MustCompile(`<form[^>]+action="([^"]+)"`)
	hiddenInputPattern = regexp.MustCompile(`<input[^>]+type="hidden"[^>]+name="([^"]+)"[^>]+value="([^"]*)"`)
	confirmPattern     = regexp.MustCompile(`confirm=([0-9A-Za-z_\-]+)`)
)

// Provider はモデルファイルがローカルに存在することを保証します。
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider は指定された設定とHTTPクライアントでProviderの新しいインスタンスを生成します。
func NewProvider(cfg Config, client *http.Client) *Provider {
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{cfg: cfg, client: client}
}

// Config はProviderの設定を返します。
func (p *Provider) Config() Config {
	return p.cfg
}

// Ensure はモデルファイルのパスを返します。
// ファイルが既に存在する場合はネットワークにアクセスせずそのまま返し、
// 無い場合のみリモートから一度だけダウンロードして同じパスに書き込みます。
// 取得したファイルの整合性検証は行いません。
func (p *Provider) Ensure(ctx context.Context) (string, error) {
	path := p.cfg.ModelPath

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return "", fmt.Errorf("%w: model path %q is a directory", domain.ErrModel, path)
	case err == nil:
		return path, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: stat model: %w", domain.ErrModel, err)
	}

	if p.cfg.ModelID == "" {
		return "", fmt.Errorf("%w: %s not found and MODEL_ID is not set", domain.ErrDownload, path)
	}

	slog.Info("モデルをダウンロードします", "model_id", p.cfg.ModelID, "path", path)
	if err := p.download(ctx, path); err != nil {
		return "", err
	}
	slog.Info("モデルのダウンロードが完了しました", "path", path)
	return path, nil
}

// download はリモートからモデルを取得し、一時ファイル経由で path に配置します。
func (p *Provider) download(ctx context.Context, path string) error {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("id", p.cfg.ModelID)
	q.Set("export", "download")
	res, err := p.get(ctx, p.cfg.BaseURL+"?"+q.Encode())
	if err != nil {
		return err
	}

	if isHTML(res) {
		next, err := confirmURL(res, p.cfg.BaseURL, p.cfg.ModelID)
		closeBody(res)
		if err != nil {
			return err
		}
		if res, err = p.get(ctx, next); err != nil {
			return err
		}
		if isHTML(res) {
			closeBody(res)
			return fmt.Errorf("%w: remote returned an HTML page instead of the model", domain.ErrDownload)
		}
	}
	defer closeBody(res)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create model dir: %w", domain.ErrDownload, err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", domain.ErrDownload, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, res.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: write model: %w", domain.ErrDownload, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: empty response body", domain.ErrDownload)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: move model into place: %w", domain.ErrDownload, err)
	}
	return nil
}

func (p *Provider) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	if res.StatusCode >= 400 {
		closeBody(res)
		return nil, fmt.Errorf("%w: http %d", domain.ErrDownload, res.StatusCode)
	}
	return res, nil
}

// confirmURL は確認ページから実ファイルのURLを組み立てます。
func confirmURL(res *http.Response, baseURL, id string) (string, error) {
	b, err := io.ReadAll(io.LimitReader(res.Body, maxConfirmPageSize))
	if err != nil {
		return "", fmt.Errorf("%w: read confirm page: %w", domain.ErrDownload, err)
	}
	page := string(b)

	if m := formActionPattern.FindStringSubmatch(page); m != nil {
		action, err := res.Request.URL.Parse(html.UnescapeString(m[1]))
		if err != nil {
			return "", fmt.Errorf("%w: bad form action: %w", domain.ErrDownload, err)
		}
		q := action.Query()
		for _, in := range hiddenInputPattern.FindAllStringSubmatch(page, -1) {
			q.Set(html.UnescapeString(in[1]), html.UnescapeString(in[2]))
		}
		action.RawQuery = q.Encode()
		return action.String(), nil
	}

	if m := confirmPattern.FindStringSubmatch(page); m != nil {
		q := url.Values{}
		q.Set("id", id)
		q.Set("export", "download")
		q.Set("confirm", m[1])
		return baseURL + "?" + q.Encode(), nil
	}

	return "", fmt.Errorf("%w: remote returned an HTML page without a download link (check MODEL_ID and sharing settings)", domain.ErrDownload)
}

func isHTML(res *http.Response) bool {
	mt, _, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	return err == nil && mt == "text/html"
}

func closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}
