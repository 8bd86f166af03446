package loader

import (
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/pkg/logger"
	"WhatsInbox/internal/pkg/webhook"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	healthPath  = "/api/health"
	webhookPath = "/api/webhook/process"
)

// ErrServerDown 健康检查失败
var ErrServerDown = errors.New("server is not running")

// Result 一次导入的统计
type Result struct {
	Total     int
	Succeeded int
	Failed    int
}

// Loader 将样例 webhook 报文依次推送到服务端
type Loader struct {
	client *resty.Client
	delay  time.Duration
}

func New(baseURL string, delay time.Duration) *Loader {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetTransport(logger.NewHTTPTransport()).
		SetHeader("Content-Type", "application/json")

	return &Loader{
		client: client,
		delay:  delay,
	}
}

// CheckHealth 推送前确认服务端可用
func (l *Loader) CheckHealth(ctx context.Context) error {
	resp, err := l.client.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		return errors.Join(ErrServerDown, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: health check returned %d", ErrServerDown, resp.StatusCode())
	}
	return nil
}

// LoadDir 按文件名顺序推送目录下所有 json 文件，单个文件失败不影响后续
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Result, error) {
	files, err := JSONFiles(dir)
	if err != nil {
		return nil, err
	}

	res := &Result{Total: len(files)}
	for i, file := range files {
		if err = l.post(ctx, file); err != nil {
			res.Failed++
			log.ErrorContext(ctx, "payload failed", "file", filepath.Base(file), "err", err)
		} else {
			res.Succeeded++
			log.InfoContext(ctx, "payload processed", "file", filepath.Base(file))
		}

		if i < len(files)-1 && l.delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(l.delay):
			}
		}
	}
	return res, nil
}

func (l *Loader) post(ctx context.Context, file string) error {
	body, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	resp, err := l.client.R().SetContext(ctx).SetBody(body).Post(webhookPath)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// JSONFiles 目录下的 *.json，按文件名排序
func JSONFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Analyze 不推送，只打印每个文件归一化后的内容
func Analyze(w io.Writer, dir, businessPhone string) error {
	files, err := JSONFiles(dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		_, _ = fmt.Fprintf(w, "%s\n", filepath.Base(file))
		raw, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		batch, err := webhook.Normalize(raw)
		if err != nil {
			_, _ = fmt.Fprintf(w, "  invalid: %v\n", err)
			continue
		}
		for _, in := range batch.Intents {
			_, _ = fmt.Fprintf(w, "  %s\n", describe(in, businessPhone))
		}
		if batch.Dropped > 0 {
			_, _ = fmt.Fprintf(w, "  dropped: %d\n", batch.Dropped)
		}
	}
	return nil
}

func describe(in webhook.Intent, businessPhone string) string {
	switch v := in.(type) {
	case webhook.UpsertMessage:
		direction := model.DirectionIncoming
		if v.From == businessPhone {
			direction = model.DirectionOutgoing
		}
		return fmt.Sprintf("message %s from=%s to=%s type=%s content=%q", direction, v.From, v.To, v.MediaType, v.Body)
	case webhook.UpdateStatus:
		id := v.ProviderID
		if id == "" {
			id = v.MetaID
		}
		return fmt.Sprintf("status %s -> %s", id, v.NewStatus)
	default:
		return "unknown"
	}
}
