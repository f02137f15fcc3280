package services

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/go-resty/resty/v2"
)

// ImageRelay скачивает изображения исходного лота и загружает их от имени сессии
type ImageRelay struct {
	client   *resty.Client
	timeout  time.Duration
	maxBytes int64
	logger   interfaces.LoggerPort
}

// NewImageRelay создает ImageRelay
// timeout ограничивает каждое скачивание отдельно, maxBytes ограничивает размер файла (0 без ограничения)
func NewImageRelay(timeout time.Duration, maxBytes int64, logger interfaces.LoggerPort) *ImageRelay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("accept", "image/*")

	return &ImageRelay{
		client:   client,
		timeout:  timeout,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Relay обрабатывает URL по порядку и возвращает идентификаторы успешно загруженных изображений
// Ошибка одного изображения только пропускает его
func (r *ImageRelay) Relay(ctx context.Context, urls []string, uploader ImageUploader) []string {
	ids := make([]string, 0, len(urls))

	for _, u := range urls {
		data, err := r.download(ctx, u)
		if err != nil {
			imageRelayTotal.WithLabelValues("download_failed").Inc()
			r.logger.WarnWithContext(ctx, "Не удалось скачать изображение",
				interfaces.LogField{Key: "url", Value: u},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}

		id, err := uploader.UploadImage(ctx, data)
		if err != nil {
			imageRelayTotal.WithLabelValues("upload_failed").Inc()
			r.logger.WarnWithContext(ctx, "Не удалось загрузить изображение",
				interfaces.LogField{Key: "url", Value: u},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}

		imageRelayTotal.WithLabelValues("relayed").Inc()
		ids = append(ids, id)
	}

	return ids
}

func (r *ImageRelay) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("image host responded with status %d", res.StatusCode())
	}

	data := res.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body")
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", len(data), r.maxBytes)
	}
	return data, nil
}
