package pipeline

import (
	"context"
	"fmt"

	"github.com/tlhuang/manualrag/internal/storage"
)

// imageSink persists extracted page images under the document's prefix and
// hands the public locator back to the layout extractor.
type imageSink struct {
	store   storage.Store
	bucket  string
	baseURL string
	prefix  string
	job     *Job
}

func (s *imageSink) SaveImage(ctx context.Context, page, index int, data []byte) (string, error) {
	key := fmt.Sprintf("%s/page%d_img%d.jpg", s.prefix, page, index)
	if err := s.store.Put(ctx, s.bucket, key, data); err != nil {
		return "", fmt.Errorf("save image %s: %w", key, err)
	}
	if s.job != nil {
		s.job.IncrImagesSaved()
	}
	return s.baseURL + "/" + key, nil
}
