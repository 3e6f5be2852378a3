// Package caption rewrites the empty image placeholders the assembler
// emitted into references with generated alt text, by fetching each image
// and asking a multimodal model to describe it.
package caption

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tlhuang/manualrag/internal/storage"
)

// placeholderRe matches image references whose alt text is still empty.
var placeholderRe = regexp.MustCompile(`!\[\]\(([^)]+)\)`)

// Describer generates a short caption for an image.
type Describer interface {
	Describe(ctx context.Context, image []byte, prompt string) (string, error)
}

// Rewriter replaces image placeholders in a document with captioned
// references. Locators are resolved back to storage keys by stripping the
// public base URL.
type Rewriter struct {
	store   storage.Store
	bucket  string
	baseURL string
	llm     Describer
	prompt  string
	log     *slog.Logger
}

func NewRewriter(store storage.Store, bucket, baseURL string, llm Describer, prompt string, log *slog.Logger) *Rewriter {
	return &Rewriter{
		store:   store,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		llm:     llm,
		prompt:  prompt,
		log:     log,
	}
}

// Rewrite scans doc for empty image placeholders and replaces every
// occurrence of each matched placeholder with the same locator and the
// generated caption as alt text. Replacement is literal: a locator that
// appears more than once is rewritten identically everywhere. Locators
// outside the blob store's base URL (external images in converted HTML)
// are left uncaptioned; failures on resolvable locators are fatal for
// the document.
func (r *Rewriter) Rewrite(ctx context.Context, doc string) (string, error) {
	updated := doc
	for _, m := range placeholderRe.FindAllStringSubmatch(doc, -1) {
		locator := m[1]
		placeholder := "![](" + locator + ")"
		if !strings.Contains(updated, placeholder) {
			// Already rewritten via an earlier duplicate occurrence.
			continue
		}

		key, ok := r.resolve(locator)
		if !ok {
			r.log.Warn("skipping external image", "locator", locator)
			continue
		}
		image, err := r.store.Get(ctx, r.bucket, key)
		if err != nil {
			return "", fmt.Errorf("fetch image %s: %w", key, err)
		}

		desc, err := r.llm.Describe(ctx, image, r.prompt)
		if err != nil {
			return "", fmt.Errorf("describe image %s: %w", key, err)
		}
		r.log.Info("captioned image", "key", key, "caption", desc)

		updated = strings.ReplaceAll(updated, placeholder, "![Image "+desc+"]("+locator+")")
	}
	return updated, nil
}

func (r *Rewriter) resolve(locator string) (string, bool) {
	if !strings.HasPrefix(locator, r.baseURL+"/") {
		return "", false
	}
	return strings.TrimPrefix(locator, r.baseURL+"/"), true
}
