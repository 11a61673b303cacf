package skill

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Имена встроенных skill.
const (
	SkillWordCount = "word_count"
	SkillFetchURL  = "fetch_url"
	SkillReadFile  = "read_file"
)

const maxFetchBody = 10 * 1024 * 1024 // 10 MB

// NewBuiltinCatalog создаёт каталог со встроенными skill.
func NewBuiltinCatalog() *Catalog {
	c := NewCatalog()

	c.MustRegister(New(Descriptor{
		Name:        SkillWordCount,
		Description: "Count whitespace-separated words in a string",
		Idempotent:  true,
	}, wordCount))

	c.MustRegister(New(Descriptor{
		Name:            SkillFetchURL,
		Description:     "GET a URL (args.url or the current value) and return the body",
		IsAsync:         true,
		Idempotent:      true,
		RequiresNetwork: true,
	}, fetchURL))

	c.MustRegister(New(Descriptor{
		Name:               SkillReadFile,
		Description:        "Read a file (args.path or the current value) as a string",
		Idempotent:         true,
		RequiresFilesystem: true,
	}, readFile))

	return c
}

func wordCount(_ context.Context, in Input) (any, error) {
	s, ok := in.Value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", in.Value)
	}
	return len(strings.Fields(s)), nil
}

func fetchURL(ctx context.Context, in Input) (any, error) {
	url := argOrValue(in, "url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return string(body), nil
}

func readFile(_ context.Context, in Input) (any, error) {
	path := argOrValue(in, "path")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// argOrValue возвращает строковый аргумент или текущее значение.
func argOrValue(in Input, key string) string {
	if s, ok := in.Args[key].(string); ok && s != "" {
		return s
	}
	s, _ := in.Value.(string)
	return s
}
