//go:build integration

package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"os"
	"testing"
	"time"
)

type liveProvider struct {
	cfg    ProviderConfig
	envVar string
}

func liveProviders() []liveProvider {
	return []liveProvider{
		{ProviderConfig{Kind: KindVertexAI, ProjectID: os.Getenv("CRITICAT_GCP_PROJECT_ID")}, "CRITICAT_GCP_PROJECT_ID"},
		{ProviderConfig{Kind: KindOpenAI, Model: "gpt-4o-mini", APIKey: os.Getenv("OPENAI_API_KEY")}, "OPENAI_API_KEY"},
		{ProviderConfig{Kind: KindAnthropic, APIKey: os.Getenv("ANTHROPIC_API_KEY")}, "ANTHROPIC_API_KEY"},
		{ProviderConfig{Kind: KindOllama}, ""},
	}
}

func skipIfOllamaUnavailable(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:11434/api/tags", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Skipf("skipping: ollama not reachable: %v", err)
	}
	resp.Body.Close()
}

// blankPage renders a white page with a black bar running off the right edge.
func blankPage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 560))
	for y := 0; y < 560; y++ {
		for x := 0; x < 400; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if y > 100 && y < 120 && x > 50 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestIntegration_Provider_StructuredReview(t *testing.T) {
	page := blankPage(t)
	for _, lp := range liveProviders() {
		t.Run(string(lp.cfg.Kind), func(t *testing.T) {
			if lp.envVar != "" && os.Getenv(lp.envVar) == "" {
				t.Skipf("skipping: %s not set", lp.envVar)
			}
			if lp.cfg.Kind == KindOllama {
				skipIfOllamaUnavailable(t)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			cfg := lp.cfg.WithDefaults()
			m, err := NewModel(ctx, cfg)
			if err != nil {
				t.Fatalf("NewModel error: %v", err)
			}
			rc := NewReviewClient(cfg.Name, cfg.Model, m, nil, nil)
			r, err := rc.Review(ctx, []string{page})
			if err != nil {
				t.Fatalf("Review error: %v", err)
			}
			if err := r.Validate(); err != nil {
				t.Errorf("review failed validation: %v", err)
			}
			t.Logf("%s: %d issues, highest %q", cfg.Name, r.IssueCount(), r.HighestStatus())
		})
	}
}
