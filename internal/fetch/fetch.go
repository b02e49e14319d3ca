package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Fetcher resolves source references to local files. Supports:
// - file://path or absolute/relative filesystem paths
// - http(s):// URLs (downloads to Dir)
// - s3://bucket/key (downloads to Dir via AWS SDK v2)
type Fetcher struct {
	// Dir receives downloaded files. Empty means os.TempDir().
	Dir string

	httpClient *http.Client
}

// New creates a Fetcher that downloads into dir.
func New(dir string) *Fetcher {
	return &Fetcher{Dir: dir, httpClient: http.DefaultClient}
}

// Resolve returns a local path for ref. temp is true when the path was
// downloaded and belongs to the caller to remove.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (localPath string, temp bool, err error) {
	// Strip optional #page fragment if present
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		p, err := f.downloadS3(ctx, ref)
		return p, true, err
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		p, err := f.downloadHTTP(ctx, ref)
		return p, true, err
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://"), false, nil
	default:
		// treat as filesystem path
		return ref, false, nil
	}
}

func (f *Fetcher) downloadHTTP(ctx context.Context, url string) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	out, err := os.CreateTemp(f.Dir, "pdfdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func (f *Fetcher) downloadS3(ctx context.Context, s3url string) (string, error) {
	// s3://bucket/key
	path := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 {
		return "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	bucket := path[:slash]
	key := path[slash+1:]

	// Load AWS config (region from env or default chain)
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	cli := s3.NewFromConfig(cfg)

	obj, err := cli.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return "", err
	}
	defer obj.Body.Close()

	out, err := os.CreateTemp(f.Dir, "s3pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, obj.Body); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	log.Info().Str("bucket", bucket).Str("key", key).Str("file", filepath.Base(out.Name())).Msg("downloaded s3 pdf to temp")
	return out.Name(), nil
}

// TempPrefixes are the filename prefixes Resolve may create, exported so
// the janitor can sweep crash leftovers.
var TempPrefixes = []string{"pdfdl-", "s3pdf-"}
