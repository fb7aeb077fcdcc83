// Package download fetches toolchain archives and unpacks them into the apps directory.
package download

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/net/http/httpproxy"
)

const (
	// ChunkSize bounds the buffer used while streaming a response body to disk.
	ChunkSize = 8192

	userAgent = "il2cpp-decompile"
)

// Acquirer installs the archive found at url into the toolchain root, or
// into the named subdirectory of it when subdir is not empty.
type Acquirer interface {
	Acquire(ctx context.Context, url, subdir string) error
}

// Downloader is the HTTP Acquirer.
type Downloader struct {
	Root     string
	Progress bool

	client *http.Client
}

// NewDownloader creates a new downloader extracting into root
func NewDownloader(root, proxy string, insecure, progress bool) *Downloader {
	return &Downloader{
		Root:     root,
		Progress: progress,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:             GetProxy(proxy),
				TLSClientConfig:   &tls.Config{InsecureSkipVerify: insecure},
				ForceAttemptHTTP2: true,
			},
		},
	}
}

// GetProxy takes either an input string or read the enviornment and returns a proxy function
func GetProxy(proxy string) func(*http.Request) (*url.URL, error) {
	if len(proxy) > 0 {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			log.WithError(err).Error("bad proxy url")
		}
		log.Debugf("proxy set to: %s", proxyURL)

		return http.ProxyURL(proxyURL)
	}

	conf := httpproxy.FromEnvironment()
	if len(conf.HTTPProxy) > 0 || len(conf.HTTPSProxy) > 0 {
		log.WithFields(log.Fields{
			"http_proxy":  conf.HTTPProxy,
			"https_proxy": conf.HTTPSProxy,
			"no_proxy":    conf.NoProxy,
		}).Debugf("proxy info from environment")
	}

	return http.ProxyFromEnvironment
}

// Acquire downloads url to a temporary file and extracts it.
func (d *Downloader) Acquire(ctx context.Context, rawURL, subdir string) error {
	dest := d.Root
	if subdir != "" {
		dest = filepath.Join(d.Root, subdir)
	}

	tmp, err := os.CreateTemp("", "il2cpp-decompile-*.download")
	if err != nil {
		return errors.Wrap(err, "cannot create temporary download file")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	utils.Indent(log.WithField("url", rawURL).Info, 2)("Downloading")
	size, err := d.fetch(ctx, rawURL, tmp)
	if err != nil {
		return err
	}

	format, err := DetectFormat(rawURL, tmp)
	if err != nil {
		return err
	}

	utils.Indent(log.WithFields(log.Fields{
		"size":   humanize.Bytes(uint64(size)),
		"format": format,
		"dest":   dest,
	}).Info, 2)("Extracting")
	files, err := Extract(tmp, size, format, dest)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", rawURL, err)
	}
	utils.Indent(log.Debug, 3)(fmt.Sprintf("extracted %d files", len(files)))
	return nil
}

// fetch streams the body of url into dst in ChunkSize pieces and returns the number of bytes written.
func (d *Downloader) fetch(ctx context.Context, rawURL string, dst io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create http GET request: %v", err)
	}
	req.Header.Add("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("server return status: %s", resp.Status)
	}

	var p *mpb.Progress
	var reader io.ReadCloser = resp.Body

	if d.Progress && resp.ContentLength > 0 {
		p = mpb.NewWithContext(ctx,
			mpb.WithWidth(60),
			mpb.WithRefreshRate(180*time.Millisecond),
		)
		bar := p.New(resp.ContentLength,
			mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
			mpb.PrependDecorators(
				decor.CountersKibiByte("\t% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "✅ "),
				decor.Name(" ] "),
				decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncWidth),
			),
		)
		// create proxy reader
		reader = bar.ProxyReader(resp.Body)
	}
	defer reader.Close()

	n, err := io.CopyBuffer(dst, reader, make([]byte, ChunkSize))
	if p != nil {
		if err != nil {
			p.Shutdown()
		} else {
			p.Wait()
		}
	}
	if err != nil {
		return n, fmt.Errorf("failed to copy body reader data: %v", err)
	}
	return n, nil
}
