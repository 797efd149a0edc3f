package gazetteer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrDownload is returned when the dataset cannot be fetched
	ErrDownload = errors.New("dataset download failed")
	// ErrDecompress is returned when the dataset archive cannot be read
	ErrDecompress = errors.New("dataset decompression failed")
)

// Download streams the dataset at url into w. Failures are not retried.
func Download(ctx context.Context, client *http.Client, url, userAgent string, w io.Writer) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %v", ErrDownload, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: unexpected status %d", ErrDownload, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: read body: %v", ErrDownload, err)
	}
	return n, nil
}

// archiveEntry closes the entry and the archive it came from
type archiveEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (e *archiveEntry) Close() error {
	err := e.ReadCloser.Close()
	if cerr := e.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenArchive opens the named entry of the zip archive at path
func OpenArchive(path, entry string) (io.ReadCloser, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}

	for _, f := range archive.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			_ = archive.Close()
			return nil, fmt.Errorf("%w: open %s: %v", ErrDecompress, entry, err)
		}
		return &archiveEntry{ReadCloser: rc, archive: archive}, nil
	}

	_ = archive.Close()
	return nil, fmt.Errorf("%w: entry %s not found", ErrDecompress, entry)
}
