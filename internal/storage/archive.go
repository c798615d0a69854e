// Package storage archives raw extracted page text to a blob store. Concrete
// blob stores live in the local, gcs, and memory subpackages.
package storage

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/JakeFAU/company-profiler/internal/company"
)

const textContentType = "text/plain; charset=utf-8"

// Archive writes one text object per company per run.
type Archive struct {
	blobs  company.BlobStore
	prefix string
}

// NewArchive wraps blobs. A nil Archive discards everything.
func NewArchive(blobs company.BlobStore, prefix string) (*Archive, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Archive{blobs: blobs, prefix: strings.Trim(prefix, "/")}, nil
}

// ObjectPath returns <prefix>/<run_id>/<company_id>.txt.
func ObjectPath(prefix, runID string, companyID int64) string {
	return path.Join(prefix, runID, strconv.FormatInt(companyID, 10)+".txt")
}

// Put stores text for companyID under runID and returns the object URI.
func (a *Archive) Put(ctx context.Context, runID string, companyID int64, text string) (string, error) {
	if a == nil {
		return "", nil
	}
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	uri, err := a.blobs.PutObject(ctx, ObjectPath(a.prefix, runID, companyID), textContentType, strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("archive company %d: %w", companyID, err)
	}
	return uri, nil
}
