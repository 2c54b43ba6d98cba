package photostore

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/vbonduro/obras/internal/domain"
)

// URIPrefix is the path under which stored photos are served. Photo
// references created by a PhotoStore always start with it.
const URIPrefix = "/photos/"

// ErrNotFound is returned when no photo is stored under a key.
var ErrNotFound = errors.New("photo not found")

// PhotoStore keeps captured images and hands out references to them.
type PhotoStore interface {
	Save(ctx context.Context, name, mimeType string, r io.Reader) (domain.Photo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// KeyFromURI returns the storage key of a photo reference made by a
// PhotoStore. References captured elsewhere (a device file:// URI, say)
// report ok == false.
func KeyFromURI(uri string) (key string, ok bool) {
	key, found := strings.CutPrefix(uri, URIPrefix)
	if !found || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}
