// Package catalog picks the upstream model used for each completion.
//
// The provider publishes its models at GET {base_url}/models. Every selection fetches
// that list again, ranks the entries by declared context length and returns the
// largest. Any failure along the way degrades to a fixed fallback model id; the
// caller never sees an error.
package catalog

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tidwall/gjson"
)

// DefaultFallbackModel is used whenever the catalog cannot produce a choice.
const DefaultFallbackModel = "llama-3.3-70b"

// Catalog errors.
var (
	// ErrUnexpectedStatus is returned when the models endpoint answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("catalog: unexpected status")

	// ErrMalformedCatalog is returned when the models endpoint body is not a catalog document.
	ErrMalformedCatalog = errors.New("catalog: malformed response body")
)

// ModelDescriptor is one upstream model candidate.
type ModelDescriptor struct {
	ID         string `json:"id"`
	MaxContext int64  `json:"max_context"`
}

// ParseCatalog extracts model descriptors from a models-listing body.
// A document without a "data" field yields an empty list. Entries without a
// string id are skipped; a missing max_context_length counts as zero.
func ParseCatalog(body []byte) ([]ModelDescriptor, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedCatalog
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedCatalog)
	}

	data := doc.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return []ModelDescriptor{}, nil
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: data is not a list", ErrMalformedCatalog)
	}

	models := make([]ModelDescriptor, 0, len(data.Array()))
	data.ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("id")
		if id.Type != gjson.String {
			return true
		}
		models = append(models, ModelDescriptor{
			ID:         id.String(),
			MaxContext: entry.Get("max_context_length").Int(),
		})
		return true
	})

	return models, nil
}

// Best returns the descriptor with the largest MaxContext.
// Ties go to the entry listed first. Returns None for an empty list.
func Best(models []ModelDescriptor) mo.Option[ModelDescriptor] {
	if len(models) == 0 {
		return mo.None[ModelDescriptor]()
	}

	return mo.Some(lo.MaxBy(models, func(candidate, current ModelDescriptor) bool {
		return candidate.MaxContext > current.MaxContext
	}))
}
