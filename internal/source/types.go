package source

import (
	"encoding/json"
	"fmt"

	"github.com/nao1215/tunguard/internal/model"
)

// successCode is the application-level code the admin API returns on success.
const successCode = 200

// pageResponse is the admin API response for one page of tunnels.
// Records stay raw so that one badly typed record does not fail its page.
type pageResponse struct {
	Code       int               `json:"code"`
	Msg        string            `json:"msg"`
	Proxies    []json.RawMessage `json:"proxies"`
	Pagination pagination        `json:"pagination"`
}

type pagination struct {
	Pages int `json:"pages"`
}

// totalPages returns the reported page count, treating a missing value as 1.
func (r pageResponse) totalPages() int {
	if r.Pagination.Pages <= 0 {
		return 1
	}
	return r.Pagination.Pages
}

// records decodes each raw record on its own. Records that cannot be
// decoded are returned as errors; their neighbours are unaffected.
func (r pageResponse) records() ([]model.TunnelRecord, []error) {
	recs := make([]model.TunnelRecord, 0, len(r.Proxies))
	var errs []error
	for i, raw := range r.Proxies {
		var rec model.TunnelRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			errs = append(errs, fmt.Errorf("%w: record %d: %w", model.ErrMalformedRecord, i+1, err))
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}
