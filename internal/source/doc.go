// Package source enumerates tunnels from the reverse-tunnel admin API.
//
// The admin endpoint is paged. Client.FetchAll walks the pages in order,
// spacing requests with a rate limiter, and stops when a page is empty,
// when the reported page count is reached, or when a request fails. A
// failed page is recorded in the shared error budget and ends acquisition
// early with whatever was collected so far; the same page is not retried.
// When the budget is exhausted FetchAll returns budget.ErrExhausted and no
// records at all.
package source
