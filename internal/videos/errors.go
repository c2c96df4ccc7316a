package videos

import "errors"

var (
	// ErrProviderUnavailable indicates the aggregator was built without a search or enrichment client.
	ErrProviderUnavailable = errors.New("video provider unavailable")
)
