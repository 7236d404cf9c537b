package asset

// Event types published by the Cache on its event bus. The event data is the
// normalized asset path.
const (
	EventLoaded     = "asset.loaded"
	EventLoadFailed = "asset.load_failed"
	EventReleased   = "asset.released"

	eventSource = "asset.cache"
)
